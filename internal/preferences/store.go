package preferences

import (
	"context"
	"time"
)

// ImagePathsKey is the string-set key holding every known image path
const ImagePathsKey = "imagePaths"

// Record is one analyzed image: its path, the path of its result file and when it was captured
type Record struct {
	ImagePath  string
	ResultPath string
	CapturedAt time.Time
}

// Store is a persistent key/value map with string and string-set values.
// Reads of unknown keys return the empty default rather than an error.
// Writes go through RecordAnalysis and DeleteRecord only, so a set member
// and its mapping always change together.
type Store interface {
	GetString(ctx context.Context, key, defaultValue string) (string, error)
	GetStringSet(ctx context.Context, key string) ([]string, error)

	// RecordAnalysis adds record.ImagePath to the ImagePathsKey set and maps it to
	// record.ResultPath in a single atomic write.
	RecordAnalysis(ctx context.Context, record Record) error
	// Records returns every member of the ImagePathsKey set with its mapping.
	// Members without a mapping are returned with an empty ResultPath.
	Records(ctx context.Context) ([]Record, error)
	// DeleteRecord removes the image path from the set together with its mapping.
	DeleteRecord(ctx context.Context, imagePath string) error

	Ping(ctx context.Context) error
	Close() error
}
