package preferences

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	stringsBucket  = "Preferences" // key -> string value
	setsBucket     = "StringSets"  // key -> nested bucket of members
	capturedBucket = "CapturedAt"  // image path -> unix nano
)

// BoltStore keeps preferences in a single bbolt file, the closest thing to a
// platform preferences file.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt database path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{stringsBucket, setsBucket, capturedBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) GetString(ctx context.Context, key, defaultValue string) (string, error) {
	if err := ctx.Err(); err != nil {
		return defaultValue, err
	}
	value := defaultValue
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(stringsBucket)).Get([]byte(key)); v != nil {
			value = string(v)
		}
		return nil
	})
	return value, err
}

func (s *BoltStore) GetStringSet(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	members := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		set := tx.Bucket([]byte(setsBucket)).Bucket([]byte(key))
		if set == nil {
			return nil
		}
		return set.ForEach(func(k, _ []byte) error {
			members = append(members, string(k))
			return nil
		})
	})
	return members, err
}

func addMember(tx *bolt.Tx, key, member string) error {
	set, err := tx.Bucket([]byte(setsBucket)).CreateBucketIfNotExists([]byte(key))
	if err != nil {
		return err
	}
	return set.Put([]byte(member), []byte{})
}

func (s *BoltStore) RecordAnalysis(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := addMember(tx, ImagePathsKey, record.ImagePath); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(stringsBucket)).Put([]byte(record.ImagePath), []byte(record.ResultPath)); err != nil {
			return err
		}
		unixNano := strconv.FormatInt(record.CapturedAt.UnixNano(), 10)
		return tx.Bucket([]byte(capturedBucket)).Put([]byte(record.ImagePath), []byte(unixNano))
	})
}

func (s *BoltStore) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := []Record{}
	err := s.db.View(func(tx *bolt.Tx) error {
		set := tx.Bucket([]byte(setsBucket)).Bucket([]byte(ImagePathsKey))
		if set == nil {
			return nil
		}
		strs := tx.Bucket([]byte(stringsBucket))
		captured := tx.Bucket([]byte(capturedBucket))
		return set.ForEach(func(k, _ []byte) error {
			record := Record{ImagePath: string(k)}
			if v := strs.Get(k); v != nil {
				record.ResultPath = string(v)
			}
			if v := captured.Get(k); v != nil {
				if unixNano, err := strconv.ParseInt(string(v), 10, 64); err == nil && unixNano != 0 {
					record.CapturedAt = time.Unix(0, unixNano)
				}
			}
			records = append(records, record)
			return nil
		})
	})
	return records, err
}

func (s *BoltStore) DeleteRecord(ctx context.Context, imagePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if set := tx.Bucket([]byte(setsBucket)).Bucket([]byte(ImagePathsKey)); set != nil {
			if err := set.Delete([]byte(imagePath)); err != nil {
				return err
			}
		}
		if err := tx.Bucket([]byte(stringsBucket)).Delete([]byte(imagePath)); err != nil {
			return err
		}
		return tx.Bucket([]byte(capturedBucket)).Delete([]byte(imagePath))
	})
}

func (s *BoltStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(stringsBucket)) == nil {
			return fmt.Errorf("bucket %s missing", stringsBucket)
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
