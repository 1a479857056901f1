package garden

import (
	"context"
	"fmt"
	"log/slog"
)

// Messages shown to the user while a capture is processed
const (
	ToastCaptured      = "Image captured successfully and sent to backend!"
	ToastCaptureFailed = "Image capture failed!"
	ToastSendFailed    = "Failed to send image for analysis."
	ToastParseFailed   = "Error parsing analysis result."
)

// StatusToast is shown when the analysis endpoint answers with a non-2xx status
func StatusToast(statusCode int) string {
	return fmt.Sprintf("Error: %d", statusCode)
}

// Notifier delivers short transient messages to the user
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) {
	f(ctx, message)
}

func notify(ctx context.Context, notifier Notifier, message string) {
	slog.Info("user notification", "message", message)
	if notifier != nil {
		notifier.Notify(ctx, message)
	}
}
