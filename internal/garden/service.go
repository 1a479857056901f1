// Package garden runs the capture, preprocess, upload and record flow and lists
// the analyzed images.
package garden

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jo-hoe/plantaid/internal/capture"
	"github.com/jo-hoe/plantaid/internal/imageprocessing"
	"github.com/jo-hoe/plantaid/internal/preferences"
	"github.com/jo-hoe/plantaid/internal/results"
	"github.com/jo-hoe/plantaid/internal/upload"
)

// Entry is one analyzed image of the garden
type Entry struct {
	ImagePath  string
	ResultPath string
	Text       string
	CapturedAt time.Time
}

// ResultView carries the navigation parameters of the result screen and the text read from the result file
type ResultView struct {
	ImagePath      string
	AnalysisResult string
	Text           string
}

type Dependencies struct {
	Store        preferences.Store
	Capturer     *capture.Capturer
	Worker       *capture.Worker
	Preprocessor *imageprocessing.Preprocessor
	Analyzer     upload.Analyzer
	ResultsDir   string
}

type Service struct {
	store        preferences.Store
	capturer     *capture.Capturer
	worker       *capture.Worker
	preprocessor *imageprocessing.Preprocessor
	analyzer     upload.Analyzer
	resultsDir   string
	now          func() time.Time
}

func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	case deps.Capturer == nil:
		return nil, fmt.Errorf("%w: capturer is required", ErrInvalidInput)
	case deps.Worker == nil:
		return nil, fmt.Errorf("%w: worker is required", ErrInvalidInput)
	case deps.Preprocessor == nil:
		return nil, fmt.Errorf("%w: preprocessor is required", ErrInvalidInput)
	case deps.Analyzer == nil:
		return nil, fmt.Errorf("%w: analyzer is required", ErrInvalidInput)
	case deps.ResultsDir == "":
		return nil, fmt.Errorf("%w: results directory is required", ErrInvalidInput)
	}
	return &Service{
		store:        deps.Store,
		capturer:     deps.Capturer,
		worker:       deps.Worker,
		preprocessor: deps.Preprocessor,
		analyzer:     deps.Analyzer,
		resultsDir:   deps.ResultsDir,
		now:          time.Now,
	}, nil
}

// WithClock replaces the clock used for capture times and placeholder results
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CaptureAndAnalyze captures the photo read from src, preprocesses it, sends it for analysis
// and records the outcome. Network failures and non-2xx answers are recorded with a
// placeholder text and do not fail the flow.
func (s *Service) CaptureAndAnalyze(ctx context.Context, src io.Reader, notifier Notifier) (ResultView, error) {
	return s.captureAndAnalyze(ctx, func(ctx context.Context) (string, error) {
		return s.capturer.Capture(ctx, src)
	}, notifier)
}

// CaptureFile runs CaptureAndAnalyze for the photo at path
func (s *Service) CaptureFile(ctx context.Context, path string, notifier Notifier) (ResultView, error) {
	return s.captureAndAnalyze(ctx, func(ctx context.Context) (string, error) {
		return s.capturer.CaptureFile(ctx, path)
	}, notifier)
}

func (s *Service) captureAndAnalyze(ctx context.Context, captureFn capture.Job, notifier Notifier) (ResultView, error) {
	processedPath, err := s.capture(ctx, captureFn)
	if err != nil {
		if ctx.Err() == nil {
			notify(ctx, notifier, ToastCaptureFailed)
		}
		return ResultView{}, err
	}
	notify(ctx, notifier, ToastCaptured)

	text, err := s.analyze(ctx, processedPath, notifier)
	if err != nil {
		return ResultView{}, err
	}

	if _, err := s.RecordAnalysis(ctx, processedPath, text); err != nil {
		return ResultView{}, err
	}
	return s.Open(ctx, processedPath)
}

// capture stores, rotates and preprocesses the photo on the capture worker and returns
// the path of the file to upload
func (s *Service) capture(ctx context.Context, captureFn capture.Job) (string, error) {
	done := s.worker.Submit(ctx, func(ctx context.Context) (string, error) {
		capturedPath, err := captureFn(ctx)
		if err != nil {
			return "", err
		}
		if err := s.preprocessor.Rotate(capturedPath); err != nil {
			slog.Warn("failed to rotate captured image", "path", capturedPath, "error", err)
		}
		processedPath, err := s.preprocessor.Preprocess(capturedPath)
		if err != nil {
			slog.Warn("failed to preprocess captured image, uploading the original", "path", capturedPath, "error", err)
			return capturedPath, nil
		}
		return processedPath, nil
	})

	select {
	case result := <-done:
		if result.Err != nil {
			if errors.Is(result.Err, context.Canceled) || errors.Is(result.Err, context.DeadlineExceeded) {
				return "", result.Err
			}
			return "", fmt.Errorf("%w: %w", ErrCaptureFailed, result.Err)
		}
		return result.Path, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// analyze uploads the image and maps the outcome to the text that is recorded
func (s *Service) analyze(ctx context.Context, imagePath string, notifier Notifier) (string, error) {
	task := upload.Start(ctx, s.analyzer, imagePath)
	select {
	case <-task.Done():
	case <-ctx.Done():
		return "", ctx.Err()
	}

	text, err := task.Wait()
	if err == nil {
		return text, nil
	}

	var statusErr *upload.StatusError
	switch {
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.As(err, &statusErr):
		slog.Warn("analysis was not successful", "image", imagePath, "status", statusErr.StatusCode)
		notify(ctx, notifier, StatusToast(statusErr.StatusCode))
		return upload.NotSuccessfulResult, nil
	case errors.Is(err, upload.ErrResponseBody):
		slog.Error("failed to read analysis result", "image", imagePath, "error", err)
		notify(ctx, notifier, ToastParseFailed)
		return "", err
	case errors.Is(err, upload.ErrInvalidInput):
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case upload.IsNetworkError(err):
		slog.Warn("failed to send image for analysis", "image", imagePath, "error", err)
		notify(ctx, notifier, ToastSendFailed)
		return upload.PlaceholderResult(s.now()), nil
	default:
		slog.Error("failed to build analysis request", "image", imagePath, "error", err)
		notify(ctx, notifier, ToastSendFailed)
		return "", err
	}
}

// RecordAnalysis writes text to the result file of imagePath and adds the image to the garden.
// It returns the path of the result file.
func (s *Service) RecordAnalysis(ctx context.Context, imagePath, text string) (string, error) {
	if strings.TrimSpace(imagePath) == "" {
		return "", fmt.Errorf("%w: image path is required", ErrInvalidInput)
	}

	resultPath, err := results.Write(s.resultsDir, imagePath, text)
	if err != nil {
		return "", err
	}

	record := preferences.Record{
		ImagePath:  imagePath,
		ResultPath: resultPath,
		CapturedAt: s.now(),
	}
	if err := s.store.RecordAnalysis(ctx, record); err != nil {
		return "", fmt.Errorf("failed to record analysis for %s: %w", imagePath, err)
	}

	slog.Info("analysis recorded", "image", imagePath, "result_file", resultPath, "size_bytes", len(text))
	return resultPath, nil
}

// List returns every image of the garden, newest capture first
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	records, err := s.store.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list garden: %w", err)
	}

	entries := make([]Entry, 0, len(records))
	for _, record := range records {
		entry := Entry{
			ImagePath:  record.ImagePath,
			ResultPath: record.ResultPath,
			CapturedAt: record.CapturedAt,
		}
		if record.ResultPath != "" {
			entry.Text = results.Read(record.ResultPath)
		}
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := b.CapturedAt.Compare(a.CapturedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ImagePath, b.ImagePath)
	})
	return entries, nil
}

// Open resolves the navigation parameters of the result screen for imagePath
func (s *Service) Open(ctx context.Context, imagePath string) (ResultView, error) {
	if strings.TrimSpace(imagePath) == "" {
		return ResultView{}, fmt.Errorf("%w: image path is required", ErrInvalidInput)
	}

	resultPath, err := s.store.GetString(ctx, imagePath, "")
	if err != nil {
		return ResultView{}, fmt.Errorf("failed to look up result of %s: %w", imagePath, err)
	}
	if resultPath == "" {
		known, err := s.Contains(ctx, imagePath)
		if err != nil {
			return ResultView{}, err
		}
		if !known {
			return ResultView{}, fmt.Errorf("%w: %s", ErrNotFound, imagePath)
		}
	}
	return s.View(imagePath, resultPath), nil
}

// View reads the result file passed as navigation parameter. A missing file shows as empty text.
func (s *Service) View(imagePath, analysisResult string) ResultView {
	view := ResultView{ImagePath: imagePath, AnalysisResult: analysisResult}
	if analysisResult != "" {
		view.Text = results.Read(analysisResult)
	}
	return view
}

// Delete removes imagePath and its result file from the garden. The image itself is kept,
// as is a result file another garden image still maps to.
func (s *Service) Delete(ctx context.Context, imagePath string) error {
	if strings.TrimSpace(imagePath) == "" {
		return fmt.Errorf("%w: image path is required", ErrInvalidInput)
	}
	known, err := s.Contains(ctx, imagePath)
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrNotFound, imagePath)
	}

	resultPath, err := s.store.GetString(ctx, imagePath, "")
	if err != nil {
		return fmt.Errorf("failed to look up result of %s: %w", imagePath, err)
	}
	if err := s.store.DeleteRecord(ctx, imagePath); err != nil {
		return fmt.Errorf("failed to delete %s: %w", imagePath, err)
	}
	if resultPath != "" {
		s.removeResultFile(ctx, resultPath)
	}

	slog.Info("garden entry deleted", "image", imagePath)
	return nil
}

// removeResultFile deletes resultPath unless another image still maps to it.
// Result files are named after the image's base name, so images from different
// directories can share one.
func (s *Service) removeResultFile(ctx context.Context, resultPath string) {
	records, err := s.store.Records(ctx)
	if err != nil {
		slog.Warn("failed to check result file usage, keeping it", "path", resultPath, "error", err)
		return
	}
	for _, record := range records {
		if record.ResultPath == resultPath {
			slog.Debug("result file still in use, keeping it", "path", resultPath, "image", record.ImagePath)
			return
		}
	}
	if err := results.Remove(resultPath); err != nil {
		slog.Warn("failed to remove result file", "path", resultPath, "error", err)
	}
}

// Ping checks that the preferences store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close stops the capture worker and closes the preferences store
func (s *Service) Close() error {
	s.worker.Shutdown()
	return s.store.Close()
}

// Contains reports whether imagePath is part of the garden
func (s *Service) Contains(ctx context.Context, imagePath string) (bool, error) {
	members, err := s.store.GetStringSet(ctx, preferences.ImagePathsKey)
	if err != nil {
		return false, fmt.Errorf("failed to read garden: %w", err)
	}
	return slices.Contains(members, imagePath), nil
}
