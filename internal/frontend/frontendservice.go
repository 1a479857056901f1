package frontend

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/jo-hoe/plantaid/internal/common"
	"github.com/jo-hoe/plantaid/internal/config"
	"github.com/jo-hoe/plantaid/internal/garden"
	"github.com/jo-hoe/plantaid/internal/imageprocessing"
	"github.com/jo-hoe/plantaid/internal/navigation"
	"github.com/jo-hoe/plantaid/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	// ToastHeader carries user notifications of a request, one header value per message
	ToastHeader = "X-Plantaid-Toast"
	mimePNG     = "image/png"
	mimeJPEG    = "image/jpeg"
)

type FrontendService struct {
	garden   *garden.Service
	config   *config.ServiceConfig
	markdown goldmark.Markdown
}

func NewFrontendService(config *config.ServiceConfig, gardenService *garden.Service) *FrontendService {
	return &FrontendService{
		garden: gardenService,
		config: config,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
			),
		),
	}
}

type navRequest struct {
	Current  string `query:"current" validate:"required,oneof=home garden camera result"`
	Selected string `query:"selected" validate:"omitempty,oneof=home garden camera"`
	Last     string `query:"last" validate:"omitempty,oneof=home garden camera"`
	Camera   bool   `query:"camera"`
}

type resultRequest struct {
	ImagePath      string `query:"imagePath" validate:"required"`
	AnalysisResult string `query:"analysisResult"`
	Last           string `query:"last" validate:"omitempty,oneof=home garden camera"`
}

type imageRequest struct {
	Path  string `query:"path" validate:"required"`
	Thumb bool   `query:"thumb"`
}

type deleteRequest struct {
	ImagePath string `query:"imagePath" validate:"required"`
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = NewTemplate()
	if e.Validator == nil {
		e.Validator = &common.GenericEchoValidator{}
	}

	e.GET("/", service.rootRedirectHandler)
	e.GET("/home", service.screenHandler(navigation.ScreenHome))
	e.GET("/camera", service.screenHandler(navigation.ScreenCamera))
	e.POST("/capture", service.captureHandler)

	e.GET("/garden", service.gardenHandler)
	e.DELETE("/garden", service.deleteHandler)
	e.GET("/result", service.resultHandler)
	e.GET("/image", service.imageHandler)
	e.GET("/nav", service.navHandler)

	e.GET("/probe", service.probeHandler)
	e.GET("/icon.svg", service.iconHandler)
}

// rootRedirectHandler redirects root path to the home screen
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+string(navigation.ScreenHome))
}

func (service *FrontendService) screenHandler(screen navigation.Screen) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		state := service.navigationState(ctx, screen)
		return ctx.Render(http.StatusOK, string(screen), newPage(screen, state, nil))
	}
}

func (service *FrontendService) captureHandler(ctx echo.Context) error {
	state := service.navigationState(ctx, navigation.ScreenCamera)

	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Error("captureHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return service.toastString(ctx, http.StatusBadRequest, garden.ToastCaptureFailed)
	}
	src, err := file.Open()
	if err != nil {
		slog.Error("captureHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return service.toastString(ctx, http.StatusInternalServerError, garden.ToastCaptureFailed)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("captureHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	toasts := &toastCollector{}
	view, err := service.garden.CaptureAndAnalyze(ctx.Request().Context(), src, toasts)
	service.setToastHeaders(ctx, toasts.Messages())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, garden.ErrCaptureFailed), errors.Is(err, garden.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, upload.ErrResponseBody):
			status = http.StatusBadGateway
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		slog.Error("captureHandler: capture flow failed",
			"status", status, "error", err, "filename", file.Filename)
		return ctx.Render(status, "camera", newPage(navigation.ScreenCamera, state, toasts.Messages()))
	}

	return service.renderResult(ctx, http.StatusOK, view, state, toasts.Messages())
}

func (service *FrontendService) gardenHandler(ctx echo.Context) error {
	state := service.navigationState(ctx, navigation.ScreenGarden)
	entries, err := service.garden.List(ctx.Request().Context())
	if err != nil {
		slog.Error("gardenHandler: failed to list garden",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list garden")
	}

	data := newPage(navigation.ScreenGarden, state, nil)
	data.Entries = toGardenEntries(entries, state.LastSelected)

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "garden", data)
}

func (service *FrontendService) deleteHandler(ctx echo.Context) error {
	var request deleteRequest
	if err := service.bind(ctx, &request); err != nil {
		slog.Warn("deleteHandler: invalid request", "status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Missing image path")
	}

	if err := service.garden.Delete(ctx.Request().Context(), request.ImagePath); err != nil {
		if errors.Is(err, garden.ErrNotFound) {
			slog.Warn("deleteHandler: image not found", "status", http.StatusNotFound, "image", request.ImagePath)
			return ctx.String(http.StatusNotFound, "Image not found")
		}
		slog.Error("deleteHandler: failed to delete image",
			"status", http.StatusInternalServerError, "image", request.ImagePath, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to delete image")
	}

	entries, err := service.garden.List(ctx.Request().Context())
	if err != nil {
		slog.Error("deleteHandler: failed to list garden after delete",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list garden")
	}

	state := service.navigationState(ctx, navigation.ScreenGarden)
	data := newPage(navigation.ScreenGarden, state, nil)
	data.Entries = toGardenEntries(entries, state.LastSelected)

	// Return the list to swap into #garden-list
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "garden-list", data)
}

func (service *FrontendService) resultHandler(ctx echo.Context) error {
	var request resultRequest
	if err := service.bind(ctx, &request); err != nil {
		slog.Warn("resultHandler: invalid request", "status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Missing image path")
	}
	state := service.navigationState(ctx, navigation.ScreenResult)

	// only the result file recorded for a garden image is ever read
	view, err := service.garden.Open(ctx.Request().Context(), request.ImagePath)
	if errors.Is(err, garden.ErrNotFound) {
		slog.Warn("resultHandler: image not found", "status", http.StatusNotFound, "image", request.ImagePath)
		return ctx.String(http.StatusNotFound, "Image not found")
	}
	if err != nil {
		slog.Error("resultHandler: failed to open result",
			"status", http.StatusInternalServerError, "image", request.ImagePath, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to open result")
	}
	if request.AnalysisResult != "" && filepath.Clean(request.AnalysisResult) != view.AnalysisResult {
		slog.Warn("resultHandler: result file does not belong to image",
			"status", http.StatusNotFound, "image", request.ImagePath, "analysis_result", request.AnalysisResult)
		return ctx.String(http.StatusNotFound, "Result not found")
	}

	return service.renderResult(ctx, http.StatusOK, view, state, nil)
}

func (service *FrontendService) renderResult(ctx echo.Context, status int, view garden.ResultView, state navigation.State, toasts []string) error {
	var buf bytes.Buffer
	if err := service.markdown.Convert([]byte(view.Text), &buf); err != nil {
		slog.Warn("renderResult: failed to render analysis result as markdown", "error", err)
		buf.Reset()
		buf.WriteString(template.HTMLEscapeString(view.Text))
	}

	data := newPage(navigation.ScreenResult, state, toasts)
	data.Result = &resultPage{
		Name:     view.ImagePath,
		ImageURL: imageURL(view.ImagePath, false),
		HTML:     template.HTML(buf.String()),
	}
	service.setNoCache(ctx)
	return ctx.Render(status, "result", data)
}

func (service *FrontendService) imageHandler(ctx echo.Context) error {
	var request imageRequest
	if err := service.bind(ctx, &request); err != nil {
		slog.Warn("imageHandler: invalid request", "status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Missing image path")
	}

	known, err := service.garden.Contains(ctx.Request().Context(), request.Path)
	if err != nil {
		slog.Error("imageHandler: failed to read garden", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to read garden")
	}
	if !known {
		slog.Warn("imageHandler: image not in garden", "status", http.StatusNotFound, "path", request.Path)
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	data, err := os.ReadFile(request.Path)
	if err != nil {
		slog.Warn("imageHandler: image file not readable, serving placeholder", "path", request.Path, "error", err)
		return service.placeholder(ctx)
	}

	service.setNoCache(ctx)
	if !request.Thumb {
		return ctx.Blob(http.StatusOK, http.DetectContentType(data), data)
	}

	thumbnail, err := imageprocessing.Thumbnail(data, service.config.ThumbnailWidth)
	if err != nil {
		slog.Warn("imageHandler: thumbnail not available, serving placeholder", "path", request.Path, "error", err)
		return service.placeholder(ctx)
	}
	return ctx.Blob(http.StatusOK, mimeJPEG, thumbnail)
}

func (service *FrontendService) placeholder(ctx echo.Context) error {
	width := service.config.ThumbnailWidth
	data, err := imageprocessing.Placeholder(width, width*4/3)
	if err != nil {
		slog.Error("placeholder: failed to render placeholder", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to render placeholder")
	}
	return ctx.Blob(http.StatusOK, mimePNG, data)
}

func (service *FrontendService) navHandler(ctx echo.Context) error {
	var request navRequest
	if err := service.bind(ctx, &request); err != nil || (!request.Camera && request.Selected == "") {
		slog.Warn("navHandler: invalid params", "current", request.Current, "selected", request.Selected, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid parameters")
	}

	current, _ := navigation.ParseScreen(request.Current)
	state := navigation.Init(navigation.State{LastSelected: navigation.Tab(request.Last)}, navigation.TabFor(current))

	var transition *navigation.Transition
	if request.Camera {
		state, transition = navigation.ResolveCamera(state, current)
	} else {
		state, transition = navigation.Resolve(state, current, navigation.Tab(request.Selected))
	}

	if transition == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.Redirect(http.StatusSeeOther, screenURL(transition.To, state.LastSelected))
}

func (service *FrontendService) probeHandler(ctx echo.Context) error {
	if err := service.garden.Ping(ctx.Request().Context()); err != nil {
		slog.Error("probeHandler: preferences store not reachable", "status", http.StatusServiceUnavailable, "error", err)
		return ctx.String(http.StatusServiceUnavailable, "Unavailable")
	}
	return ctx.String(http.StatusOK, "OK")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", imageprocessing.PlaceholderSVG())
}

// navigationState reads the last selected tab carried in the query and initializes it for screen
func (service *FrontendService) navigationState(ctx echo.Context, screen navigation.Screen) navigation.State {
	state := navigation.State{}
	if last, err := navigation.ParseTab(ctx.QueryParam("last")); err == nil {
		state.LastSelected = last
	}
	return navigation.Init(state, navigation.TabFor(screen))
}

func (service *FrontendService) bind(ctx echo.Context, request interface{}) error {
	if err := ctx.Bind(request); err != nil {
		return err
	}
	return ctx.Validate(request)
}

func (service *FrontendService) toastString(ctx echo.Context, status int, message string) error {
	service.setToastHeaders(ctx, []string{message})
	return ctx.String(status, message)
}

func (service *FrontendService) setToastHeaders(ctx echo.Context, messages []string) {
	for _, message := range messages {
		ctx.Response().Header().Add(ToastHeader, message)
	}
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

// toastCollector gathers the notifications of one request
type toastCollector struct {
	mu       sync.Mutex
	messages []string
}

func (c *toastCollector) Notify(_ context.Context, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
}

func (c *toastCollector) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}
