package frontend

import (
	"html/template"
	"net/url"
	"path/filepath"
	"time"

	"github.com/jo-hoe/plantaid/internal/garden"
	"github.com/jo-hoe/plantaid/internal/navigation"
)

type page struct {
	Title   string
	Screen  navigation.Screen
	Last    navigation.Tab
	Toasts  []string
	Entries []gardenEntry
	Result  *resultPage
}

type gardenEntry struct {
	Name         string
	Text         string
	Captured     string
	ResultURL    string
	ThumbnailURL string
	DeleteURL    string
}

type resultPage struct {
	Name     string
	ImageURL string
	HTML     template.HTML
}

var screenTitles = map[navigation.Screen]string{
	navigation.ScreenHome:   "Plant Aid",
	navigation.ScreenGarden: "My Garden",
	navigation.ScreenCamera: "Camera",
	navigation.ScreenResult: "Analysis Result",
}

func newPage(screen navigation.Screen, state navigation.State, toasts []string) page {
	return page{
		Title:  screenTitles[screen],
		Screen: screen,
		Last:   state.LastSelected,
		Toasts: toasts,
	}
}

func screenURL(screen navigation.Screen, last navigation.Tab) string {
	query := url.Values{}
	if last != navigation.TabNone {
		query.Set("last", string(last))
	}
	if len(query) == 0 {
		return "/" + string(screen)
	}
	return "/" + string(screen) + "?" + query.Encode()
}

func resultURL(view garden.ResultView, last navigation.Tab) string {
	query := url.Values{}
	query.Set("imagePath", view.ImagePath)
	query.Set("analysisResult", view.AnalysisResult)
	if last != navigation.TabNone {
		query.Set("last", string(last))
	}
	return "/result?" + query.Encode()
}

func imageURL(path string, thumbnail bool) string {
	query := url.Values{}
	query.Set("path", path)
	if thumbnail {
		query.Set("thumb", "1")
	}
	return "/image?" + query.Encode()
}

func toGardenEntries(entries []garden.Entry, last navigation.Tab) []gardenEntry {
	result := make([]gardenEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, gardenEntry{
			Name:         filepath.Base(entry.ImagePath),
			Text:         entry.Text,
			Captured:     formatCaptured(entry.CapturedAt),
			ResultURL:    resultURL(garden.ResultView{ImagePath: entry.ImagePath, AnalysisResult: entry.ResultPath}, last),
			ThumbnailURL: imageURL(entry.ImagePath, true),
			DeleteURL:    "/garden?" + url.Values{"imagePath": {entry.ImagePath}}.Encode(),
		})
	}
	return result
}

func formatCaptured(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04")
}
