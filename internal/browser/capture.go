package browser

import (
	"context"
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// PageCapture is a page snapshot rendered to Markdown for inclusion in
// validation reports.
type PageCapture struct {
	URL      string
	Title    string
	Markdown string
}

// CapturePage fetches the current page and converts its source to Markdown.
// Pages without a source payload yield a capture with URL and title only.
func (a *Automation) CapturePage(ctx context.Context) (*PageCapture, error) {
	info, err := a.GetPageInfo(ctx)
	if err != nil {
		return nil, err
	}

	capture := &PageCapture{URL: info.URL, Title: info.Title}
	if info.HTML == "" {
		return capture, nil
	}

	md, err := htmltomarkdown.ConvertString(info.HTML)
	if err != nil {
		return nil, fmt.Errorf("browser: converting page capture: %w", err)
	}
	capture.Markdown = md
	return capture, nil
}
