// Package browser provides typed wrappers over the host's browser
// automation commands, plus parsing of element dumps and page captures.
package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/treeline-labs/treeline/internal/client"
)

// Automation drives the host's browser through the /server/web commands.
type Automation struct {
	client *client.Client
}

// New creates an Automation bound to a host client.
func New(c *client.Client) *Automation {
	return &Automation{client: c}
}

// Element is one entry of a dump_elements response.
type Element struct {
	Tag      string `json:"tag"`
	ID       string `json:"id,omitempty"`
	Text     string `json:"text,omitempty"`
	Selector string `json:"selector,omitempty"`
	Visible  bool   `json:"visible"`
}

// PageInfo describes the currently loaded page.
type PageInfo struct {
	URL   string
	Title string
	// HTML is the captured page source, when the host includes it.
	HTML string
}

// NavigateToURL loads a URL in the host browser.
func (a *Automation) NavigateToURL(ctx context.Context, url string) (*client.WebResponse, error) {
	return a.client.WebCommand(ctx, "navigate_to_url", map[string]any{"url": url})
}

// ClickElement clicks the element matching the selector.
func (a *Automation) ClickElement(ctx context.Context, selector string) (*client.WebResponse, error) {
	return a.client.WebCommand(ctx, "click_element", map[string]any{"selector": selector})
}

// InputText types text into the element matching the selector.
func (a *Automation) InputText(ctx context.Context, selector, text string) (*client.WebResponse, error) {
	return a.client.WebCommand(ctx, "input_text", map[string]any{"selector": selector, "text": text})
}

// TapXY taps at page coordinates.
func (a *Automation) TapXY(ctx context.Context, x, y int) (*client.WebResponse, error) {
	return a.client.WebCommand(ctx, "tap_x_y", map[string]any{"x": x, "y": y})
}

// FindElement looks up a single element by selector.
func (a *Automation) FindElement(ctx context.Context, selector string) (*Element, error) {
	resp, err := a.client.WebCommand(ctx, "find_element", map[string]any{"selector": selector})
	if err != nil {
		return nil, err
	}

	var el Element
	if err := json.Unmarshal(resp.Result, &el); err != nil {
		return nil, fmt.Errorf("browser: decoding find_element result: %w", err)
	}
	return &el, nil
}

// DumpElements returns the host's flattened element listing for the current
// page.
func (a *Automation) DumpElements(ctx context.Context) ([]Element, error) {
	resp, err := a.client.WebCommand(ctx, "dump_elements", nil)
	if err != nil {
		return nil, err
	}

	var els []Element
	if err := json.Unmarshal(resp.Result, &els); err != nil {
		return nil, fmt.Errorf("browser: decoding dump_elements result: %w", err)
	}
	return els, nil
}

// GetPageInfo fetches the current page's URL, title and (optionally) source.
func (a *Automation) GetPageInfo(ctx context.Context) (*PageInfo, error) {
	resp, err := a.client.WebCommand(ctx, "get_page_info", nil)
	if err != nil {
		return nil, err
	}

	info := &PageInfo{URL: resp.URL, Title: resp.Title}
	if len(resp.Result) > 0 {
		var payload struct {
			HTML string `json:"html"`
		}
		if err := json.Unmarshal(resp.Result, &payload); err == nil {
			info.HTML = payload.HTML
		}
	}
	return info, nil
}
