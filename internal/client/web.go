package client

import (
	"context"
	"encoding/json"
)

// WebResponse is the host's command/response envelope for browser automation.
type WebResponse struct {
	Success       bool            `json:"success"`
	URL           string          `json:"url,omitempty"`
	Title         string          `json:"title,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
	ExecutionTime float64         `json:"execution_time"`
}

// WebCommand issues a Playwright-style browser automation command on the
// host. Command parameters are command-specific and passed through verbatim.
func (c *Client) WebCommand(ctx context.Context, command string, params map[string]any) (*WebResponse, error) {
	op := "/server/web/" + command

	if params == nil {
		params = map[string]any{}
	}

	var resp WebResponse
	if err := c.postJSON(ctx, op, params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, backendError(op, resp.Error)
	}
	return &resp, nil
}
