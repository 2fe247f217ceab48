package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/wallet-dashboard/internal/config"
)

// proxyRequest is the body the request proxy expects. The proxy performs the
// upstream call and relays its status code and body unchanged.
type proxyRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

const maxBodyBytes = 4 << 20

// call performs one upstream GET through the proxy and returns the decoded
// JSON object. Every failure comes back as an *UpstreamError.
func (c *Client) call(ctx context.Context, op string, settings config.WalletSettings, target string) (map[string]any, error) {
	if settings.ProxyURL == "" {
		return nil, &UpstreamError{Op: op, Kind: KindNetwork, Message: "request proxy URL is not configured"}
	}
	if settings.Token == "" {
		return nil, &UpstreamError{Op: op, Kind: KindAuth, Message: "wallet token is not configured"}
	}
	if target == "" {
		return nil, &UpstreamError{Op: op, Kind: KindNetwork, Message: "upstream URL is not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(proxyRequest{
		URL:    target,
		Method: http.MethodGet,
		Headers: map[string]string{
			"Authorization": "Bearer " + settings.Token,
		},
	})
	if err != nil {
		return nil, &UpstreamError{Op: op, Kind: KindNetwork, Message: "encode proxy request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.ProxyURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &UpstreamError{Op: op, Kind: KindNetwork, Message: "build proxy request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(ctx, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Op:         op,
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    snippet(body),
		}
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &UpstreamError{Op: op, Kind: KindMalformed, StatusCode: resp.StatusCode, Message: "response is not a JSON object", Err: err}
	}
	return decoded, nil
}

func transportError(ctx context.Context, op string, err error) *UpstreamError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Op: op, Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &UpstreamError{Op: op, Kind: KindTimeout, Err: err}
	}
	return &UpstreamError{Op: op, Kind: KindNetwork, Err: err}
}

// snippet keeps at most 200 characters of an error body, cutting on a rune
// boundary.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(s) > 200 {
		s = string([]rune(s)[:200]) + "..."
	}
	return s
}
