// Package sheets appends rows to a spreadsheet through an Apps Script web
// app webhook.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Sheet names the webhook routes rows to.
const (
	SheetRegistrations = "ユーザー登録"
	SheetSearches      = "検索一覧"
	SheetInquiries     = "問い合わせ"
)

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = eris.New("sheets: webhook url not configured")

// Client appends rows to named sheets.
type Client interface {
	Append(ctx context.Context, row Row) error
}

// Row is the webhook payload: one row for one sheet.
type Row struct {
	SheetName string `json:"sheetName"`
	Values    []any  `json:"values"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	url  string
	http *http.Client
}

// NewClient creates a webhook client. An empty url yields a client whose
// Append always returns ErrNotConfigured.
func NewClient(url string, opts ...Option) Client {
	c := &httpClient{
		url: url,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Append(ctx context.Context, row Row) error {
	if c.url == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(row)
	if err != nil {
		return eris.Wrap(err, "sheets: marshal row")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "sheets: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "sheets: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.Errorf("sheets: unexpected status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
