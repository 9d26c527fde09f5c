package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout = 20 * time.Second

	// Pinned to stabilize vendor responses.
	acceptLanguage = "en-US,en;q=0.9"
	userAgent      = "Mozilla/5.0"

	snippetBytes = 200
	maxBodyBytes = 50 * 1024 * 1024
)

// Client issues single GETs against the scraping vendor and classifies the
// outcome. The vendor takes the target page URL as a query parameter and
// returns parsed page JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
}

func NewClient(baseURL string, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    timeout,
	}
}

// ScrapeURL builds the vendor request URL for one marketplace page, e.g.
// ScrapeURL(".ca", "/dp/B000000000").
func (c *Client) ScrapeURL(tld string, path string) string {
	target := "https://www.amazon" + tld + path
	return c.baseURL + "?api_key=" + url.QueryEscape(c.apiKey) + "&autoparse=true&url=" + url.QueryEscape(target)
}

// FetchJSON performs one GET with the fixed timeout and returns the raw JSON
// body. Every failure is reported as a classified *Error.
func (c *Client) FetchJSON(ctx context.Context, requestURL string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, URL: requestURL, cause: err}
	}
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), URL: requestURL, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, snippetBytes))
		return nil, &Error{
			Kind:    classifyStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			URL:     requestURL,
			Snippet: string(snippet),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), URL: requestURL, cause: err}
	}
	if !json.Valid(body) {
		return nil, &Error{Kind: KindUnknown, URL: requestURL, Snippet: snippetOf(body)}
	}
	return json.RawMessage(body), nil
}

func snippetOf(body []byte) string {
	if len(body) > snippetBytes {
		body = body[:snippetBytes]
	}
	return string(body)
}
