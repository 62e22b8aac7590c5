package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portalsync/internal/portal"
)

// HTTPError is a non-retryable error response from the CMS.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the CMS.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// listResponse is the envelope of every collection endpoint.
type listResponse[T any] struct {
	Value []T `json:"value"`
}

// HTTPClient talks to the CMS REST API. 429 and 5xx responses and transport
// errors are retried with exponential backoff, honoring Retry-After.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	ids        portal.IDGenerator
	logger     portal.Logger
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// HTTPOptions tunes an HTTPClient. Zero values select the defaults.
type HTTPOptions struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func NewHTTPClient(baseURL, token string, opts HTTPOptions, ids portal.IDGenerator, logger portal.Logger) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 200 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: opts.Timeout},
		ids:        ids,
		logger:     logger,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		maxDelay:   opts.MaxDelay,
	}
}

var _ portal.RemoteClient = (*HTTPClient)(nil)

func portalPath(portalID string, parts ...string) string {
	p := "/api/portals/" + url.PathEscape(portalID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *HTTPClient) ListPortals(ctx context.Context) ([]portal.Portal, error) {
	var out listResponse[portal.Portal]
	if err := c.doJSON(ctx, http.MethodGet, "/api/portals", nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *HTTPClient) ListLanguages(ctx context.Context, portalID string) ([]portal.Language, error) {
	var out listResponse[portal.Language]
	if err := c.doJSON(ctx, http.MethodGet, portalPath(portalID, "languages"), nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *HTTPClient) PublishedStateID(ctx context.Context, portalID string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodGet, portalPath(portalID, "publishing-states", "published"), nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *HTTPClient) ListWebTemplates(ctx context.Context, portalID string) ([]*portal.WebTemplate, error) {
	var out listResponse[*portal.WebTemplate]
	if err := c.doJSON(ctx, http.MethodGet, portalPath(portalID, "web-templates"), nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *HTTPClient) ListContentSnippets(ctx context.Context, portalID string) ([]*portal.ContentSnippet, error) {
	var out listResponse[*portal.ContentSnippet]
	if err := c.doJSON(ctx, http.MethodGet, portalPath(portalID, "content-snippets"), nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *HTTPClient) ListWebPages(ctx context.Context, portalID string) ([]*portal.WebPage, error) {
	var out listResponse[*portal.WebPage]
	if err := c.doJSON(ctx, http.MethodGet, portalPath(portalID, "web-pages"), nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *HTTPClient) ListWebFiles(ctx context.Context, portalID string) ([]*portal.WebFile, error) {
	var out listResponse[*portal.WebFile]
	if err := c.doJSON(ctx, http.MethodGet, portalPath(portalID, "web-files"), nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *HTTPClient) ListPageTemplates(ctx context.Context, portalID string) ([]portal.PageTemplate, error) {
	var out listResponse[portal.PageTemplate]
	if err := c.doJSON(ctx, http.MethodGet, portalPath(portalID, "page-templates"), nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *HTTPClient) CreateWebTemplate(ctx context.Context, portalID string, t *portal.WebTemplate) (*portal.WebTemplate, error) {
	if err := ValidateRecord(KindWebTemplate, t); err != nil {
		return nil, err
	}
	var out portal.WebTemplate
	if err := c.doJSON(ctx, http.MethodPost, portalPath(portalID, "web-templates"), t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateWebTemplate(ctx context.Context, portalID string, t *portal.WebTemplate) (*portal.WebTemplate, error) {
	if err := ValidateRecord(KindWebTemplate, t); err != nil {
		return nil, err
	}
	var out portal.WebTemplate
	if err := c.doJSON(ctx, http.MethodPut, portalPath(portalID, "web-templates", t.ID), t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteWebTemplate(ctx context.Context, portalID, id string) error {
	return c.doJSON(ctx, http.MethodDelete, portalPath(portalID, "web-templates", id), nil, nil)
}

func (c *HTTPClient) CreateContentSnippet(ctx context.Context, portalID string, s *portal.ContentSnippet) (*portal.ContentSnippet, error) {
	if err := ValidateRecord(KindContentSnippet, s); err != nil {
		return nil, err
	}
	var out portal.ContentSnippet
	if err := c.doJSON(ctx, http.MethodPost, portalPath(portalID, "content-snippets"), s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateContentSnippet(ctx context.Context, portalID string, s *portal.ContentSnippet) (*portal.ContentSnippet, error) {
	if err := ValidateRecord(KindContentSnippet, s); err != nil {
		return nil, err
	}
	var out portal.ContentSnippet
	if err := c.doJSON(ctx, http.MethodPut, portalPath(portalID, "content-snippets", s.ID), s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteContentSnippet(ctx context.Context, portalID, id string) error {
	return c.doJSON(ctx, http.MethodDelete, portalPath(portalID, "content-snippets", id), nil, nil)
}

func (c *HTTPClient) CreateWebPage(ctx context.Context, portalID string, p *portal.WebPage) (*portal.WebPage, error) {
	if err := ValidateRecord(KindWebPage, p); err != nil {
		return nil, err
	}
	var out portal.WebPage
	if err := c.doJSON(ctx, http.MethodPost, portalPath(portalID, "web-pages"), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UploadWebFile(ctx context.Context, portalID string, f *portal.WebFile) (*portal.WebFile, error) {
	body := wireFile(f)
	if err := ValidateRecord(KindWebFile, body); err != nil {
		return nil, err
	}
	var out portal.WebFile
	if err := c.doJSON(ctx, http.MethodPost, portalPath(portalID, "web-files"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateWebFile(ctx context.Context, portalID string, f *portal.WebFile) (*portal.WebFile, error) {
	body := wireFile(f)
	if err := ValidateRecord(KindWebFile, body); err != nil {
		return nil, err
	}
	var out portal.WebFile
	if err := c.doJSON(ctx, http.MethodPut, portalPath(portalID, "web-files", f.ID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteWebFile(ctx context.Context, portalID, id, annotationID string) error {
	q := url.Values{}
	q.Set("annotationId", annotationID)
	return c.doJSON(ctx, http.MethodDelete, portalPath(portalID, "web-files", id)+"?"+q.Encode(), nil, nil)
}

// wireFile strips local-only fields before a web file is sent.
func wireFile(f *portal.WebFile) *portal.WebFile {
	out := *f
	out.Folder = ""
	return &out
}

func (c *HTTPClient) doJSON(ctx context.Context, method, requestPath string, body any, out any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Correlation-Id", c.ids.New())
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil && idempotent(method) {
				c.logger.Debug("cms request failed, retrying", "method", method, "path", requestPath, "attempt", attempt+1, "error", err)
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}
		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payload) == 0 {
				return nil
			}
			return json.Unmarshal(payload, out)
		}

		if retryableStatus(method, resp.StatusCode) && attempt < c.maxRetries {
			c.logger.Debug("cms request throttled, retrying", "method", method, "path", requestPath, "status", resp.StatusCode, "attempt", attempt+1)
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		var errPayload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payload, &errPayload)
		if errPayload.Message == "" {
			errPayload.Message = http.StatusText(resp.StatusCode)
		}
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Code:       errPayload.Code,
			Message:    errPayload.Message,
		}
	}
}

// idempotent reports whether a request may be replayed after the server
// possibly applied it. Creates are POSTs and carry no revision guard.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// retryableStatus reports whether a failed response may be retried. A 429
// means the request was not processed, so any method qualifies.
func retryableStatus(method string, status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && idempotent(method)
}

func (c *HTTPClient) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		return min(retryAfter, c.maxDelay)
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return min(delay, c.maxDelay)
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := http.ParseTime(header); err == nil {
		if delta := time.Until(ts); delta > 0 {
			return delta
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
