package companieshouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	errs "chscraper/pkg/errors"
	"chscraper/pkg/logger"
	"chscraper/pkg/ratelimit"
	"chscraper/pkg/validate"
)

// Client talks to the Companies House Data API and Document API. Both share
// one API key (HTTP basic auth, key as username) and one rate limiter.
type Client struct {
	dataClient *http.Client
	docClient  *http.Client
	apiKey     string
	userAgent  string
	dataBase   string
	docBase    string
	limiter    ratelimit.Limiter
	logger     logger.Logger
	pageSize   int
}

// Options configures a Client. Zero values fall back to package defaults.
type Options struct {
	APIKey          string
	DataBaseURL     string
	DocumentBaseURL string
	UserAgent       string
	Timeout         time.Duration
	DownloadTimeout time.Duration
	ItemsPerPage    int
	Limiter         ratelimit.Limiter
	Logger          logger.Logger
}

// NewClient creates a Companies House API client. The API key format is
// validated up front so a misconfigured run fails before any request.
func NewClient(opts Options) (*Client, error) {
	if err := validate.APIKey(opts.APIKey); err != nil {
		return nil, fmt.Errorf("invalid API key: %w", err)
	}

	if opts.DataBaseURL == "" {
		opts.DataBaseURL = DataAPIBase
	}
	if opts.DocumentBaseURL == "" {
		opts.DocumentBaseURL = DocumentAPIBase
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	// Document downloads stream large PDFs, so they get their own budget
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = opts.Timeout
	}
	if opts.ItemsPerPage <= 0 {
		opts.ItemsPerPage = DefaultItemsPerPage
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewSlidingWindow(600, 5*time.Minute)
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &Client{
		dataClient: &http.Client{Timeout: opts.Timeout},
		docClient:  &http.Client{Timeout: opts.DownloadTimeout},
		apiKey:     opts.APIKey,
		userAgent:  opts.UserAgent,
		dataBase:   opts.DataBaseURL,
		docBase:    opts.DocumentBaseURL,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
		pageSize:   opts.ItemsPerPage,
	}, nil
}

// dataGet performs a rate-limited GET against the Data API
func (c *Client) dataGet(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	return c.get(ctx, c.dataClient, c.dataBase+endpoint, params, "")
}

// docGet performs a rate-limited GET against the Document API. A non-empty
// accept requests a specific representation of the document.
func (c *Client) docGet(ctx context.Context, endpoint string, accept string) (*http.Response, error) {
	return c.get(ctx, c.docClient, c.docBase+endpoint, nil, accept)
}

func (c *Client) get(ctx context.Context, client *http.Client, rawURL string, params url.Values, accept string) (*http.Response, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	if len(params) > 0 {
		rawURL = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("failed to create request: %v", err), 0)
	}

	req.SetBasicAuth(c.apiKey, "")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("network error: %v", err), 0)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// checkResponseStatus maps HTTP status codes to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.WarnWithFields("authentication failed, check API key", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeAuth, "authentication failed", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, "resource not found", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded despite limiter", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeRateLimit, "rate limit exceeded", resp.StatusCode)
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeServerError, "server error", resp.StatusCode)
	case resp.StatusCode >= 400:
		return errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), resp.StatusCode)
	default:
		return nil
	}
}

// GetJSON performs a Data API GET and decodes the JSON response
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, target interface{}) error {
	resp, err := c.dataGet(ctx, endpoint, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("failed to read response body: %v", err), resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     endpoint,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, fmt.Sprintf("failed to parse JSON: %v", err), resp.StatusCode)
	}

	return nil
}

// GetDocumentMetadata fetches the Document API metadata for a document
func (c *Client) GetDocumentMetadata(ctx context.Context, documentID string) (*DocumentMetadata, error) {
	resp, err := c.docGet(ctx, DocumentMetadataPath(documentID), "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var meta DocumentMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, fmt.Sprintf("failed to parse document metadata: %v", err), resp.StatusCode)
	}

	return &meta, nil
}

// FetchDocumentStream issues a streaming Document API request for document
// content. The caller owns the returned response body and must close it.
func (c *Client) FetchDocumentStream(ctx context.Context, documentID string, accept string) (*http.Response, error) {
	return c.docGet(ctx, DocumentContentPath(documentID), accept)
}
