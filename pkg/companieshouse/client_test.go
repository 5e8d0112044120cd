package companieshouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "chscraper/pkg/errors"
	"chscraper/pkg/logger"
	"chscraper/pkg/ratelimit"
)

const testAPIKey = "abcdef1234567890abcdef1234567890"

func newTestClient(t *testing.T, dataURL, docURL string) *Client {
	t.Helper()

	client, err := NewClient(Options{
		APIKey:          testAPIKey,
		DataBaseURL:     dataURL,
		DocumentBaseURL: docURL,
		Timeout:         5 * time.Second,
		ItemsPerPage:    2,
		Limiter:         ratelimit.NewSlidingWindow(10000, time.Minute),
		Logger:          logger.NewTestLogger(),
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsBadAPIKey(t *testing.T) {
	_, err := NewClient(Options{APIKey: "short"})
	assert.Error(t, err)

	_, err = NewClient(Options{APIKey: ""})
	assert.Error(t, err)
}

func TestGetJSONSendsBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		fmt.Fprint(w, `{"company_name":"EXAMPLE LTD"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)

	var target map[string]string
	require.NoError(t, client.GetJSON(context.Background(), "/company/00000006", nil, &target))

	assert.True(t, gotOK)
	assert.Equal(t, testAPIKey, gotUser)
	assert.Equal(t, "", gotPass)
	assert.Equal(t, "EXAMPLE LTD", target["company_name"])
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantType errs.ErrorType
	}{
		{http.StatusUnauthorized, errs.ErrorTypeAuth},
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusInternalServerError, errs.ErrorTypeServerError},
		{http.StatusBadGateway, errs.ErrorTypeServerError},
		{http.StatusTeapot, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, server.URL)

			var target map[string]string
			err := client.GetJSON(context.Background(), "/company/00000006", nil, &target)
			require.Error(t, err)

			var apiErr *errs.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
		})
	}
}

func TestDownloadTimeoutIsSeparate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client, err := NewClient(Options{
		APIKey:          testAPIKey,
		DataBaseURL:     server.URL,
		DocumentBaseURL: server.URL,
		Timeout:         5 * time.Second,
		DownloadTimeout: 50 * time.Millisecond,
		Limiter:         ratelimit.NewSlidingWindow(10000, time.Minute),
		Logger:          logger.NewTestLogger(),
	})
	require.NoError(t, err)

	// The slow response is fine for the Data API budget
	var target map[string]string
	require.NoError(t, client.GetJSON(context.Background(), "/company/00000006", nil, &target))

	// but exceeds the document download budget
	resp, err := client.FetchDocumentStream(context.Background(), "doc123", "")
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
}

func TestGetJSONParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)

	var target map[string]string
	err := client.GetJSON(context.Background(), "/company/00000006", nil, &target)
	require.Error(t, err)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
}

func TestRequestsPassThroughLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	limiter := ratelimit.NewSlidingWindow(3, time.Hour)
	client, err := NewClient(Options{
		APIKey:      testAPIKey,
		DataBaseURL: server.URL,
		Limiter:     limiter,
		Logger:      logger.NewTestLogger(),
	})
	require.NoError(t, err)

	var target map[string]string
	for i := 0; i < 3; i++ {
		require.NoError(t, client.GetJSON(context.Background(), "/company/00000006", nil, &target))
	}

	// Limiter is saturated; a cancelled context must abort the wait
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = client.GetJSON(ctx, "/company/00000006", nil, &target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait cancelled")
}

func TestGetDocumentMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/document/doc123", r.URL.Path)
		fmt.Fprint(w, `{
			"company_number": "00000006",
			"pages": 12,
			"resources": {
				"application/pdf": {"content_length": 51234},
				"application/xhtml+xml": {"content_length": 9876}
			}
		}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)

	meta, err := client.GetDocumentMetadata(context.Background(), "doc123")
	require.NoError(t, err)
	assert.Equal(t, "00000006", meta.CompanyNumber)
	assert.Equal(t, 12, meta.Pages)
	assert.True(t, meta.HasResource("application/pdf"))
	assert.True(t, meta.HasResource("application/xhtml+xml"))
	assert.False(t, meta.HasResource("text/csv"))
}

func TestGetAllDataContinuesOnEndpointErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/company/00000006":
			fmt.Fprint(w, `{"company_name":"EXAMPLE LTD","company_number":"00000006"}`)
		case "/company/00000006/officers":
			w.WriteHeader(http.StatusInternalServerError)
		case "/company/00000006/insolvency",
			"/company/00000006/uk-establishments",
			"/company/00000006/exemptions":
			w.WriteHeader(http.StatusNotFound)
		default:
			// filing-history, charges, psc
			fmt.Fprint(w, `{"items":[],"total_results":0}`)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)

	data, err := client.GetAllData(context.Background(), "6")
	require.NoError(t, err)

	assert.Equal(t, "00000006", data.CompanyNumber)
	assert.NotNil(t, data.Profile)
	assert.Contains(t, data.Errors, "officers")
	assert.NotContains(t, data.Errors, "insolvency", "404 endpoints are empty, not errors")
	assert.Nil(t, data.Insolvency)
	assert.NotNil(t, data.UKEstablishments)
	assert.Empty(t, data.UKEstablishments.Items)
	assert.NotNil(t, data.FilingHistory)
}

func TestParseFilings(t *testing.T) {
	list := &List{
		Items: []json.RawMessage{
			json.RawMessage(`{"transaction_id":"t1","date":"2020-01-15","type":"AA","description":"annual accounts","links":{"document_metadata":"https://doc-api/document/doc1"}}`),
			json.RawMessage(`{"transaction_id":"t2","date":"2020-03-01","type":"CS01","description":"confirmation statement","links":{}}`),
			json.RawMessage(`"not an object"`),
		},
	}

	filings := ParseFilings(list)
	require.Len(t, filings, 2)

	assert.Equal(t, "doc1", filings[0].DocumentID())
	assert.True(t, filings[0].HasDocument())
	assert.False(t, filings[1].HasDocument())
}

func TestDocumentIDFromLink(t *testing.T) {
	assert.Equal(t, "abc123", DocumentIDFromLink("https://document-api.companieshouse.gov.uk/document/abc123"))
	assert.Equal(t, "abc123", DocumentIDFromLink("/document/abc123"))
	assert.Equal(t, "abc123", DocumentIDFromLink("/document/abc123/"))
	assert.Equal(t, "", DocumentIDFromLink(""))
}
