package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"chscraper/pkg/companieshouse"
	errs "chscraper/pkg/errors"
	"chscraper/pkg/logger"
	"chscraper/pkg/storage"
)

const (
	// DefaultMaxFileSize caps document downloads at 50 MiB
	DefaultMaxFileSize = 50 * 1024 * 1024

	pdfContentType  = "application/pdf"
	xbrlContentType = "application/xhtml+xml"
)

// Fetcher downloads a single document with validation: content type is
// checked before the body is read, the size ceiling applies to both the
// declared length and the actual stream, and PDFs must carry the %PDF
// signature.
type Fetcher struct {
	client      *companieshouse.Client
	storage     *storage.Manager
	maxFileSize int64
	fetchXBRL   bool
	logger      logger.Logger
}

// FetchResult describes a completed document download
type FetchResult struct {
	Path        string // relative to the company directory
	Size        int64
	ContentType string
	Metadata    *companieshouse.DocumentMetadata
	XBRLPath    string // empty when no XBRL was fetched
}

// NewFetcher creates a document fetcher
func NewFetcher(client *companieshouse.Client, store *storage.Manager, maxFileSize int64, fetchXBRL bool, log logger.Logger) *Fetcher {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		client:      client,
		storage:     store,
		maxFileSize: maxFileSize,
		fetchXBRL:   fetchXBRL,
		logger:      log,
	}
}

// Fetch downloads the task's document to destPath. The PDF is the primary
// artifact; when XBRL is requested and available it is fetched as a bonus
// and its failure never fails the primary download.
func (f *Fetcher) Fetch(ctx context.Context, task *Task, destPath string) (*FetchResult, error) {
	meta, err := f.client.GetDocumentMetadata(ctx, task.DocumentID)
	if err != nil {
		return nil, err
	}

	size, contentType, err := f.fetchPrimary(ctx, task.DocumentID, destPath)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{
		Path:        f.storage.RelPath(destPath),
		Size:        size,
		ContentType: contentType,
		Metadata:    meta,
	}

	if f.fetchXBRL && meta.HasResource(xbrlContentType) {
		result.XBRLPath = f.fetchXBRLSidecar(ctx, task.DocumentID, destPath)
	}

	return result, nil
}

// fetchPrimary streams the PDF to destPath and validates it
func (f *Fetcher) fetchPrimary(ctx context.Context, documentID, destPath string) (int64, string, error) {
	resp, err := f.client.FetchDocumentStream(ctx, documentID, pdfContentType)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	// Content type first: a mismatch is almost always an HTML error page,
	// so the body is never read
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, pdfContentType) {
		f.logger.WarnWithFields("unexpected content type, likely an error page", map[string]interface{}{
			"document_id":  documentID,
			"content_type": contentType,
		})
		return 0, contentType, errs.New(errs.ErrorTypeContentType,
			fmt.Sprintf("expected %s, got %q", pdfContentType, contentType), resp.StatusCode)
	}

	if resp.ContentLength > f.maxFileSize {
		return 0, contentType, errs.New(errs.ErrorTypeSize,
			fmt.Sprintf("declared size %d exceeds %d byte limit", resp.ContentLength, f.maxFileSize), resp.StatusCode)
	}

	// The stream is capped independently of the declared length, which
	// may be absent or wrong
	written, err := f.storage.SaveDocument(&cappedReader{r: resp.Body, max: f.maxFileSize}, destPath)
	if err != nil {
		return written, contentType, err
	}

	if !storage.HasPDFSignature(destPath) {
		os.Remove(destPath)
		return written, contentType, errs.New(errs.ErrorTypeIntegrity,
			"downloaded file does not start with the PDF signature", 0)
	}

	return written, contentType, nil
}

// fetchXBRLSidecar tries to download the XBRL representation next to the
// PDF. Returns the relative path, or "" on any failure.
func (f *Fetcher) fetchXBRLSidecar(ctx context.Context, documentID, pdfPath string) string {
	xbrlPath := strings.TrimSuffix(pdfPath, ".pdf") + ".xhtml"

	resp, err := f.client.FetchDocumentStream(ctx, documentID, xbrlContentType)
	if err != nil {
		f.logger.DebugWithFields("XBRL not available", map[string]interface{}{
			"document_id": documentID,
			"error":       err.Error(),
		})
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	if _, err := f.storage.SaveDocument(&cappedReader{r: resp.Body, max: f.maxFileSize}, xbrlPath); err != nil {
		f.logger.DebugWithFields("XBRL download failed", map[string]interface{}{
			"document_id": documentID,
			"error":       err.Error(),
		})
		return ""
	}

	return f.storage.RelPath(xbrlPath)
}

// cappedReader fails the read once more than max bytes have passed
// through it
type cappedReader struct {
	r    io.Reader
	read int64
	max  int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.max {
		return n, errs.New(errs.ErrorTypeSize,
			fmt.Sprintf("download exceeded %d byte limit", c.max), 0)
	}
	return n, err
}
