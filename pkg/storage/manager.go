package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// pdfMagic is the byte signature every valid PDF starts with
var pdfMagic = []byte("%PDF")

// Manager handles file layout inside one company directory. Documents are
// grouped into category subdirectories and written atomically.
type Manager struct {
	companyDir string
	mu         sync.Mutex
}

// NewManager creates the company directory under baseDir and returns a
// manager rooted there
func NewManager(baseDir, companyNumber string) (*Manager, error) {
	companyDir := filepath.Join(baseDir, companyNumber)
	if err := os.MkdirAll(companyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create company directory: %w", err)
	}

	return &Manager{companyDir: companyDir}, nil
}

// Dir returns the company directory path
func (m *Manager) Dir() string {
	return m.companyDir
}

// CategoryDir ensures the category subdirectory exists and returns its path
func (m *Manager) CategoryDir(category string) (string, error) {
	dir := filepath.Join(m.companyDir, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create category directory: %w", err)
	}
	return dir, nil
}

// UniquePath returns a path inside the category directory that no existing
// file occupies. Collisions get a numeric suffix before the extension:
// accounts.pdf, accounts_2.pdf, accounts_3.pdf.
func (m *Manager) UniquePath(category, filename string) (string, error) {
	dir, err := m.CategoryDir(category)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := filepath.Join(dir, filename)
	if !exists(candidate) {
		return candidate, nil
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 2; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if !exists(candidate) {
			return candidate, nil
		}
	}
}

// SaveDocument streams r to path atomically: the data is written to a
// temporary sibling, synced, then renamed into place so an aborted
// download never leaves a partial document behind. Returns the number of
// bytes written.
func (m *Manager) SaveDocument(r io.Reader, path string) (int64, error) {
	tempPath := path + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	written, err := io.CopyBuffer(out, r, make([]byte, 8192))
	if err != nil {
		out.Close()
		os.Remove(tempPath)
		return written, fmt.Errorf("failed to write document data: %w", err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tempPath)
		return written, fmt.Errorf("failed to sync document file: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return written, fmt.Errorf("failed to close document file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return written, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return written, nil
}

// RelPath converts an absolute path inside the company directory to a path
// relative to it
func (m *Manager) RelPath(path string) string {
	rel, err := filepath.Rel(m.companyDir, path)
	if err != nil {
		return path
	}
	return rel
}

// FindDocument locates a previously downloaded document by its id. Sidecar
// .meta.json files are scanned for the id, and a hit only counts when the
// document file itself is present and, for PDFs, starts with the PDF
// signature. Returns the path relative to the company directory.
func (m *Manager) FindDocument(documentID string) (string, bool) {
	entries, err := os.ReadDir(m.companyDir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if path, ok := m.findInCategory(entry.Name(), documentID); ok {
			return path, true
		}
	}

	return "", false
}

func (m *Manager) findInCategory(category, documentID string) (string, bool) {
	dir := filepath.Join(m.companyDir, category)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".meta.json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}

		var sidecar struct {
			DocumentID string `json:"document_id"`
		}
		if err := json.Unmarshal(data, &sidecar); err != nil || sidecar.DocumentID != documentID {
			continue
		}

		docPath := filepath.Join(dir, strings.TrimSuffix(name, ".meta.json"))
		if !exists(docPath) {
			continue
		}
		if strings.EqualFold(filepath.Ext(docPath), ".pdf") && !HasPDFSignature(docPath) {
			continue
		}

		return m.RelPath(docPath), true
	}

	return "", false
}

// HasPDFSignature checks whether the file starts with the %PDF magic bytes
func HasPDFSignature(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return bytes.Equal(header, pdfMagic)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
