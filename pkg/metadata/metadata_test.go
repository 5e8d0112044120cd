package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chscraper/pkg/companieshouse"
)

func testFiling() *companieshouse.Filing {
	return &companieshouse.Filing{
		TransactionID: "MzA1234",
		Date:          "2020-06-30",
		Type:          "AA",
		Category:      "accounts",
		Description:   "accounts-with-accounts-type-micro-entity",
		Links: companieshouse.FilingLinks{
			DocumentMetadata: "https://document-api.companieshouse.gov.uk/document/doc1",
		},
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "accounts.pdf")

	docMeta := &companieshouse.DocumentMetadata{Pages: 4, Barcode: "X9ABCDEF"}
	meta := FromFiling(testFiling(), docMeta, "00000006", "accounts", "application/pdf", 51234)

	require.NoError(t, SaveSidecar(meta, docPath))

	loaded, err := LoadSidecar(docPath)
	require.NoError(t, err)
	assert.Equal(t, "doc1", loaded.DocumentID)
	assert.Equal(t, "MzA1234", loaded.TransactionID)
	assert.Equal(t, "00000006", loaded.CompanyNumber)
	assert.Equal(t, "accounts", loaded.Category)
	assert.Equal(t, "application/pdf", loaded.ContentType)
	assert.Equal(t, int64(51234), loaded.FileSize)
	assert.Equal(t, 4, loaded.Pages)
	assert.False(t, loaded.DownloadedAt.IsZero())
}

func TestFromFilingWithoutDocumentMetadata(t *testing.T) {
	meta := FromFiling(testFiling(), nil, "00000006", "accounts", "application/pdf", 100)
	assert.Zero(t, meta.Pages)
	assert.Empty(t, meta.Barcode)
}

func TestSidecarPath(t *testing.T) {
	assert.Equal(t, "/x/accounts.pdf.meta.json", SidecarPath("/x/accounts.pdf"))
}

func TestSaveCompanyData(t *testing.T) {
	dir := t.TempDir()

	data := &companieshouse.CompanyData{
		CompanyNumber: "00000006",
		Profile:       json.RawMessage(`{"company_name":"EXAMPLE LTD"}`),
		FilingHistory: &companieshouse.List{
			Items:        []json.RawMessage{json.RawMessage(`{"transaction_id":"t1"}`)},
			TotalResults: 1,
		},
		Officers: &companieshouse.List{}, // empty, must not be written
	}

	require.NoError(t, SaveCompanyData(dir, data))

	raw, err := os.ReadFile(filepath.Join(dir, "profile.json"))
	require.NoError(t, err)
	var profile map[string]string
	require.NoError(t, json.Unmarshal(raw, &profile))
	assert.Equal(t, "EXAMPLE LTD", profile["company_name"])

	_, err = os.Stat(filepath.Join(dir, "filing_history.json"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "officers.json"))
	assert.True(t, os.IsNotExist(err))
}
