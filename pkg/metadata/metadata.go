package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chscraper/pkg/companieshouse"
)

// DocumentMetadata is the sidecar record written next to every downloaded
// document as <name>.meta.json. It ties the file on disk back to the
// filing it came from.
type DocumentMetadata struct {
	// Core identifiers
	DocumentID    string `json:"document_id"`
	TransactionID string `json:"transaction_id"`
	CompanyNumber string `json:"company_number"`

	// Filing details
	FilingDate  string `json:"filing_date,omitempty"`
	FilingType  string `json:"filing_type,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`

	// File properties
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
	Pages       int    `json:"pages,omitempty"`
	Barcode     string `json:"barcode,omitempty"`

	DownloadedAt time.Time `json:"downloaded_at"`
}

// FromFiling builds sidecar metadata for a downloaded filing document
func FromFiling(filing *companieshouse.Filing, docMeta *companieshouse.DocumentMetadata, companyNumber, category, contentType string, fileSize int64) *DocumentMetadata {
	meta := &DocumentMetadata{
		DocumentID:    filing.DocumentID(),
		TransactionID: filing.TransactionID,
		CompanyNumber: companyNumber,
		FilingDate:    filing.Date,
		FilingType:    filing.Type,
		Description:   filing.Description,
		Category:      category,
		ContentType:   contentType,
		FileSize:      fileSize,
		DownloadedAt:  time.Now(),
	}

	if docMeta != nil {
		meta.Pages = docMeta.Pages
		meta.Barcode = docMeta.Barcode
	}

	return meta
}

// SaveSidecar writes the metadata next to the document at documentPath
func SaveSidecar(meta *DocumentMetadata, documentPath string) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document metadata: %w", err)
	}

	if err := os.WriteFile(SidecarPath(documentPath), data, 0644); err != nil {
		return fmt.Errorf("failed to write document metadata: %w", err)
	}

	return nil
}

// LoadSidecar reads the metadata sidecar for the document at documentPath
func LoadSidecar(documentPath string) (*DocumentMetadata, error) {
	data, err := os.ReadFile(SidecarPath(documentPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read document metadata: %w", err)
	}

	var meta DocumentMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse document metadata: %w", err)
	}

	return &meta, nil
}

// SidecarPath returns the sidecar path for a document path
func SidecarPath(documentPath string) string {
	return documentPath + ".meta.json"
}

// SaveEndpointJSON persists a raw Data API response verbatim under the
// company directory, one file per endpoint
func SaveEndpointJSON(companyDir, endpoint string, data interface{}) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s data: %w", endpoint, err)
	}

	path := filepath.Join(companyDir, endpoint+".json")
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s data: %w", endpoint, err)
	}

	return nil
}

// SaveCompanyData writes every fetched endpoint of a company to disk.
// Endpoints with no data are skipped.
func SaveCompanyData(companyDir string, data *companieshouse.CompanyData) error {
	endpoints := map[string]interface{}{}
	if data.Profile != nil {
		endpoints["profile"] = data.Profile
	}
	if data.Officers != nil && len(data.Officers.Items) > 0 {
		endpoints["officers"] = data.Officers
	}
	if data.FilingHistory != nil && len(data.FilingHistory.Items) > 0 {
		endpoints["filing_history"] = data.FilingHistory
	}
	if data.Charges != nil && len(data.Charges.Items) > 0 {
		endpoints["charges"] = data.Charges
	}
	if data.Insolvency != nil {
		endpoints["insolvency"] = data.Insolvency
	}
	if data.PSC != nil && len(data.PSC.Items) > 0 {
		endpoints["persons_with_significant_control"] = data.PSC
	}
	if data.UKEstablishments != nil && len(data.UKEstablishments.Items) > 0 {
		endpoints["uk_establishments"] = data.UKEstablishments
	}
	if data.Exemptions != nil {
		endpoints["exemptions"] = data.Exemptions
	}

	for endpoint, payload := range endpoints {
		if err := SaveEndpointJSON(companyDir, endpoint, payload); err != nil {
			return err
		}
	}

	return nil
}
