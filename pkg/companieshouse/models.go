package companieshouse

import "encoding/json"

// Page is one listing response from a paginated endpoint. Depending on the
// endpoint the API reports the claimed total as either total_results or
// total_count.
type Page struct {
	Items        []json.RawMessage `json:"items"`
	TotalResults int               `json:"total_results"`
	TotalCount   int               `json:"total_count"`
	StartIndex   int               `json:"start_index"`
	ItemsPerPage int               `json:"items_per_page"`
}

// ClaimedTotal returns the total the API claims for the listing, preferring
// total_count. The claimed total is advisory only: collection never trusts
// it over an empty items page.
func (p *Page) ClaimedTotal() int {
	if p.TotalCount > 0 {
		return p.TotalCount
	}
	return p.TotalResults
}

// List is the fully collected item set of a paginated endpoint, persisted
// verbatim so no API fields are lost.
type List struct {
	Items        []json.RawMessage `json:"items"`
	TotalResults int               `json:"total_results"`
}

// Filing is one filing-history record
type Filing struct {
	TransactionID string      `json:"transaction_id"`
	Date          string      `json:"date"`
	Type          string      `json:"type"`
	Category      string      `json:"category"`
	Description   string      `json:"description"`
	Links         FilingLinks `json:"links"`
}

// FilingLinks holds the links block of a filing record
type FilingLinks struct {
	Self             string `json:"self"`
	DocumentMetadata string `json:"document_metadata"`
}

// HasDocument reports whether the filing references a downloadable document
func (f *Filing) HasDocument() bool {
	return DocumentIDFromLink(f.Links.DocumentMetadata) != ""
}

// DocumentID returns the referenced document id, or "" when absent
func (f *Filing) DocumentID() string {
	return DocumentIDFromLink(f.Links.DocumentMetadata)
}

// ParseFilings decodes the raw items of a filing-history list. Items that
// fail to decode are skipped rather than failing the whole listing.
func ParseFilings(list *List) []Filing {
	if list == nil {
		return nil
	}

	filings := make([]Filing, 0, len(list.Items))
	for _, raw := range list.Items {
		var f Filing
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		filings = append(filings, f)
	}
	return filings
}

// DocumentMetadata is the Document API metadata for one document
type DocumentMetadata struct {
	CompanyNumber string                    `json:"company_number"`
	Barcode       string                    `json:"barcode"`
	Pages         int                       `json:"pages"`
	Resources     map[string]DocumentFormat `json:"resources"`
	Links         map[string]string         `json:"links"`
}

// DocumentFormat describes one available representation of a document
type DocumentFormat struct {
	ContentLength int64 `json:"content_length"`
}

// HasResource reports whether the document is available in the given
// content type
func (m *DocumentMetadata) HasResource(contentType string) bool {
	_, ok := m.Resources[contentType]
	return ok
}

// CompanyData aggregates every data endpoint for one company. Endpoints
// that failed record their error under Errors instead of aborting the
// whole fetch.
type CompanyData struct {
	CompanyNumber    string
	Profile          json.RawMessage
	Officers         *List
	FilingHistory    *List
	Charges          *List
	Insolvency       json.RawMessage
	PSC              *List
	UKEstablishments *List
	Exemptions       json.RawMessage
	Errors           map[string]string
}
