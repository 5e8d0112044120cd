package companieshouse

import (
	"fmt"
	"strings"
)

const (
	// DataAPIBase is the default base URL for the Data API
	DataAPIBase = "https://api.company-information.service.gov.uk"

	// DocumentAPIBase is the default base URL for the Document API
	DocumentAPIBase = "https://document-api.companieshouse.gov.uk"

	// DefaultItemsPerPage is the default pagination page size
	DefaultItemsPerPage = 100

	// MaxPaginationIterations is the safety ceiling for pagination loops
	MaxPaginationIterations = 1000
)

// CompanyProfilePath returns the Data API path for a company profile
func CompanyProfilePath(companyNumber string) string {
	return fmt.Sprintf("/company/%s", companyNumber)
}

// OfficersPath returns the Data API path for company officers
func OfficersPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/officers", companyNumber)
}

// FilingHistoryPath returns the Data API path for a company's filing history
func FilingHistoryPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/filing-history", companyNumber)
}

// ChargesPath returns the Data API path for company charges
func ChargesPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/charges", companyNumber)
}

// InsolvencyPath returns the Data API path for insolvency information
func InsolvencyPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/insolvency", companyNumber)
}

// PSCPath returns the Data API path for persons with significant control
func PSCPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/persons-with-significant-control", companyNumber)
}

// UKEstablishmentsPath returns the Data API path for UK establishments
func UKEstablishmentsPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/uk-establishments", companyNumber)
}

// ExemptionsPath returns the Data API path for company exemptions
func ExemptionsPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/exemptions", companyNumber)
}

// DocumentMetadataPath returns the Document API path for document metadata
func DocumentMetadataPath(documentID string) string {
	return fmt.Sprintf("/document/%s", documentID)
}

// DocumentContentPath returns the Document API path for document content
func DocumentContentPath(documentID string) string {
	return fmt.Sprintf("/document/%s/content", documentID)
}

// DocumentIDFromLink extracts the document id from a document_metadata link
// such as "https://document-api.companieshouse.gov.uk/document/abc123" or
// "/document/abc123". Returns "" when the link carries no id.
func DocumentIDFromLink(link string) string {
	link = strings.TrimRight(link, "/")
	idx := strings.LastIndex(link, "/")
	if idx < 0 || idx == len(link)-1 {
		return ""
	}
	return link[idx+1:]
}
