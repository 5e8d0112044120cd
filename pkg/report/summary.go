// Package report renders the human-readable summary.txt written into each
// company directory after a scrape.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"chscraper/pkg/companieshouse"
	"chscraper/pkg/downloader"
)

// FileName is the summary file written inside each company directory
const FileName = "summary.txt"

const divider = "============================================================"

// profileFields is the subset of the company profile the summary shows
type profileFields struct {
	CompanyName    string `json:"company_name"`
	CompanyNumber  string `json:"company_number"`
	CompanyStatus  string `json:"company_status"`
	Type           string `json:"type"`
	DateOfCreation string `json:"date_of_creation"`
	Jurisdiction   string `json:"jurisdiction"`

	RegisteredOfficeAddress struct {
		AddressLine1 string `json:"address_line_1"`
		AddressLine2 string `json:"address_line_2"`
		Locality     string `json:"locality"`
		Region       string `json:"region"`
		PostalCode   string `json:"postal_code"`
	} `json:"registered_office_address"`
}

// WriteSummary renders summary.txt for a company into companyDir. The
// download summary is optional: a data-only run omits that section.
func WriteSummary(companyDir string, data *companieshouse.CompanyData, downloads *downloader.Summary) error {
	var b strings.Builder
	render(&b, data, downloads)

	path := filepath.Join(companyDir, FileName)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	return nil
}

// Render returns the summary text without writing it
func Render(data *companieshouse.CompanyData, downloads *downloader.Summary) string {
	var b strings.Builder
	render(&b, data, downloads)
	return b.String()
}

func render(b *strings.Builder, data *companieshouse.CompanyData, downloads *downloader.Summary) {
	var profile profileFields
	if data.Profile != nil {
		// A malformed profile just leaves the fields at N/A
		_ = json.Unmarshal(data.Profile, &profile)
	}

	fmt.Fprintf(b, "COMPANY OVERVIEW\n%s\n", divider)
	fmt.Fprintf(b, "Name: %s\n", orNA(profile.CompanyName))
	fmt.Fprintf(b, "Number: %s\n", orNA(profile.CompanyNumber))
	fmt.Fprintf(b, "Status: %s\n", orNA(profile.CompanyStatus))
	fmt.Fprintf(b, "Type: %s\n", orNA(profile.Type))
	fmt.Fprintf(b, "Incorporated: %s\n", orNA(profile.DateOfCreation))
	fmt.Fprintf(b, "Jurisdiction: %s\n\n", orNA(profile.Jurisdiction))

	fmt.Fprintf(b, "REGISTERED ADDRESS\n%s\n", divider)
	address := []string{
		profile.RegisteredOfficeAddress.AddressLine1,
		profile.RegisteredOfficeAddress.AddressLine2,
		profile.RegisteredOfficeAddress.Locality,
		profile.RegisteredOfficeAddress.Region,
		profile.RegisteredOfficeAddress.PostalCode,
	}
	wrote := false
	for _, line := range address {
		if line != "" {
			fmt.Fprintln(b, line)
			wrote = true
		}
	}
	if !wrote {
		fmt.Fprintln(b, "N/A")
	}
	fmt.Fprintln(b)

	fmt.Fprintf(b, "DATA COLLECTED\n%s\n", divider)
	fmt.Fprintf(b, "Officers: %d found\n", listLen(data.Officers))
	fmt.Fprintf(b, "Charges: %d found\n", listLen(data.Charges))
	fmt.Fprintf(b, "PSC: %d found\n", listLen(data.PSC))
	fmt.Fprintf(b, "Filing History: %d records\n", listLen(data.FilingHistory))
	fmt.Fprintf(b, "UK Establishments: %d found\n", listLen(data.UKEstablishments))
	fmt.Fprintf(b, "Insolvency: %s\n\n", yesNo(data.Insolvency != nil))

	if downloads != nil {
		fmt.Fprintf(b, "DOCUMENTS DOWNLOADED\n%s\n", divider)

		categories := make([]string, 0, len(downloads.ByCategory))
		for category := range downloads.ByCategory {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			fmt.Fprintf(b, "%s: %d PDFs\n", titleCase(category), downloads.ByCategory[category])
		}

		fmt.Fprintf(b, "\nTotal Documents: %d PDFs\n", downloads.Succeeded)
		if len(downloads.Failed) > 0 {
			fmt.Fprintf(b, "Failed: %d\n", len(downloads.Failed))
		}
		if downloads.Skipped > 0 {
			fmt.Fprintf(b, "Skipped: %d\n", downloads.Skipped)
		}
		fmt.Fprintln(b)
	}

	fmt.Fprintf(b, "Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func listLen(list *companieshouse.List) int {
	if list == nil {
		return 0
	}
	return len(list.Items)
}
