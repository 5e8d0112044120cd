// Package scraper is the top-level pipeline tying the other packages
// together: one ScrapeCompany call fetches every Companies House data
// endpoint, persists the JSON, downloads the filing documents into
// category directories, and writes a summary.
package scraper
