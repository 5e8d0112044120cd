// Package downloader turns a company's filing history into validated PDF
// downloads on disk.
//
// Filings that reference a document become Tasks. The Orchestrator runs
// each task in sequence: the filing is categorized into a directory
// (accounts, confirmations, mortgages, ...), a collision-free filename is
// chosen, and the Fetcher downloads the document with retries on
// transient failures. Every outcome lands in the progress ledger so an
// interrupted run resumes where it stopped.
//
// The Fetcher validates aggressively because the Document API serves HTML
// error pages with a 200 status under some failure modes: the content
// type is checked before the body is read, the size ceiling applies to
// both the declared and the streamed length, and a saved PDF must start
// with the %PDF signature or it is deleted again. An optional XBRL
// rendition is fetched next to the PDF when available; XBRL problems
// never fail the PDF download.
package downloader
