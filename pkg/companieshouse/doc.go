// Package companieshouse implements a client for the Companies House Data
// API (JSON company records) and Document API (filed documents).
//
// Both APIs authenticate with the same API key over HTTP basic auth (key as
// username, blank password) and share one quota of 600 requests per 5
// minutes, so every request passes through one shared rate limiter before
// leaving the client.
//
// Paginated endpoints (officers, filing history, charges, PSC, UK
// establishments) are collected fully by CollectPages, which guards against
// the API's occasionally wrong total counts: an empty page always stops
// collection, and a hard iteration ceiling turns a non-converging listing
// into an explicit error.
package companieshouse
