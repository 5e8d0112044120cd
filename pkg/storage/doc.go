// Package storage handles the on-disk layout of downloaded company data.
//
// Each company gets its own directory under the configured output root,
// with documents grouped into category subdirectories (accounts,
// confirmations, mortgages and so on). Every document write is atomic:
// data streams to a temporary sibling that is renamed into place only
// once complete, so interrupted downloads leave no partial files.
//
// Documents keep a sidecar <name>.meta.json next to them; FindDocument
// uses those sidecars to locate a document by id when the progress ledger
// is reconciled against what actually exists on disk.
package storage
