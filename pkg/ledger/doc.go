// Package ledger persists per-company download progress so interrupted
// bulk runs can resume without repeating work.
//
// The ledger lives at download_progress.json inside the company directory
// and is rewritten atomically after every recorded outcome. It is treated
// as a hint, not a source of truth: a corrupt or missing ledger simply
// starts fresh, and ReconcileWithDisk drops any completed entry whose
// file has since disappeared.
package ledger
