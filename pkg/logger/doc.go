// Package logger provides structured logging for chscraper, built on zerolog.
//
// A Logger is leveled and fielded. The console writer is used by default;
// when a log file is configured, output goes to both console and file.
//
// Usage:
//
//	log := logger.GetLogger()
//	log.InfoWithFields("download complete", map[string]interface{}{
//	    "company_number": "00000006",
//	    "documents":      42,
//	})
//
// Sensitive values (the API key) must never be passed as fields; callers log
// derived information only.
package logger
