package downloader

import (
	"fmt"
	"strings"

	"chscraper/pkg/companieshouse"
	"chscraper/pkg/validate"
)

// maxDescriptionInFilename keeps generated filenames readable
const maxDescriptionInFilename = 50

// Task is one document to download, derived from a filing-history record
// that references a document
type Task struct {
	DocumentID string
	Filing     companieshouse.Filing
	Category   string
}

// TasksFromFilings converts filing-history records to download tasks.
// Filings without a document reference are dropped.
func TasksFromFilings(filings []companieshouse.Filing) []Task {
	tasks := make([]Task, 0, len(filings))
	for _, f := range filings {
		if !f.HasDocument() {
			continue
		}
		tasks = append(tasks, Task{
			DocumentID: f.DocumentID(),
			Filing:     f,
			Category:   Categorize(f.Type),
		})
	}
	return tasks
}

// Filename builds the document filename: <date>_<type>_<description>.pdf
// with the date's dashes stripped and the description truncated
func (t *Task) Filename() string {
	date := strings.ReplaceAll(orUnknown(t.Filing.Date), "-", "")
	filingType := orUnknown(t.Filing.Type)

	description := orUnknown(t.Filing.Description)
	if len(description) > maxDescriptionInFilename {
		description = description[:maxDescriptionInFilename]
	}

	base := validate.SanitizeFilename(fmt.Sprintf("%s_%s_%s", date, filingType, description), 180)
	return base + ".pdf"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
