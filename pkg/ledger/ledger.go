package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chscraper/pkg/logger"
)

// FileName is the ledger file written inside each company directory.
const FileName = "download_progress.json"

// State records which documents of a company have been downloaded or have
// failed. It is persisted after every outcome so an interrupted run can
// resume without re-downloading. Completed holds document ids in completion
// order; Failed is an append-only history, so one document can appear more
// than once across retries and runs.
type State struct {
	CompanyNumber string    `json:"company_number"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpectedTotal int       `json:"expected_total"`
	Completed     []string  `json:"completed"`
	Failed        []Failure `json:"failed"`
	Version       int       `json:"version"`

	// membership index over Completed, rebuilt on load
	completed map[string]struct{}
}

// Failure is one failed download attempt
type Failure struct {
	DocumentID string    `json:"document_id"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
}

// Manager persists ledger state for one company directory
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a ledger manager for the given company directory
func NewManager(companyDir string) *Manager {
	return &Manager{
		path:   filepath.Join(companyDir, FileName),
		logger: logger.GetLogger(),
	}
}

// Path returns the ledger file path
func (m *Manager) Path() string {
	return m.path
}

// NewState creates a fresh state for a company
func NewState(companyNumber string) *State {
	now := time.Now()
	return &State{
		CompanyNumber: companyNumber,
		StartedAt:     now,
		UpdatedAt:     now,
		Completed:     []string{},
		Failed:        []Failure{},
		Version:       1,
		completed:     make(map[string]struct{}),
	}
}

// Load reads the persisted state. A missing or corrupt file yields a fresh
// state: the ledger is an optimisation, never a reason to abort, and the
// filesystem remains the ground truth for what was actually downloaded.
func (m *Manager) Load(companyNumber string) *State {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.WarnWithFields("failed to read progress ledger, starting fresh", map[string]interface{}{
				"path":  m.path,
				"error": err.Error(),
			})
		}
		return NewState(companyNumber)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		m.logger.WarnWithFields("progress ledger is corrupt, starting fresh", map[string]interface{}{
			"path":  m.path,
			"error": err.Error(),
		})
		return NewState(companyNumber)
	}

	if state.Completed == nil {
		state.Completed = []string{}
	}
	if state.Failed == nil {
		state.Failed = []Failure{}
	}
	state.CompanyNumber = companyNumber
	state.reindex()

	m.logger.InfoWithFields("progress ledger loaded", map[string]interface{}{
		"company_number": companyNumber,
		"completed":      len(state.Completed),
		"failed":         len(state.Failed),
		"updated_at":     state.UpdatedAt,
	})

	return &state
}

// Save writes the state to disk atomically: the JSON is written to a
// temporary file, synced, then renamed over the ledger so a crash mid-write
// can never leave a truncated file behind.
func (m *Manager) Save(state *State) error {
	state.UpdatedAt = time.Now()

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(state); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close ledger file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	return nil
}

// RecordSuccess marks a document as downloaded and persists immediately.
// Recording the same document twice is a no-op apart from the save.
func (m *Manager) RecordSuccess(state *State, documentID string) error {
	if !state.IsCompleted(documentID) {
		state.Completed = append(state.Completed, documentID)
		state.completed[documentID] = struct{}{}
	}
	return m.Save(state)
}

// RecordFailure appends a failed attempt and persists immediately. The
// history is never consulted to block a retry, it only explains past runs.
func (m *Manager) RecordFailure(state *State, documentID, reason string) error {
	state.Failed = append(state.Failed, Failure{
		DocumentID: documentID,
		Reason:     reason,
		FailedAt:   time.Now(),
	})
	return m.Save(state)
}

// IsCompleted checks whether a document was already downloaded
func (s *State) IsCompleted(documentID string) bool {
	_, ok := s.completed[documentID]
	return ok
}

func (s *State) reindex() {
	s.completed = make(map[string]struct{}, len(s.Completed))
	for _, id := range s.Completed {
		s.completed[id] = struct{}{}
	}
}

// ReconcileWithDisk drops completed entries whose file is no longer
// present. The ledger only claims a download happened; the filesystem
// decides. Documents dropped here get downloaded again on this run.
// Returns the number of entries dropped.
func (m *Manager) ReconcileWithDisk(state *State, present func(documentID string) bool) int {
	kept := state.Completed[:0]
	dropped := 0
	for _, id := range state.Completed {
		if present(id) {
			kept = append(kept, id)
			continue
		}
		dropped++
		m.logger.WarnWithFields("ledger entry has no file on disk, re-queueing", map[string]interface{}{
			"document_id": id,
		})
	}
	state.Completed = kept
	state.reindex()

	if dropped > 0 {
		if err := m.Save(state); err != nil {
			m.logger.WithError(err).Warn("failed to persist reconciled ledger")
		}
	}

	return dropped
}

// Delete removes the ledger file
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	return nil
}
