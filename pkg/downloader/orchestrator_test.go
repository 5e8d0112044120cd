package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chscraper/pkg/companieshouse"
	"chscraper/pkg/ledger"
	"chscraper/pkg/logger"
	"chscraper/pkg/metadata"
	"chscraper/pkg/ratelimit"
	"chscraper/pkg/storage"
)

// documentServer serves metadata and PDF content for a set of documents.
// Documents listed in missing answer 404, documents in flaky fail with 500
// the given number of times before succeeding.
type documentServer struct {
	t        *testing.T
	missing  map[string]bool
	failures map[string]int
}

func (s *documentServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		require.GreaterOrEqual(s.t, len(parts), 2)
		docID := parts[1]

		if s.missing[docID] {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		if len(parts) == 2 {
			fmt.Fprintf(w, `{"company_number":"00000006","pages":1,"resources":{"application/pdf":{"content_length":20}}}`)
			return
		}

		if s.failures[docID] > 0 {
			s.failures[docID]--
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprintf(w, "%%PDF-1.4 %s", docID)
	}
}

func newOrchestratorForServer(t *testing.T, server *httptest.Server, baseDir string) (*Orchestrator, *storage.Manager) {
	t.Helper()

	client, err := companieshouse.NewClient(companieshouse.Options{
		APIKey:          testAPIKey,
		DataBaseURL:     server.URL,
		DocumentBaseURL: server.URL,
		Limiter:         ratelimit.NewSlidingWindow(10000, time.Minute),
		Logger:          logger.NewTestLogger(),
	})
	require.NoError(t, err)

	store, err := storage.NewManager(baseDir, "00000006")
	require.NoError(t, err)

	orch := NewOrchestrator(Config{
		CompanyNumber: "00000006",
		Fetcher:       NewFetcher(client, store, DefaultMaxFileSize, false, logger.NewTestLogger()),
		Storage:       store,
		Ledger:        ledger.NewManager(store.Dir()),
		MaxRetries:    3,
		RetryDelay:    time.Millisecond,
		Logger:        logger.NewTestLogger(),
	})

	return orch, store
}

func threeTasks() []Task {
	return TasksFromFilings([]companieshouse.Filing{
		filingWithDoc("doc1", "2020-06-30", "AA", "annual accounts"),
		filingWithDoc("doc2", "2021-01-15", "CS01", "confirmation statement"),
		filingWithDoc("doc3", "2021-06-30", "AA", "annual accounts"),
	})
}

func TestRunCollectsFailuresAndContinues(t *testing.T) {
	srv := &documentServer{t: t, missing: map[string]bool{"doc2": true}}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	orch, store := newOrchestratorForServer(t, server, t.TempDir())

	summary, err := orch.Run(context.Background(), threeTasks(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Skipped)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "doc2", summary.Failed[0].DocumentID)
	assert.Contains(t, summary.Failed[0].Reason, "not found")
	assert.Equal(t, 2, summary.ByCategory["accounts"])

	// Both successful documents are on disk with sidecars
	pdf := filepath.Join(store.Dir(), "accounts", "20200630_AA_annual accounts.pdf")
	_, statErr := os.Stat(pdf)
	assert.NoError(t, statErr)

	meta, err := metadata.LoadSidecar(pdf)
	require.NoError(t, err)
	assert.Equal(t, "doc1", meta.DocumentID)
	assert.Equal(t, "accounts", meta.Category)

	// The ledger records both outcomes and the job size
	state := ledger.NewManager(store.Dir()).Load("00000006")
	assert.True(t, state.IsCompleted("doc1"))
	assert.True(t, state.IsCompleted("doc3"))
	assert.Equal(t, 3, state.ExpectedTotal)
	require.Len(t, state.Failed, 1)
	assert.Equal(t, "doc2", state.Failed[0].DocumentID)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	srv := &documentServer{t: t, failures: map[string]int{"doc1": 2}}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	orch, _ := newOrchestratorForServer(t, server, t.TempDir())

	tasks := TasksFromFilings([]companieshouse.Filing{
		filingWithDoc("doc1", "2020-06-30", "AA", "annual accounts"),
	})

	summary, err := orch.Run(context.Background(), tasks, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Empty(t, summary.Failed)
}

func TestRunExhaustsRetriesOnPersistentFailure(t *testing.T) {
	srv := &documentServer{t: t, failures: map[string]int{"doc1": 100}}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	orch, _ := newOrchestratorForServer(t, server, t.TempDir())

	tasks := TasksFromFilings([]companieshouse.Filing{
		filingWithDoc("doc1", "2020-06-30", "AA", "annual accounts"),
	})

	summary, err := orch.Run(context.Background(), tasks, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	assert.Contains(t, summary.Failed[0].Reason, "max retry attempts")
	assert.Equal(t, 97, srv.failures["doc1"], "exactly MaxRetries requests")
}

func TestRunResumeSkipsCompleted(t *testing.T) {
	srv := &documentServer{t: t, missing: map[string]bool{"doc2": true}}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	baseDir := t.TempDir()

	// First run: doc1 and doc3 succeed, doc2 fails
	orch, _ := newOrchestratorForServer(t, server, baseDir)
	_, err := orch.Run(context.Background(), threeTasks(), Options{})
	require.NoError(t, err)

	// Second run with the document now available: only doc2 is attempted
	srv.missing = nil
	orch2, _ := newOrchestratorForServer(t, server, baseDir)
	summary, err := orch2.Run(context.Background(), threeTasks(), Options{Resume: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Empty(t, summary.Failed)
}

func TestRunWithoutResumeStartsFreshLedger(t *testing.T) {
	srv := &documentServer{t: t}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	baseDir := t.TempDir()

	// First run records doc1 as completed
	orch, store := newOrchestratorForServer(t, server, baseDir)
	_, err := orch.Run(context.Background(), TasksFromFilings([]companieshouse.Filing{
		filingWithDoc("doc1", "2020-06-30", "AA", "annual accounts"),
	}), Options{})
	require.NoError(t, err)

	// A non-resume run owns the ledger from scratch; once it records its
	// first outcome the prior run's entries are gone
	orch2, _ := newOrchestratorForServer(t, server, baseDir)
	_, err = orch2.Run(context.Background(), TasksFromFilings([]companieshouse.Filing{
		filingWithDoc("doc2", "2021-01-15", "CS01", "confirmation statement"),
	}), Options{})
	require.NoError(t, err)

	state := ledger.NewManager(store.Dir()).Load("00000006")
	assert.True(t, state.IsCompleted("doc2"))
	assert.False(t, state.IsCompleted("doc1"))
	assert.Equal(t, []string{"doc2"}, state.Completed)
}

func TestRunResumeRedownloadsDeletedFiles(t *testing.T) {
	srv := &documentServer{t: t}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	baseDir := t.TempDir()

	orch, store := newOrchestratorForServer(t, server, baseDir)
	tasks := TasksFromFilings([]companieshouse.Filing{
		filingWithDoc("doc1", "2020-06-30", "AA", "annual accounts"),
	})
	_, err := orch.Run(context.Background(), tasks, Options{})
	require.NoError(t, err)

	// Someone deletes the file but the ledger still claims success
	pdf := filepath.Join(store.Dir(), "accounts", "20200630_AA_annual accounts.pdf")
	require.NoError(t, os.Remove(pdf))

	orch2, _ := newOrchestratorForServer(t, server, baseDir)
	summary, err := orch2.Run(context.Background(), tasks, Options{Resume: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestRunSkipsExistingValidFileWithoutLedger(t *testing.T) {
	srv := &documentServer{t: t}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	baseDir := t.TempDir()

	orch, store := newOrchestratorForServer(t, server, baseDir)
	tasks := TasksFromFilings([]companieshouse.Filing{
		filingWithDoc("doc1", "2020-06-30", "AA", "annual accounts"),
	})
	_, err := orch.Run(context.Background(), tasks, Options{})
	require.NoError(t, err)

	// Ledger lost, file and sidecar still on disk: no re-download
	require.NoError(t, ledger.NewManager(store.Dir()).Delete())

	orch2, _ := newOrchestratorForServer(t, server, baseDir)
	summary, err := orch2.Run(context.Background(), tasks, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRunForceRedownloads(t *testing.T) {
	srv := &documentServer{t: t}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	baseDir := t.TempDir()

	orch, store := newOrchestratorForServer(t, server, baseDir)
	tasks := TasksFromFilings([]companieshouse.Filing{
		filingWithDoc("doc1", "2020-06-30", "AA", "annual accounts"),
	})
	_, err := orch.Run(context.Background(), tasks, Options{})
	require.NoError(t, err)

	orch2, _ := newOrchestratorForServer(t, server, baseDir)
	summary, err := orch2.Run(context.Background(), tasks, Options{Force: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)

	// The re-download keeps the old file and gets a suffixed name
	_, statErr := os.Stat(filepath.Join(store.Dir(), "accounts", "20200630_AA_annual accounts_2.pdf"))
	assert.NoError(t, statErr)
}

func TestRunCategoryFilter(t *testing.T) {
	srv := &documentServer{t: t}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	orch, _ := newOrchestratorForServer(t, server, t.TempDir())

	summary, err := orch.Run(context.Background(), threeTasks(), Options{Categories: []string{"confirmations"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.ByCategory["confirmations"])
}

func TestRunDryRunDownloadsNothing(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	orch, _ := newOrchestratorForServer(t, server, t.TempDir())

	summary, err := orch.Run(context.Background(), threeTasks(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 0, requests)
}

func TestRunCancelledContext(t *testing.T) {
	srv := &documentServer{t: t}
	server := httptest.NewServer(srv.handler())
	defer server.Close()

	orch, _ := newOrchestratorForServer(t, server, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Run(ctx, threeTasks(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
