package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rmoretti/fieldharvest/internal/checkpoint"
	"github.com/rmoretti/fieldharvest/internal/filter"
	"github.com/rmoretti/fieldharvest/internal/model"
	"github.com/rmoretti/fieldharvest/internal/openalex"
)

// memSink captures records in memory
type memSink struct {
	records []model.Record
	flushes int
	closed  bool
}

func (m *memSink) Write(r model.Record) error { m.records = append(m.records, r); return nil }
func (m *memSink) Flush() error               { m.flushes++; return nil }
func (m *memSink) Close() error               { m.closed = true; return nil }

// factoryFor hands out the given sink and records whether it was opened
func factoryFor(s Sink) (SinkFactory, *bool) {
	opened := false
	return func() (Sink, error) {
		opened = true
		return s, nil
	}, &opened
}

// noShares never grants a borderline pass; tests use scores that avoid it
type noShares struct{}

func (noShares) ShareInField(context.Context, string, string, float64) bool { return false }

func fastPacing() model.PacingConfig {
	return model.PacingConfig{
		Initial:            time.Millisecond,
		Min:                time.Millisecond,
		Max:                5 * time.Millisecond,
		BackoffMultiplier:  1.5,
		CooldownMultiplier: 0.9,
	}
}

func testFilter() *filter.Filter {
	cfg := model.FilterConfig{
		MinScore:                  20,
		TopK:                      5,
		MinRelative:               0.6,
		BorderlineScore:           45,
		MinShare:                  0.40,
		SkipShareIfPrimaryInField: true,
	}
	return filter.New(cfg, "C100", noShares{})
}

func authorJSON(id string, score float64) string {
	return fmt.Sprintf(`{"id":"https://openalex.org/%s","display_name":"Author %s",
		"works_count":10,"cited_by_count":100,
		"x_concepts":[{"id":"https://openalex.org/C100","display_name":"Economics","score":%g}]}`,
		id, id, score)
}

// catalogServer serves a one-page concept subtree and a two-page author listing
func catalogServer(t *testing.T, authorCalls *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/concepts":
			fmt.Fprint(w, `{"meta":{"next_cursor":""},"results":[{"id":"https://openalex.org/C101"}]}`)
		case "/authors":
			cursor := r.URL.Query().Get("cursor")
			*authorCalls = append(*authorCalls, cursor)
			switch cursor {
			case "*":
				fmt.Fprintf(w, `{"meta":{"count":3,"next_cursor":"CUR2"},"results":[%s,%s]}`,
					authorJSON("A1", 90), authorJSON("A2", 10))
			case "CUR2":
				fmt.Fprintf(w, `{"meta":{"count":3,"next_cursor":""},"results":[%s]}`,
					authorJSON("A3", 60))
			default:
				t.Errorf("unexpected cursor %q", cursor)
			}
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
}

func newTestCollector(t *testing.T, baseURL, cursorPath string, newSink SinkFactory, stop func() bool, log *zap.Logger) *Collector {
	t.Helper()
	cfg := model.APIConfig{BaseURL: baseURL, UserAgent: "fieldharvest-test/0", PageSize: 200}
	client := openalex.NewClient(cfg, openalex.NewPaceState(fastPacing()), zap.NewNop())

	opts := Options{
		FieldID:         "C100",
		FieldName:       "Economics",
		PageSize:        200,
		FlushPages:      1,
		AuthorsTimeout:  time.Second,
		ConceptsTimeout: time.Second,
		PreloadDelay:    time.Millisecond,
		PreloadMinDelay: time.Millisecond,
		StopRequested:   stop,
	}
	return New(client, testFilter(), checkpoint.New(cursorPath), newSink, opts, log)
}

func TestRun_CollectsFiltersAndCheckpoints(t *testing.T) {
	var calls []string
	srv := catalogServer(t, &calls)
	defer srv.Close()

	cursorPath := filepath.Join(t.TempDir(), "cursor.txt")
	sink := &memSink{}
	factory, _ := factoryFor(sink)
	c := newTestCollector(t, srv.URL, cursorPath, factory, nil, zap.NewNop())

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{"*", "CUR2"}, calls)

	// A2 fails the absolute floor; A1 and A3 pass in API order
	require.Len(t, sink.records, 2)
	assert.Equal(t, "https://openalex.org/A1", sink.records[0].AuthorID)
	assert.Equal(t, "https://openalex.org/A3", sink.records[1].AuthorID)
	assert.Equal(t, "Economics", sink.records[0].FieldGroup)
	assert.True(t, sink.closed)

	// Exhaustion is never recorded: the file holds the last real cursor
	data, err := os.ReadFile(cursorPath)
	require.NoError(t, err)
	assert.Equal(t, "CUR2", string(data))
}

func TestRun_ResumesFromSavedCursor(t *testing.T) {
	var calls []string
	srv := catalogServer(t, &calls)
	defer srv.Close()

	cursorPath := filepath.Join(t.TempDir(), "cursor.txt")
	require.NoError(t, os.WriteFile(cursorPath, []byte("CUR2"), 0o644))

	sink := &memSink{}
	factory, _ := factoryFor(sink)
	c := newTestCollector(t, srv.URL, cursorPath, factory, nil, zap.NewNop())

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{"CUR2"}, calls, "first page is skipped on resume")
	require.Len(t, sink.records, 1)
	assert.Equal(t, "https://openalex.org/A3", sink.records[0].AuthorID)
}

func TestRun_StopRequestFinishesCurrentPage(t *testing.T) {
	var calls []string
	srv := catalogServer(t, &calls)
	defer srv.Close()

	cursorPath := filepath.Join(t.TempDir(), "cursor.txt")
	sink := &memSink{}
	factory, _ := factoryFor(sink)
	c := newTestCollector(t, srv.URL, cursorPath, factory, func() bool { return true }, zap.NewNop())

	require.NoError(t, c.Run(context.Background()))

	// The first page completed and checkpointed, then the loop stopped
	assert.Equal(t, []string{"*"}, calls)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "https://openalex.org/A1", sink.records[0].AuthorID)
	assert.True(t, sink.closed)

	data, err := os.ReadFile(cursorPath)
	require.NoError(t, err)
	assert.Equal(t, "CUR2", string(data))
}

func TestRun_PreloadFailureNeverOpensSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	factory, opened := factoryFor(&memSink{})
	c := newTestCollector(t, srv.URL, filepath.Join(t.TempDir(), "cursor.txt"), factory, nil, zap.NewNop())

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preload field subtree")
	assert.False(t, *opened, "no output file is created or held open when preload fails")
}

func TestRun_SinkClosedWhenPagingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/concepts":
			fmt.Fprint(w, `{"meta":{"next_cursor":""},"results":[]}`)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	sink := &memSink{}
	factory, opened := factoryFor(sink)
	c := newTestCollector(t, srv.URL, filepath.Join(t.TempDir(), "cursor.txt"), factory, nil, zap.NewNop())

	require.Error(t, c.Run(context.Background()))
	assert.True(t, *opened)
	assert.True(t, sink.closed, "sink closed on the error exit path")
}

func TestRun_AnnouncesCandidatesOnFreshRunsOnly(t *testing.T) {
	countMsgs := func(logs *observer.ObservedLogs, msg string) int {
		n := 0
		for _, e := range logs.All() {
			if e.Message == msg {
				n++
			}
		}
		return n
	}

	var calls []string
	srv := catalogServer(t, &calls)
	defer srv.Close()

	dir := t.TempDir()

	// Fresh run: one candidate-total announcement
	core, logs := observer.New(zap.InfoLevel)
	factory, _ := factoryFor(&memSink{})
	c := newTestCollector(t, srv.URL, filepath.Join(dir, "fresh.txt"), factory, nil, zap.New(core))
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 1, countMsgs(logs, "collection started"))
	assert.Equal(t, 0, countMsgs(logs, "resuming from saved cursor"))

	// Resumed run: the resume line replaces the announcement
	resumePath := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(resumePath, []byte("CUR2"), 0o644))

	core, logs = observer.New(zap.InfoLevel)
	factory, _ = factoryFor(&memSink{})
	c = newTestCollector(t, srv.URL, resumePath, factory, nil, zap.New(core))
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 0, countMsgs(logs, "collection started"))
	assert.Equal(t, 1, countMsgs(logs, "resuming from saved cursor"))
}

func TestRun_PeriodicFlush(t *testing.T) {
	var calls []string
	srv := catalogServer(t, &calls)
	defer srv.Close()

	sink := &memSink{}
	factory, _ := factoryFor(sink)
	c := newTestCollector(t, srv.URL, filepath.Join(t.TempDir(), "cursor.txt"), factory, nil, zap.NewNop())

	require.NoError(t, c.Run(context.Background()))

	// FlushPages=1: the first page flushes; the last page exits the loop first
	assert.Equal(t, 1, sink.flushes)
}
