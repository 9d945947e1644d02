package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/gap-backtest/internal/ai"
	"github.com/camuig/gap-backtest/internal/config"
	"github.com/camuig/gap-backtest/internal/logger"
	"github.com/camuig/gap-backtest/internal/market"
	"github.com/camuig/gap-backtest/internal/storage"
	"github.com/camuig/gap-backtest/internal/telegram"
)

const disclosureCSV = `Stkcd,Reptyp,Accper,Annodt,Profita
1,A,2019-03-31,2019-04-20,100
1,A,2019-06-30,2019-07-20,110
1,A,2019-09-30,2019-10-20,120
1,A,2019-12-31,2020-01-20,130
1,A,2020-03-31,2020-04-20,160
2,A,2019-03-31,2019-04-20,100
2,A,2019-06-30,2019-07-20,110
2,A,2019-09-30,2019-10-20,120
2,A,2019-12-31,2020-01-20,130
2,A,2020-03-31,2020-04-20,140
`

const tradingShard0 = `Stkcd,Trddt,Opnprc,Hiprc,Loprc,Clsprc
1,2020-04-17,9.5,10,9,9.5
1,2020-04-20,10.6,11.5,10.5,11
1,2020-07-20,12,12.5,11.8,12.1
`

const tradingShard1 = `Stkcd,Trddt,Opnprc,Hiprc,Loprc,Clsprc
2,2020-04-17,19,20,18,19
2,2020-04-20,21.5,23,21,22
2,2020-07-20,26,27,25,26.4
`

const benchmarkCSV = "date,中证1000_close\n2020-04-17,5900\n2020-04-20,6000\n"

type fakeStore struct {
	saved   []*storage.Run
	updated []storage.Run
	results map[string]storage.RunResults
	err     error
}

func (f *fakeStore) SaveRun(run *storage.Run) error {
	f.saved = append(f.saved, run)
	return nil
}

func (f *fakeStore) UpdateRun(run *storage.Run) error {
	f.updated = append(f.updated, *run)
	return nil
}

func (f *fakeStore) SaveRunResults(runID string, res storage.RunResults) error {
	if f.err != nil {
		return f.err
	}
	if f.results == nil {
		f.results = make(map[string]storage.RunResults)
	}
	f.results[runID] = res
	return nil
}

type fakeNotifier struct {
	summaries []telegram.RunReport
	errors    []string
}

func (f *fakeNotifier) NotifyRunSummary(r telegram.RunReport) { f.summaries = append(f.summaries, r) }
func (f *fakeNotifier) NotifyError(stage string, err error)   { f.errors = append(f.errors, stage) }

type fakeCommentator struct {
	req *ai.CommentaryRequest
	err error
}

func (f *fakeCommentator) Comment(_ context.Context, req *ai.CommentaryRequest) (string, error) {
	f.req = req
	return "fine", f.err
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func setup(t *testing.T, extra string) *config.Config {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "stk", "TRD_Dalyr0.csv"), tradingShard0)
	writeFile(t, filepath.Join(root, "stk", "TRD_Dalyr1.csv"), tradingShard1)
	writeFile(t, filepath.Join(root, "stk", "~$TRD_Dalyr0.csv"), "locked")
	writeFile(t, filepath.Join(root, "pft", "IAR_Rept.csv"), disclosureCSV)
	writeFile(t, filepath.Join(root, "index.csv"), benchmarkCSV)

	yaml := fmt.Sprintf(`
data:
  trading_dir: %s
  disclosure_dir: %s
  benchmark_file: %s
output:
  dir: %s
  write_merged: true
%s`, filepath.Join(root, "stk"), filepath.Join(root, "pft"), filepath.Join(root, "index.csv"),
		filepath.Join(root, "out"), extra)
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	cfg := setup(t, "")
	store, notifier, commentator := &fakeStore{}, &fakeNotifier{}, &fakeCommentator{}

	rep, err := NewRunner(cfg, logger.Nop()).
		WithStore(store).
		WithNotifier(notifier).
		WithCommentator(commentator).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"TRD_Dalyr0", "TRD_Dalyr1"}, rep.Trading.Loaded)
	assert.Equal(t, []string{"~$TRD_Dalyr0.csv"}, rep.Trading.Skipped)
	assert.Equal(t, 6, rep.TradingRows)
	assert.Equal(t, 10, rep.DisclosureRows)

	require.Len(t, rep.Events, 2)
	assert.InDelta(t, 5.0, rep.Events[0].GapPct, 1e-9)
	require.Len(t, rep.Selected, 1)
	assert.Equal(t, "000001", rep.Selected[0].Code)
	assert.Equal(t, 1, rep.SelectStats.Rejected)

	require.Len(t, rep.Backtest.Portfolio, 1)
	assert.InDelta(t, 0.1, rep.Summary.CumulativeReturn, 1e-9)
	require.NotNil(t, rep.Summary.BenchmarkCumulative)
	assert.Zero(t, *rep.Summary.BenchmarkCumulative)

	assert.Len(t, rep.Outputs, 7)
	for _, p := range rep.Outputs {
		assert.FileExists(t, p)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, FileSelected))
	require.NoError(t, err)
	assert.Contains(t, string(data), "000001,A,2020-04-20,2020-04-20")

	require.Len(t, store.saved, 1)
	runID := store.saved[0].ID
	assert.Equal(t, runID, rep.RunID)
	assert.Len(t, store.results[runID].Positions, 1)
	last := store.updated[len(store.updated)-1]
	assert.Equal(t, storage.RunStatusCompleted, last.Status)
	assert.Equal(t, "fine", last.Commentary)
	assert.NotContains(t, string(last.Config), "token")

	require.Len(t, notifier.summaries, 1)
	assert.Equal(t, 1, notifier.summaries[0].Selected)
	assert.Empty(t, notifier.errors)

	require.NotNil(t, commentator.req)
	assert.Equal(t, "multi_period_growth > 0.5", commentator.req.Strategy)
	assert.Equal(t, "中证1000", commentator.req.Benchmark)
}

func TestRunWithoutCollaborators(t *testing.T) {
	cfg := setup(t, "strategy:\n  growth_threshold: 0.3\n")

	rep, err := NewRunner(cfg, logger.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.RunID)
	assert.Len(t, rep.Selected, 2)
	assert.InDelta(t, 0.15, rep.Summary.CumulativeReturn, 1e-9)
}

func TestRunMissingDisclosureShardFails(t *testing.T) {
	cfg := setup(t, "")
	cfg.Data.DisclosureShard = "FS_Comins"
	store, notifier := &fakeStore{}, &fakeNotifier{}

	_, err := NewRunner(cfg, logger.Nop()).WithStore(store).WithNotifier(notifier).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FS_Comins")

	last := store.updated[len(store.updated)-1]
	assert.Equal(t, storage.RunStatusFailed, last.Status)
	assert.Contains(t, last.Error, "FS_Comins")
	assert.Equal(t, []string{"merge"}, notifier.errors)
	assert.Empty(t, notifier.summaries)
}

func TestRunMissingBenchmarkColumnIsSchemaError(t *testing.T) {
	cfg := setup(t, "strategy:\n  benchmark_index: IMOEX\n")

	_, err := NewRunner(cfg, logger.Nop()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, market.IsSchemaError(err))
	assert.Contains(t, err.Error(), "IMOEX_close")
}

func TestRunCommentaryFailureIsNotFatal(t *testing.T) {
	cfg := setup(t, "")
	rep, err := NewRunner(cfg, logger.Nop()).
		WithCommentator(&fakeCommentator{err: errors.New("timeout")}).
		Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Commentary)
}

func TestRunStoreFailureAbortsRun(t *testing.T) {
	cfg := setup(t, "")
	store := &fakeStore{err: errors.New("disk full")}

	_, err := NewRunner(cfg, logger.Nop()).WithStore(store).Run(context.Background())
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, storage.RunStatusFailed, store.updated[len(store.updated)-1].Status)
}

func TestRunCanceled(t *testing.T) {
	cfg := setup(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(cfg, logger.Nop()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelingNotifier stops the loop once it has seen enough failed runs.
type cancelingNotifier struct {
	fakeNotifier
	after  int
	cancel context.CancelFunc
}

func (c *cancelingNotifier) NotifyError(stage string, err error) {
	c.fakeNotifier.NotifyError(stage, err)
	if len(c.errors) == c.after {
		c.cancel()
	}
}

func TestRunEveryKeepsGoingAfterFailures(t *testing.T) {
	cfg := setup(t, "")
	cfg.Data.DisclosureShard = "FS_Comins"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store := &fakeStore{}
	notifier := &cancelingNotifier{after: 3, cancel: cancel}

	NewRunner(cfg, logger.Nop()).WithStore(store).WithNotifier(notifier).RunEvery(ctx, time.Millisecond)

	require.ErrorIs(t, ctx.Err(), context.Canceled, "loop stopped by the notifier, not the timeout")
	assert.Equal(t, []string{"merge", "merge", "merge"}, notifier.errors)
	assert.Len(t, store.saved, 3)
	for _, run := range store.updated {
		assert.Equal(t, storage.RunStatusFailed, run.Status)
	}
}

func TestRunEveryStopsOnCanceledContext(t *testing.T) {
	cfg := setup(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		NewRunner(cfg, logger.Nop()).RunEvery(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunEvery did not return after cancellation")
	}
}
