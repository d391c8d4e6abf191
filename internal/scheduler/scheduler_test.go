package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	pages   []json.RawMessage
	failAll bool
	calls   int
}

func (f *fakeSource) SelectRange(ctx context.Context, table, columns string, offset, limit int) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAll {
		return nil, errors.New("fonte indisponível")
	}
	page := offset / limit
	if page >= len(f.pages) {
		return json.RawMessage(`[]`), nil
	}
	return f.pages[page], nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeNotifier) Notify(ctx context.Context, subject, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjects)
}

func pageOf(nums ...string) json.RawMessage {
	items := make([]string, len(nums))
	for i, n := range nums {
		items[i] = fmt.Sprintf(`{"NUM_AUTO_INFRACAO": %q, "UF": "PA", "VAL_AUTO_INFRACAO": "100,00"}`, n)
	}
	return json.RawMessage("[" + joinComma(items) + "]")
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += it
	}
	return out
}

func newTestScheduler(t *testing.T, source *fakeSource, notifier Notifier, cfg Config) *Scheduler {
	t.Helper()

	fetcher, err := dataset.NewFetcher(source, dataset.Config{Table: "ibama_infracao", PageSize: 2, MaxPages: 10}, logger.NewNoOpLogger())
	require.NoError(t, err)

	s, err := New(cfg, fetcher, notifier, logger.NewNoOpLogger())
	require.NoError(t, err)
	return s
}

func TestStartLoadsInitialDataset(t *testing.T) {
	source := &fakeSource{pages: []json.RawMessage{pageOf("A1", "A2"), pageOf("A3")}}
	s := newTestScheduler(t, source, nil, Config{Enabled: false})

	require.NoError(t, s.Start(context.Background()))

	ds := s.Dataset(context.Background())
	require.NotNil(t, ds)
	assert.Len(t, ds.Records, 3)

	st := s.Status()
	assert.Equal(t, 3, st.Records)
	assert.False(t, st.Partial)
	assert.Empty(t, st.LastError)
	assert.False(t, st.LastRefresh.IsZero())
	assert.True(t, st.NextRefresh.IsZero(), "disabled schedule has no next run")
}

func TestStartArmsCronWhenEnabled(t *testing.T) {
	source := &fakeSource{pages: []json.RawMessage{pageOf("A1")}}
	s := newTestScheduler(t, source, nil, Config{Enabled: true, Hour: 10})
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))

	st := s.Status()
	assert.False(t, st.NextRefresh.IsZero())
	assert.Equal(t, 10, st.NextRefresh.Hour())
}

func TestFailedRefreshKeepsPreviousDataset(t *testing.T) {
	source := &fakeSource{pages: []json.RawMessage{pageOf("A1")}}
	notifier := &fakeNotifier{}
	s := newTestScheduler(t, source, notifier, Config{Enabled: false})

	require.NoError(t, s.Start(context.Background()))
	require.Len(t, s.Dataset(context.Background()).Records, 1)

	source.mu.Lock()
	source.failAll = true
	source.mu.Unlock()

	st := s.Refresh(context.Background())

	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, 1, st.Records, "stale data survives a failed refresh")
	assert.Len(t, s.Dataset(context.Background()).Records, 1)
	assert.Equal(t, 1, notifier.count())
}

func TestPartialRefreshAlerts(t *testing.T) {
	// Page 0 is full, page 1 errors: the load keeps page 0 and marks partial.
	source := &fakeSource{pages: []json.RawMessage{pageOf("A1", "A2"), json.RawMessage(`{"not": "an array"}`)}}
	notifier := &fakeNotifier{}
	s := newTestScheduler(t, source, notifier, Config{Enabled: false})

	require.NoError(t, s.Start(context.Background()))

	st := s.Status()
	assert.Equal(t, 2, st.Records)
	assert.True(t, st.Partial)
	assert.Equal(t, 1, notifier.count())
}

func TestManualRefreshReplacesDataset(t *testing.T) {
	source := &fakeSource{pages: []json.RawMessage{pageOf("A1")}}
	s := newTestScheduler(t, source, nil, Config{Enabled: false})

	require.NoError(t, s.Start(context.Background()))

	source.mu.Lock()
	source.pages = []json.RawMessage{pageOf("B1", "B2"), pageOf("B3")}
	source.mu.Unlock()

	st := s.Refresh(context.Background())
	assert.Equal(t, 3, st.Records)
	assert.Empty(t, st.LastError)
}

func TestNewRejectsBadConfig(t *testing.T) {
	fetcher, err := dataset.NewFetcher(&fakeSource{}, dataset.Config{}, logger.NewNoOpLogger())
	require.NoError(t, err)

	_, err = New(Config{Hour: 24}, fetcher, nil, logger.NewNoOpLogger())
	assert.Error(t, err)

	_, err = New(Config{Timezone: "Not/AZone"}, fetcher, nil, logger.NewNoOpLogger())
	assert.Error(t, err)
}
