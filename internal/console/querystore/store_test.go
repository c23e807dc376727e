package querystore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/herdvest/backoffice/internal/workflow"
)

type stubFetcher struct {
	mu      sync.Mutex
	filters []Filters
	results []*Result
	errs    []error
	block   chan struct{} // when set, the first call waits on it
	blocked bool
}

func (f *stubFetcher) FetchOrders(_ context.Context, filters Filters) (*Result, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filters)
	call := len(f.filters) - 1
	shouldBlock := f.block != nil && !f.blocked
	if shouldBlock {
		f.blocked = true
	}
	f.mu.Unlock()

	if shouldBlock {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var result *Result
	var err error
	if call < len(f.results) {
		result = f.results[call]
	}
	if call < len(f.errs) {
		err = f.errs[call]
	}
	if result == nil && err == nil {
		result = &Result{}
	}
	return result, err
}

func (f *stubFetcher) calls() []Filters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Filters(nil), f.filters...)
}

func int64Ptr(v int64) *int64 { return &v }

func newTestStore(fetcher Fetcher, persist ViewStore, debounce time.Duration) *Store {
	return NewStore(fetcher, persist, debounce, zap.NewNop())
}

func TestSetFilterResetsPage(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value string
	}{
		{"status", FieldStatus, "PAID"},
		{"payment type", FieldPaymentType, "BANK_TRANSFER"},
		{"transfer mode", FieldTransferMode, "NEFT"},
		{"farm", FieldFarm, "farm-7"},
		{"page size", FieldPageSize, "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{}
			store := newTestStore(fetcher, nil, 0)

			store.SetPage(context.Background(), 4)
			require.Equal(t, 4, store.Filters().Page)

			store.SetFilter(context.Background(), tt.field, tt.value)
			assert.Equal(t, 1, store.Filters().Page)
		})
	}

	t.Run("set page keeps other filters", func(t *testing.T) {
		fetcher := &stubFetcher{}
		store := newTestStore(fetcher, nil, 0)

		store.SetFilter(context.Background(), FieldStatus, "PAID")
		store.SetPage(context.Background(), 3)

		filters := store.Filters()
		assert.Equal(t, "PAID", filters.Status)
		assert.Equal(t, 3, filters.Page)
	})
}

func TestSearchIsDebounced(t *testing.T) {
	fetcher := &stubFetcher{}
	store := newTestStore(fetcher, nil, 30*time.Millisecond)

	store.SetFilter(context.Background(), FieldSearch, "ra")
	store.SetFilter(context.Background(), FieldSearch, "ram")
	store.SetFilter(context.Background(), FieldSearch, "rames")

	// Inside the settle window nothing has fired yet.
	assert.Empty(t, fetcher.calls())

	assert.Eventually(t, func() bool {
		return len(fetcher.calls()) == 1
	}, time.Second, 5*time.Millisecond)

	calls := fetcher.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "rames", calls[0].Search)
	assert.Equal(t, 1, calls[0].Page)
}

func TestNonSearchFiltersFetchImmediately(t *testing.T) {
	fetcher := &stubFetcher{}
	store := newTestStore(fetcher, nil, time.Hour)

	store.SetFilter(context.Background(), FieldStatus, "PAID")

	calls := fetcher.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "PAID", calls[0].Status)
}

func TestFetchErrorKeepsPreviousItems(t *testing.T) {
	fetcher := &stubFetcher{
		results: []*Result{
			{
				Orders:        []Order{{ID: "order-1"}, {ID: "order-2"}},
				TotalFiltered: 2,
			},
			nil,
		},
		errs: []error{nil, errors.New("connection refused")},
	}
	store := newTestStore(fetcher, nil, 0)

	store.Refresh(context.Background())
	require.Len(t, store.Snapshot().Items, 2)

	store.Refresh(context.Background())

	state := store.Snapshot()
	assert.Error(t, state.Err)
	assert.Len(t, state.Items, 2)
	assert.Equal(t, "order-1", state.Items[0].ID)
}

func TestAbsentCountsNeverZeroKnownOnes(t *testing.T) {
	fetcher := &stubFetcher{
		results: []*Result{
			{
				TotalFiltered: 5,
				Counts: Counts{
					TotalAllOrders: int64Ptr(40),
					Paid:           int64Ptr(5),
					Rejected:       int64Ptr(3),
				},
			},
			{
				TotalFiltered: 3,
				Counts:        Counts{Rejected: int64Ptr(4)},
			},
		},
	}
	store := newTestStore(fetcher, nil, 0)

	store.Refresh(context.Background())
	store.Refresh(context.Background())

	state := store.Snapshot()
	assert.Equal(t, int64(40), state.TotalAllOrders)
	assert.Equal(t, int64(5), state.CountsByStatus[workflow.StatusPaid])
	assert.Equal(t, int64(4), state.CountsByStatus[workflow.StatusRejected])
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	fetcher := &stubFetcher{
		block: release,
		results: []*Result{
			{Orders: []Order{{ID: "stale"}}, TotalFiltered: 1},
			{Orders: []Order{{ID: "fresh"}}, TotalFiltered: 1},
		},
	}
	store := newTestStore(fetcher, nil, 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Refresh(context.Background()) // first call blocks in the fetcher
	}()

	assert.Eventually(t, func() bool {
		return len(fetcher.calls()) == 1
	}, time.Second, time.Millisecond)

	// Second fetch is issued later and completes first.
	store.Refresh(context.Background())
	require.Equal(t, "fresh", store.Snapshot().Items[0].ID)

	close(release)
	wg.Wait()

	// The first fetch resolved after a newer one; its result must not apply.
	assert.Equal(t, "fresh", store.Snapshot().Items[0].ID)
}

func TestViewPersistence(t *testing.T) {
	persist := NewMemoryViewStore()

	first := newTestStore(&stubFetcher{}, persist, 0)
	first.SetFilter(context.Background(), FieldStatus, "PAID")
	first.SetPage(context.Background(), 2)
	first.SetExpandedOrder("order-9")

	second := newTestStore(&stubFetcher{}, persist, 0)
	state := second.Snapshot()
	assert.Equal(t, "PAID", state.Filters.Status)
	assert.Equal(t, 2, state.Filters.Page)
	assert.Equal(t, "order-9", state.ExpandedOrderID)
}

func TestPersistedViewSanitized(t *testing.T) {
	persist := NewMemoryViewStore()
	require.NoError(t, persist.Save(&PersistedView{
		Filters: Filters{Page: 0, PageSize: -5},
	}))

	store := newTestStore(&stubFetcher{}, persist, 0)
	filters := store.Filters()
	assert.Equal(t, 1, filters.Page)
	assert.Equal(t, DefaultFilters().PageSize, filters.PageSize)
}

func TestFileViewStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/view.json"
	store := NewFileViewStore(path)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	view := &PersistedView{
		Filters:         Filters{Status: "PAID", Page: 3, PageSize: 20},
		ExpandedOrderID: "order-1",
	}
	require.NoError(t, store.Save(view))

	loaded, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, *view, *loaded)
}
