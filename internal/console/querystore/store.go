//go:generate mockgen -source ./store.go -destination=./mocks/store.go -package=mock_querystore
package querystore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/herdvest/backoffice/internal/workflow"
)

// Fetcher issues the filtered, paginated order query.
type Fetcher interface {
	FetchOrders(ctx context.Context, filters Filters) (*Result, error)
}

// State is a snapshot of the store. A fetch error keeps the previous items so
// the operator sees stale data with an error instead of a blank screen.
type State struct {
	Items           []Order
	Loading         bool
	Err             error
	TotalFiltered   int64
	TotalAllOrders  int64
	CountsByStatus  map[workflow.Status]int64
	Filters         Filters
	ExpandedOrderID string
}

// Store is the single holder of list-view state. Every mutation of filters or
// fetched data goes through it, so there is exactly one writer at any
// instant. Overlapping fetches are resolved last-issued-wins: each fetch gets
// a monotonically increasing sequence number and a completing fetch is
// discarded if a newer one has been issued since.
type Store struct {
	mu      sync.Mutex
	fetcher Fetcher
	persist ViewStore
	log     *zap.Logger

	debounce      time.Duration
	debounceTimer *time.Timer

	seq     uint64 // newest issued fetch
	applied uint64 // newest fetch whose result was applied

	state State
}

func NewStore(fetcher Fetcher, persist ViewStore, debounce time.Duration, log *zap.Logger) *Store {
	s := &Store{
		fetcher:  fetcher,
		persist:  persist,
		debounce: debounce,
		log:      log.Named("querystore"),
		state: State{
			Filters:        DefaultFilters(),
			CountsByStatus: make(map[workflow.Status]int64),
		},
	}
	if persist != nil {
		if view, err := persist.Load(); err != nil {
			s.log.Warn("failed to load persisted view, using defaults", zap.Error(err))
		} else if view != nil {
			if view.Filters.Page < 1 {
				view.Filters.Page = 1
			}
			if view.Filters.PageSize < 1 {
				view.Filters.PageSize = DefaultFilters().PageSize
			}
			s.state.Filters = view.Filters
			s.state.ExpandedOrderID = view.ExpandedOrderID
		}
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	out := s.state
	out.Items = append([]Order(nil), s.state.Items...)
	out.CountsByStatus = make(map[workflow.Status]int64, len(s.state.CountsByStatus))
	for k, v := range s.state.CountsByStatus {
		out.CountsByStatus[k] = v
	}
	return out
}

// Filters returns the currently active filters. The command executor uses
// this at refresh time so a post-decision reload reflects where the operator
// actually is, not where they started.
func (s *Store) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Filters
}

// SetFilter updates one filter dimension and resets the page to 1. Free-text
// search is debounced; every other change fetches immediately.
func (s *Store) SetFilter(ctx context.Context, field Field, value string) {
	s.mu.Lock()
	switch field {
	case FieldSearch:
		s.state.Filters.Search = value
	case FieldStatus:
		s.state.Filters.Status = value
	case FieldPaymentType:
		s.state.Filters.PaymentType = value
	case FieldTransferMode:
		s.state.Filters.TransferMode = value
	case FieldFarm:
		s.state.Filters.FarmID = value
	case FieldPageSize:
		// Page size changes keep the value sane rather than erroring.
		if n, ok := atoiPositive(value); ok {
			s.state.Filters.PageSize = n
		}
	default:
		s.mu.Unlock()
		return
	}
	s.state.Filters.Page = 1
	s.persistLocked()
	s.mu.Unlock()

	if field == FieldSearch {
		s.scheduleDebouncedFetch(ctx)
		return
	}
	s.Refresh(ctx)
}

// SetPage moves to another page without touching the other filters.
func (s *Store) SetPage(ctx context.Context, page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	s.state.Filters.Page = page
	s.persistLocked()
	s.mu.Unlock()

	s.Refresh(ctx)
}

// SetExpandedOrder remembers which order the operator has open so a reload
// resumes the same view.
func (s *Store) SetExpandedOrder(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ExpandedOrderID = orderID
	s.persistLocked()
}

func (s *Store) scheduleDebouncedFetch(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounce, func() {
		s.Refresh(ctx)
	})
}

// Refresh fetches using the currently active filters and applies the result
// if no newer fetch was issued meanwhile.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	filters := s.state.Filters
	s.state.Loading = true
	s.mu.Unlock()

	result, err := s.fetcher.FetchOrders(ctx, filters)

	s.mu.Lock()
	defer s.mu.Unlock()

	if mySeq != s.seq || mySeq <= s.applied {
		// A newer fetch superseded this one; disregard the response
		// whatever it was.
		return
	}
	s.applied = mySeq
	s.state.Loading = false

	if err != nil {
		s.state.Err = err
		s.log.Warn("order fetch failed, keeping previous items", zap.Error(err))
		return
	}

	s.state.Err = nil
	s.state.Items = result.Orders
	s.state.TotalFiltered = result.TotalFiltered
	s.mergeCountsLocked(result.Counts)
}

// mergeCountsLocked overlays only the counts the server actually reported; an
// absent count never zeroes a previously known badge.
func (s *Store) mergeCountsLocked(c Counts) {
	if c.TotalAllOrders != nil {
		s.state.TotalAllOrders = *c.TotalAllOrders
	}
	set := func(status workflow.Status, v *int64) {
		if v != nil {
			s.state.CountsByStatus[status] = *v
		}
	}
	set(workflow.StatusPendingPayment, c.PaymentDue)
	set(workflow.StatusPendingAdmin, c.PendingAdmin)
	set(workflow.StatusPendingSuperAdmin, c.PendingSuperAdmin)
	set(workflow.StatusPendingSuperAdminRejection, c.PendingSuperRejection)
	set(workflow.StatusPaid, c.Paid)
	set(workflow.StatusRejected, c.Rejected)
}

func (s *Store) persistLocked() {
	if s.persist == nil {
		return
	}
	view := &PersistedView{
		Filters:         s.state.Filters,
		ExpandedOrderID: s.state.ExpandedOrderID,
	}
	if err := s.persist.Save(view); err != nil {
		s.log.Warn("failed to persist view state", zap.Error(err))
	}
}

func atoiPositive(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
