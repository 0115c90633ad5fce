package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ReturnReminder is appended to every successful checkout message.
const ReturnReminder = "Please return them by next month."

// CheckoutState is a state of one checkout attempt.
type CheckoutState string

const (
	StateIdle       CheckoutState = "idle"
	StateValidating CheckoutState = "validating"
	StateCommitting CheckoutState = "committing"
	StateDone       CheckoutState = "done"
	StateRejected   CheckoutState = "rejected"
)

// Receipt is the result of a checkout attempt. State is StateDone or
// StateRejected.
type Receipt struct {
	State     CheckoutState `json:"state"`
	UserID    string        `json:"user_id,omitempty"`
	BookIDs   []int64       `json:"book_ids,omitempty"`
	Titles    []string      `json:"titles,omitempty"`
	Timestamp *time.Time    `json:"timestamp,omitempty"`
	Reminder  string        `json:"reminder,omitempty"`
	Message   string        `json:"message"`

	// HistoryErr wraps ErrHistoryPersist when the commit went through but the
	// history record could not be stored.
	HistoryErr error `json:"-"`
}

// Clock returns the current instant.
type Clock func() time.Time

// CheckoutService turns a cart into reduced availability plus a history record.
type CheckoutService struct {
	catalog CatalogStore
	history HistoryStore
	clock   Clock
	logger  Logger
	guard   *BookLocks
}

// CheckoutOption configures a CheckoutService.
type CheckoutOption func(*CheckoutService)

func WithClock(clock Clock) CheckoutOption {
	return func(s *CheckoutService) { s.clock = clock }
}

func WithLogger(logger Logger) CheckoutOption {
	return func(s *CheckoutService) { s.logger = logger }
}

// WithCommitGuard serializes commits per book and re-checks availability
// under the locks. Needed when several sessions share one catalog.
func WithCommitGuard(locks *BookLocks) CheckoutOption {
	return func(s *CheckoutService) { s.guard = locks }
}

func NewCheckoutService(catalog CatalogStore, history HistoryStore, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		catalog: catalog,
		history: history,
		clock:   time.Now,
		logger:  NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout runs one attempt. Rejections (ErrEmptyCart, ErrNotAuthenticated
// and, with a commit guard, ErrBookUnavailable) leave cart and catalog
// untouched and are returned together with a rejected Receipt. So does a
// failed catalog write, reported as ErrCommitFailed.
func (s *CheckoutService) Checkout(ctx context.Context, cart *Cart, auth AuthGate) (Receipt, error) {
	state := StateIdle
	s.transition(&state, StateValidating)

	if cart.IsEmpty() {
		return s.reject(&state, ErrEmptyCart), ErrEmptyCart
	}
	userID, ok := auth.CurrentUser()
	if !ok {
		return s.reject(&state, ErrNotAuthenticated), ErrNotAuthenticated
	}

	snapshot := cart.Items()
	ids := make([]int64, len(snapshot))
	titles := make([]string, len(snapshot))
	for i, b := range snapshot {
		ids[i] = b.ID
		titles[i] = b.Title
	}

	if s.guard != nil {
		unlock := s.guard.Lock(ids...)
		defer unlock()
		if err := s.recheck(ids); err != nil {
			return s.reject(&state, err), err
		}
	}

	s.transition(&state, StateCommitting)
	if err := s.catalog.Borrow(ids); err != nil {
		if !errors.Is(err, ErrBookNotFound) {
			err = fmt.Errorf("%w: %w", ErrCommitFailed, err)
		}
		s.logger.Error("availability update failed", "user", userID, "books", ids, "error", err)
		return s.reject(&state, err), err
	}

	rec := HistoryRecord{
		Timestamp: s.clock().UTC(),
		BookIDs:   ids,
		Titles:    titles,
	}
	receipt := Receipt{
		UserID:    userID,
		BookIDs:   ids,
		Titles:    titles,
		Timestamp: &rec.Timestamp,
		Reminder:  ReturnReminder,
		Message:   fmt.Sprintf("Success! You have borrowed: %s. %s", strings.Join(titles, ", "), ReturnReminder),
	}
	if err := s.history.Append(ctx, userID, rec); err != nil {
		receipt.HistoryErr = fmt.Errorf("%w: %w", ErrHistoryPersist, err)
		s.logger.Error("failed to save history", "user", userID, "error", err)
	}

	cart.Clear()
	s.transition(&state, StateDone)
	receipt.State = state
	s.logger.Info("checkout committed", "user", userID, "books", len(ids))
	return receipt, nil
}

func (s *CheckoutService) recheck(ids []int64) error {
	for _, id := range ids {
		b, err := s.catalog.Find(id)
		if err != nil {
			return err
		}
		if !b.Available {
			return fmt.Errorf("book %d borrowed meanwhile: %w", id, ErrBookUnavailable)
		}
	}
	return nil
}

func (s *CheckoutService) reject(state *CheckoutState, reason error) Receipt {
	s.transition(state, StateRejected)
	s.logger.Debug("checkout rejected", "reason", reason)
	return Receipt{State: *state, Message: UserMessage(reason)}
}

func (s *CheckoutService) transition(state *CheckoutState, next CheckoutState) {
	s.logger.Debug("checkout state", "from", *state, "to", next)
	*state = next
}

// IsRejection reports whether err is a checkout precondition failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrBookUnavailable)
}

// BookLocks hands out one mutex per book id.
type BookLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewBookLocks() *BookLocks {
	return &BookLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the locks for ids in ascending order and returns the release
// function.
func (l *BookLocks) Lock(ids ...int64) func() {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	held := make([]*sync.Mutex, 0, len(sorted))
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		m := l.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (l *BookLocks) get(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}
