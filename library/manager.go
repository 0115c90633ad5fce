package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LibraryManager is a thin façade wiring the Database to the borrowing
// services, keeping CLI and HTTP code simple.
type LibraryManager struct {
	db       *Database
	history  HistoryStore
	accounts *Accounts
	checkout *CheckoutService
	logger   Logger
}

type managerConfig struct {
	historyStorage KVStorage
	logger         Logger
	clock          Clock
	accountOpts    []AccountsOption
}

// ManagerOption configures NewLibraryManager.
type ManagerOption func(*managerConfig)

// WithHistoryStorage keeps borrow history somewhere other than the SQLite kv
// table (memory, Redis).
func WithHistoryStorage(s KVStorage) ManagerOption {
	return func(c *managerConfig) { c.historyStorage = s }
}

func WithManagerLogger(l Logger) ManagerOption {
	return func(c *managerConfig) { c.logger = l }
}

func WithManagerClock(clock Clock) ManagerOption {
	return func(c *managerConfig) { c.clock = clock }
}

func WithAccountOptions(opts ...AccountsOption) ManagerOption {
	return func(c *managerConfig) { c.accountOpts = append(c.accountOpts, opts...) }
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, opts ...ManagerOption) (*LibraryManager, error) {
	cfg := managerConfig{logger: NopLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	storage := cfg.historyStorage
	if storage == nil {
		storage = db
	}

	checkoutOpts := []CheckoutOption{WithLogger(cfg.logger), WithCommitGuard(NewBookLocks())}
	accountOpts := cfg.accountOpts
	if cfg.clock != nil {
		checkoutOpts = append(checkoutOpts, WithClock(cfg.clock))
		accountOpts = append(accountOpts, WithAccountsClock(cfg.clock))
	}

	history := NewKVHistory(storage, cfg.logger)
	return &LibraryManager{
		db:       db,
		history:  history,
		accounts: NewAccounts(db, accountOpts...),
		checkout: NewCheckoutService(db, history, checkoutOpts...),
		logger:   cfg.logger,
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// NewSession starts a fresh visitor session: empty cart, nobody signed in.
func (lm *LibraryManager) NewSession() *Session {
	return NewSession(lm.db, lm.checkout, lm.accounts, lm.history)
}

func (lm *LibraryManager) Accounts() *Accounts   { return lm.accounts }
func (lm *LibraryManager) History() HistoryStore { return lm.history }

// Health pings the database.
func (lm *LibraryManager) Health(ctx context.Context) error { return lm.db.Ping(ctx) }

// ------------------ Book helpers ------------------

func (lm *LibraryManager) GetBook(id int64) (Book, error) { return lm.db.Find(id) }
func (lm *LibraryManager) GetAllBooks() ([]Book, error)   { return lm.db.List() }

// SeedDemo inserts the demo catalog; existing ids are left alone.
func (lm *LibraryManager) SeedDemo() (int, error) {
	n, err := lm.db.SeedBooks(DemoBooks())
	if err != nil {
		return 0, fmt.Errorf("seed demo catalog: %w", err)
	}
	if n > 0 {
		lm.logger.Info("seeded demo catalog", "books", n)
	}
	return n, nil
}

// ImportBooksFromFile reads a JSON array of books from path (relative paths
// resolve from cwd) and seeds them.
func (lm *LibraryManager) ImportBooksFromFile(path string) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return lm.db.ImportBooks(f)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book, inCart bool) string {
	status := "available"
	switch {
	case inCart:
		status = "in cart"
	case !b.Available:
		status = "borrowed"
	}
	return fmt.Sprintf("%-5d %-30s %-25s %-15s %-10s", b.ID, b.Title, b.Author, b.Genre, status)
}

// Truncate shortens s to at most maxLen runes, ending in "..." when cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
