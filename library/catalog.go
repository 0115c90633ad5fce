package library

import (
	"fmt"
	"strings"
	"sync"
)

// CatalogStore holds the working copy of the book records.
type CatalogStore interface {
	List() ([]Book, error)
	Find(id int64) (Book, error)
	SetAvailable(id int64, available bool) error
	// Borrow marks every id unavailable, or none of them on error.
	Borrow(ids []int64) error
}

// MemoryCatalog is an in-process CatalogStore preserving insertion order.
type MemoryCatalog struct {
	mu    sync.RWMutex
	books []Book
	index map[int64]int
}

// NewMemoryCatalog copies books into a new catalog. Duplicate ids are rejected.
func NewMemoryCatalog(books []Book) (*MemoryCatalog, error) {
	c := &MemoryCatalog{
		books: make([]Book, 0, len(books)),
		index: make(map[int64]int, len(books)),
	}
	for _, b := range books {
		if _, dup := c.index[b.ID]; dup {
			return nil, fmt.Errorf("duplicate book id %d", b.ID)
		}
		c.index[b.ID] = len(c.books)
		c.books = append(c.books, b)
	}
	return c, nil
}

func (c *MemoryCatalog) List() ([]Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Book, len(c.books))
	copy(out, c.books)
	return out, nil
}

func (c *MemoryCatalog) Find(id int64) (Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return Book{}, fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	return c.books[i], nil
}

func (c *MemoryCatalog) SetAvailable(id int64, available bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	c.books[i].Available = available
	return nil
}

func (c *MemoryCatalog) Borrow(ids []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if _, ok := c.index[id]; !ok {
			return fmt.Errorf("book %d: %w", id, ErrBookNotFound)
		}
	}
	for _, id := range ids {
		c.books[c.index[id]].Available = false
	}
	return nil
}

// ---------------------------------------------------------------------------
// Filtering
// ---------------------------------------------------------------------------

// FilterBooks keeps the books whose "title author isbn genre" text contains
// query (case-insensitive) and whose genre equals genre. An empty or "all"
// genre matches everything.
func FilterBooks(books []Book, query, genre string) []Book {
	q := strings.ToLower(strings.TrimSpace(query))
	g := strings.ToLower(strings.TrimSpace(genre))
	if g == "" {
		g = "all"
	}

	out := make([]Book, 0, len(books))
	for _, b := range books {
		text := strings.ToLower(fmt.Sprintf("%s %s %s %s", b.Title, b.Author, b.ISBN, b.Genre))
		if !strings.Contains(text, q) {
			continue
		}
		if g != "all" && strings.ToLower(b.Genre) != g {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Genres returns the distinct genres in first-seen order. Empty genres are
// reported as "Unknown".
func Genres(books []Book) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range books {
		g := strings.TrimSpace(b.Genre)
		if g == "" {
			g = "Unknown"
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}
