package library

import "fmt"

// CartEventKind tells the presentation layer what changed in the cart.
type CartEventKind string

const (
	EventAdded   CartEventKind = "added"
	EventRemoved CartEventKind = "removed"
)

// CartEvent is the observable outcome of a successful Add or Remove.
type CartEvent struct {
	Kind   CartEventKind `json:"kind"`
	BookID int64         `json:"book_id"`
	Title  string        `json:"title"`
}

// Message is the notice rendered for the event.
func (e CartEvent) Message() string {
	if e.Kind == EventRemoved {
		return fmt.Sprintf("'%s' removed from cart.", e.Title)
	}
	return fmt.Sprintf("'%s' added to cart!", e.Title)
}

// Cart is the ordered set of books a user intends to borrow. It is owned by a
// single session and is not safe for concurrent use.
type Cart struct {
	catalog CatalogStore
	items   []Book
}

func NewCart(catalog CatalogStore) *Cart {
	return &Cart{catalog: catalog}
}

// Add appends the book to the cart. Books on loan or already in the cart are
// rejected with ErrBookUnavailable.
func (c *Cart) Add(bookID int64) (CartEvent, error) {
	book, err := c.catalog.Find(bookID)
	if err != nil {
		return CartEvent{}, err
	}
	if !book.Available {
		return CartEvent{}, fmt.Errorf("book %d is on loan: %w", bookID, ErrBookUnavailable)
	}
	if c.Contains(bookID) {
		return CartEvent{}, fmt.Errorf("book %d already in cart: %w", bookID, ErrBookUnavailable)
	}
	c.items = append(c.items, book)
	return CartEvent{Kind: EventAdded, BookID: book.ID, Title: book.Title}, nil
}

func (c *Cart) Remove(bookID int64) (CartEvent, error) {
	for i, b := range c.items {
		if b.ID != bookID {
			continue
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		return CartEvent{Kind: EventRemoved, BookID: b.ID, Title: b.Title}, nil
	}
	return CartEvent{}, fmt.Errorf("book %d: %w", bookID, ErrNotInCart)
}

// Items returns the cart contents in add order.
func (c *Cart) Items() []Book {
	out := make([]Book, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Contains(bookID int64) bool {
	for _, b := range c.items {
		if b.ID == bookID {
			return true
		}
	}
	return false
}

// Clear empties the cart. Only CheckoutService calls it, after a commit.
func (c *Cart) Clear() { c.items = nil }

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

func (c *Cart) Len() int { return len(c.items) }
