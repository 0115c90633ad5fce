package library

import (
	"context"
	"errors"
)

// NoticeKind classifies a Notice for rendering.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is an outcome the presentation layer renders verbatim.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Receipt *Receipt   `json:"receipt,omitempty"`
	Err     error      `json:"-"`
}

// Session is the per-visitor context: it owns the cart and the identity and
// references the shared catalog, checkout service and accounts.
type Session struct {
	catalog  CatalogStore
	checkout *CheckoutService
	accounts *Accounts
	history  HistoryStore

	cart     *Cart
	identity *SessionIdentity
}

func NewSession(catalog CatalogStore, checkout *CheckoutService, accounts *Accounts, history HistoryStore) *Session {
	return &Session{
		catalog:  catalog,
		checkout: checkout,
		accounts: accounts,
		history:  history,
		cart:     NewCart(catalog),
		identity: &SessionIdentity{},
	}
}

func (s *Session) Cart() *Cart { return s.cart }

func (s *Session) Identity() *SessionIdentity { return s.identity }

// OnAdd handles the "add to cart" gesture.
func (s *Session) OnAdd(bookID int64) Notice {
	ev, err := s.cart.Add(bookID)
	if err != nil {
		return Notice{Kind: NoticeError, Message: UserMessage(err), Err: err}
	}
	return Notice{Kind: NoticeSuccess, Message: ev.Message()}
}

// OnRemove handles the "remove from cart" gesture. Removals render in the
// error style.
func (s *Session) OnRemove(bookID int64) Notice {
	ev, err := s.cart.Remove(bookID)
	if err != nil {
		return Notice{Kind: NoticeError, Message: UserMessage(err), Err: err}
	}
	return Notice{Kind: NoticeError, Message: ev.Message()}
}

// OnCheckout handles the "checkout" gesture.
func (s *Session) OnCheckout(ctx context.Context) Notice {
	receipt, err := s.checkout.Checkout(ctx, s.cart, s.identity)
	if err != nil {
		return Notice{Kind: NoticeError, Message: receipt.Message, Receipt: &receipt, Err: err}
	}
	return Notice{Kind: NoticeSuccess, Message: receipt.Message, Receipt: &receipt, Err: receipt.HistoryErr}
}

// Register creates an account and signs the session in.
func (s *Session) Register(ctx context.Context, email, password string) Notice {
	if s.accounts == nil {
		return Notice{Kind: NoticeError, Message: "Registration is not available.", Err: errors.New("no account registry")}
	}
	user, err := s.accounts.Register(ctx, email, password)
	if err != nil {
		return Notice{Kind: NoticeError, Message: UserMessage(err), Err: err}
	}
	s.identity.SignIn(user)
	return Notice{Kind: NoticeSuccess, Message: "Registered and signed in as " + user}
}

// Login verifies credentials and signs the session in.
func (s *Session) Login(ctx context.Context, email, password string) Notice {
	if s.accounts == nil {
		return Notice{Kind: NoticeError, Message: "Login is not available.", Err: errors.New("no account registry")}
	}
	user, err := s.accounts.Login(ctx, email, password)
	if err != nil {
		return Notice{Kind: NoticeError, Message: UserMessage(err), Err: err}
	}
	s.identity.SignIn(user)
	return Notice{Kind: NoticeSuccess, Message: "Signed in as " + user}
}

func (s *Session) Logout() Notice {
	s.identity.SignOut()
	return Notice{Kind: NoticeInfo, Message: "Not signed in"}
}

// History returns the signed-in user's past checkouts.
func (s *Session) History(ctx context.Context) ([]HistoryRecord, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return s.history.List(ctx, user)
}

// ShelfItem is one catalog row as the borrow page shows it.
type ShelfItem struct {
	Book
	InCart     bool `json:"in_cart"`
	Borrowable bool `json:"borrowable"`
}

// View is everything the presentation layer needs to render the borrow page.
type View struct {
	User      string      `json:"user,omitempty"`
	Shelf     []ShelfItem `json:"shelf"`
	Genres    []string    `json:"genres"`
	Cart      []Book      `json:"cart"`
	CartCount int         `json:"cart_count"`
	CanCheck  bool        `json:"can_checkout"`
}

// Snapshot builds the View for the given search text and genre.
func (s *Session) Snapshot(query, genre string) (View, error) {
	all, err := s.catalog.List()
	if err != nil {
		return View{}, err
	}
	user, _ := s.identity.CurrentUser()
	v := View{
		User:      user,
		Genres:    Genres(all),
		Cart:      s.cart.Items(),
		CartCount: s.cart.Len(),
		CanCheck:  !s.cart.IsEmpty(),
		Shelf:     []ShelfItem{},
	}
	for _, b := range FilterBooks(all, query, genre) {
		in := s.cart.Contains(b.ID)
		v.Shelf = append(v.Shelf, ShelfItem{Book: b, InCart: in, Borrowable: b.Available && !in})
	}
	return v, nil
}
