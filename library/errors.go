package library

import "errors"

var (
	// Cart mutation errors.
	ErrBookNotFound    = errors.New("book not found")
	ErrBookUnavailable = errors.New("book unavailable")
	ErrNotInCart       = errors.New("book not in cart")

	// Checkout preconditions.
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrHistoryPersist is reported on a Receipt when the history write failed
	// after a committed checkout.
	ErrHistoryPersist = errors.New("history persist failure")
	ErrPersistence    = errors.New("persistence error")
	// ErrCommitFailed means the catalog could not record the borrow. Nothing
	// was committed.
	ErrCommitFailed = errors.New("checkout commit failed")

	// Account errors.
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("invalid password")
)

const (
	MsgEmptyCart          = "Your cart is empty. Please add books to borrow."
	MsgNotAuthenticated   = "Please register or login before borrowing."
	MsgInvalidCredentials = "Invalid email or password."
	MsgAccountExists      = "An account with this email already exists."
)

// UserMessage maps an error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCart):
		return MsgEmptyCart
	case errors.Is(err, ErrNotAuthenticated):
		return MsgNotAuthenticated
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, ErrAccountExists):
		return MsgAccountExists
	case errors.Is(err, ErrCommitFailed):
		return "Checkout failed. Please try again."
	case errors.Is(err, ErrBookNotFound):
		return "That book is not in the catalog."
	case errors.Is(err, ErrBookUnavailable):
		return "That book is unavailable."
	case errors.Is(err, ErrNotInCart):
		return "That book is not in your cart."
	}
	// Validation errors already carry the user-facing text.
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return "Something went wrong. Please try again."
}

// ValidationError carries a user-facing message for a rejected email or password.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string { return e.Kind.Error() + ": " + e.Message }

func (e *ValidationError) Unwrap() error { return e.Kind }
