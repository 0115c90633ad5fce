package library

import (
	"errors"
	"testing"
)

func demoCatalog(t *testing.T) *MemoryCatalog {
	t.Helper()
	c, err := NewMemoryCatalog(DemoBooks())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func TestCartAddRemove(t *testing.T) {
	cart := NewCart(demoCatalog(t))

	ev, err := cart.Add(101)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if ev.Kind != EventAdded || ev.BookID != 101 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if got, want := ev.Message(), "'The 48 Laws of Power' added to cart!"; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}

	if _, err := cart.Add(104); err != nil {
		t.Fatalf("add 104: %v", err)
	}
	items := cart.Items()
	if len(items) != 2 || items[0].ID != 101 || items[1].ID != 104 {
		t.Fatalf("cart order wrong: %+v", items)
	}

	ev, err = cart.Remove(101)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got, want := ev.Message(), "'The 48 Laws of Power' removed from cart."; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
	if cart.Contains(101) || cart.Len() != 1 {
		t.Fatalf("remove did not take effect")
	}
}

func TestCartAddRejects(t *testing.T) {
	catalog := demoCatalog(t)
	if err := catalog.SetAvailable(105, false); err != nil {
		t.Fatalf("set available: %v", err)
	}
	cart := NewCart(catalog)
	if _, err := cart.Add(103); err != nil {
		t.Fatalf("add 103: %v", err)
	}

	tests := []struct {
		name string
		id   int64
		want error
	}{
		{"unknown", 999, ErrBookNotFound},
		{"on loan", 105, ErrBookUnavailable},
		{"duplicate", 103, ErrBookUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := cart.Add(tt.id); !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			if cart.Len() != 1 {
				t.Fatalf("cart changed on rejection: %d items", cart.Len())
			}
		})
	}
}

func TestCartRemoveMissing(t *testing.T) {
	cart := NewCart(demoCatalog(t))
	if _, err := cart.Remove(101); !errors.Is(err, ErrNotInCart) {
		t.Fatalf("want ErrNotInCart, got %v", err)
	}
}

func TestCartItemsIsCopy(t *testing.T) {
	cart := NewCart(demoCatalog(t))
	cart.Add(101)
	items := cart.Items()
	items[0].Title = "changed"
	if cart.Items()[0].Title == "changed" {
		t.Fatalf("Items leaked internal slice")
	}
}

func TestFilterBooks(t *testing.T) {
	books := DemoBooks()
	tests := []struct {
		query, genre string
		want         []int64
	}{
		{"", "all", nil},
		{"ROBERT", "", []int64{101, 103}},
		{"", "fantasy", []int64{104, 108}},
		{"the", "Classic", []int64{102, 110, 111}},
		{"978-0451524935", "all", []int64{106}},
		{"nothing matches", "all", []int64{}},
	}
	for _, tt := range tests {
		got := FilterBooks(books, tt.query, tt.genre)
		if tt.want == nil {
			if len(got) != len(books) {
				t.Fatalf("%q/%q: want all %d books, got %d", tt.query, tt.genre, len(books), len(got))
			}
			continue
		}
		if len(got) != len(tt.want) {
			t.Fatalf("%q/%q: want %v, got %d books", tt.query, tt.genre, tt.want, len(got))
		}
		for i, id := range tt.want {
			if got[i].ID != id {
				t.Fatalf("%q/%q: position %d want %d got %d", tt.query, tt.genre, i, id, got[i].ID)
			}
		}
	}
}

func TestGenres(t *testing.T) {
	got := Genres([]Book{{Genre: "Classic"}, {Genre: ""}, {Genre: "Fantasy"}, {Genre: "Classic"}})
	want := []string{"Classic", "Unknown", "Fantasy"}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}

func TestNewMemoryCatalogDuplicate(t *testing.T) {
	if _, err := NewMemoryCatalog([]Book{{ID: 1}, {ID: 1}}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestMemoryCatalogBorrowAllOrNothing(t *testing.T) {
	catalog := demoCatalog(t)
	if err := catalog.Borrow([]int64{101, 42}); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("want ErrBookNotFound, got %v", err)
	}
	if b, _ := catalog.Find(101); !b.Available {
		t.Fatalf("book 101 borrowed by a failed batch")
	}
	if err := catalog.Borrow([]int64{101, 102}); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	for _, id := range []int64{101, 102} {
		if b, _ := catalog.Find(id); b.Available {
			t.Fatalf("book %d still available", id)
		}
	}
}
