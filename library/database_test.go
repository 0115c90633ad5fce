package library

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedBooksIdempotent(t *testing.T) {
	db := tempDB(t)
	n, err := db.SeedBooks(DemoBooks())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 12 {
		t.Fatalf("want 12 inserted, got %d", n)
	}
	if err := db.SetAvailable(101, false); err != nil {
		t.Fatalf("set available: %v", err)
	}

	// Re-seeding must not reset availability.
	n, err = db.SeedBooks(DemoBooks())
	if err != nil || n != 0 {
		t.Fatalf("reseed: %d %v", n, err)
	}
	b, err := db.Find(101)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if b.Available {
		t.Fatalf("reseed reset availability")
	}

	books, err := db.List()
	if err != nil || len(books) != 12 || books[0].ID != 101 || books[11].ID != 112 {
		t.Fatalf("list: %d books, %v", len(books), err)
	}
}

func TestCatalogNotFound(t *testing.T) {
	db := tempDB(t)
	if _, err := db.Find(42); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("find: want ErrBookNotFound, got %v", err)
	}
	if err := db.SetAvailable(42, false); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("set: want ErrBookNotFound, got %v", err)
	}
}

func TestAddBookAutoID(t *testing.T) {
	db := tempDB(t)
	id, err := db.AddBook(Book{Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", Available: true})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == 0 {
		t.Fatalf("no id assigned")
	}
	b, _ := db.Find(id)
	if b.Title != "Dune" || !b.Available {
		t.Fatalf("book = %+v", b)
	}
}

func TestImportBooks(t *testing.T) {
	db := tempDB(t)
	doc := `[{"id":7,"title":"Dune","author":"Frank Herbert","isbn":"978-0441013593","genre":"Science Fiction","available":true}]`
	n, err := db.ImportBooks(strings.NewReader(doc))
	if err != nil || n != 1 {
		t.Fatalf("import: %d %v", n, err)
	}
	if b, _ := db.Find(7); b.ISBN != "978-0441013593" {
		t.Fatalf("book = %+v", b)
	}

	if _, err := db.ImportBooks(strings.NewReader(`[{"id":8}]`)); err == nil {
		t.Fatalf("expected error for untitled book")
	}
	if _, err := db.ImportBooks(strings.NewReader(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestListKeepsInsertionOrder(t *testing.T) {
	db := tempDB(t)
	doc := `[{"id":30,"title":"C"},{"id":10,"title":"A"},{"id":20,"title":"B"}]`
	if _, err := db.ImportBooks(strings.NewReader(doc)); err != nil {
		t.Fatalf("import: %v", err)
	}
	id, err := db.AddBook(Book{Title: "D"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	books, err := db.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []int64{30, 10, 20, id}
	if len(books) != len(want) {
		t.Fatalf("list: %d books", len(books))
	}
	for i, b := range books {
		if b.ID != want[i] {
			t.Fatalf("order = %v at %d, want %v", b.ID, i, want)
		}
	}
}

func TestBorrowIsAtomic(t *testing.T) {
	db := tempDB(t)
	if _, err := db.SeedBooks(DemoBooks()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Borrow([]int64{101, 999}); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("want ErrBookNotFound, got %v", err)
	}
	if b, _ := db.Find(101); !b.Available {
		t.Fatalf("partial borrow committed")
	}
	if err := db.Borrow([]int64{101, 102}); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	for _, id := range []int64{101, 102} {
		if b, _ := db.Find(id); b.Available {
			t.Fatalf("book %d still available", id)
		}
	}
}

func TestMembers(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	m, err := db.CreateMember(ctx, "a@limu.edu.ly", "hash", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == 0 {
		t.Fatalf("no member id")
	}
	if _, err := db.CreateMember(ctx, "a@limu.edu.ly", "hash2", now); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("duplicate: want ErrAccountExists, got %v", err)
	}

	got, ok, err := db.FindMember(ctx, "a@limu.edu.ly")
	if err != nil || !ok || got.PasswordHash != "hash" || !got.CreatedAt.Equal(now) {
		t.Fatalf("find: %+v %v %v", got, ok, err)
	}
	if _, ok, _ := db.FindMember(ctx, "b@limu.edu.ly"); ok {
		t.Fatalf("unexpected member")
	}
}

func TestKVStorage(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	if _, ok, err := db.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing key: %v %v", ok, err)
	}
	db.Set(ctx, "k", "v1")
	db.Set(ctx, "k", "v2")
	v, ok, err := db.Get(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("get: %q %v %v", v, ok, err)
	}
}

func TestCheckoutOnDatabase(t *testing.T) {
	db := tempDB(t)
	if _, err := db.SeedBooks(DemoBooks()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ctx := context.Background()
	history := NewKVHistory(db, nil)
	svc := NewCheckoutService(db, history, WithClock(fixedClock), WithCommitGuard(NewBookLocks()))

	cart := NewCart(db)
	cart.Add(101)
	cart.Add(108)
	if _, err := svc.Checkout(ctx, cart, fakeAuth("a@limu.edu.ly")); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	for _, id := range []int64{101, 108} {
		if b, _ := db.Find(id); b.Available {
			t.Fatalf("book %d still available", id)
		}
	}
	recs, err := history.List(ctx, "a@limu.edu.ly")
	if err != nil || len(recs) != 1 || len(recs[0].Titles) != 2 {
		t.Fatalf("history = %+v %v", recs, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SeedBooks(DemoBooks())
	db.SetAvailable(103, false)
	db.Close()

	db, err = NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if b, _ := db.Find(103); b.Available {
		t.Fatalf("availability lost across reopen")
	}
}
