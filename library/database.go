package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database provides high-level helpers around a SQLite connection. It
// implements CatalogStore, AccountStore and KVStorage.
type Database struct {
	db *sql.DB

	addBookStmt   *sql.Stmt
	addMemberStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addBookStmt != nil {
		d.addBookStmt.Close()
	}
	if d.addMemberStmt != nil {
		d.addMemberStmt.Close()
	}
	return d.db.Close()
}

// Ping checks the connection.
func (d *Database) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

// migrations[i] brings the schema from version i to i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT NOT NULL DEFAULT '',
            genre TEXT NOT NULL DEFAULT '',
            available BOOLEAN NOT NULL DEFAULT 1
        );`,
		// Local-storage style documents (borrow history).
		`CREATE TABLE IF NOT EXISTS kv (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );`,
	},
	{
		// Insertion order, independent of the id values.
		`ALTER TABLE books ADD COLUMN seq INTEGER NOT NULL DEFAULT 0;`,
		`UPDATE books SET seq=id;`,
		`CREATE INDEX IF NOT EXISTS idx_books_seq ON books(seq);`,
	},
}

func schemaVersion() int { return len(migrations) }

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion() {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for v := current; v < schemaVersion(); v++ {
		for _, stmt := range migrations[v] {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("apply migration %d: %w", v+1, err)
			}
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion()); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	// NULLIF lets callers pass 0 to get an autoincrement id.
	if d.addBookStmt, err = d.db.Prepare(`INSERT INTO books(id,title,author,isbn,genre,available,seq)
            VALUES(NULLIF(?,0),?,?,?,?,?,(SELECT COALESCE(MAX(seq),0)+1 FROM books))`); err != nil {
		return err
	}
	if d.addMemberStmt, err = d.db.Prepare(`INSERT INTO members(email,password_hash,created_at) VALUES(?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// AddBook inserts a book. A zero ID lets SQLite assign one.
func (d *Database) AddBook(b Book) (int64, error) {
	res, err := d.addBookStmt.Exec(b.ID, b.Title, b.Author, b.ISBN, b.Genre, b.Available)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SeedBooks inserts books whose ids are not present yet, in one transaction.
// It returns how many rows were inserted.
func (d *Database) SeedBooks(books []Book) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt := tx.Stmt(d.addBookStmt)
	defer stmt.Close()

	inserted := 0
	for _, b := range books {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM books WHERE id=?)`, b.ID).Scan(&exists); err != nil {
			return 0, err
		}
		if exists {
			continue
		}
		if _, err := stmt.Exec(b.ID, b.Title, b.Author, b.ISBN, b.Genre, b.Available); err != nil {
			return 0, fmt.Errorf("insert book %d: %w", b.ID, err)
		}
		inserted++
	}
	return inserted, tx.Commit()
}

// ImportBooks decodes a JSON array of books from r and seeds them.
func (d *Database) ImportBooks(r io.Reader) (int, error) {
	var books []Book
	if err := json.NewDecoder(r).Decode(&books); err != nil {
		return 0, fmt.Errorf("decode books: %w", err)
	}
	for i, b := range books {
		if strings.TrimSpace(b.Title) == "" {
			return 0, fmt.Errorf("book #%d has no title", i+1)
		}
	}
	return d.SeedBooks(books)
}

// List returns every book in insertion order.
func (d *Database) List() ([]Book, error) {
	rows, err := d.db.Query(`SELECT id,title,author,isbn,genre,available FROM books ORDER BY seq, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Genre, &b.Available); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (d *Database) Find(id int64) (Book, error) {
	var b Book
	err := d.db.QueryRow(`SELECT id,title,author,isbn,genre,available FROM books WHERE id=?`, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Genre, &b.Available)
	if err == sql.ErrNoRows {
		return Book{}, fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	if err != nil {
		return Book{}, err
	}
	return b, nil
}

func (d *Database) SetAvailable(id int64, available bool) error {
	res, err := d.db.Exec(`UPDATE books SET available=? WHERE id=?`, available, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	return nil
}

// Borrow marks all ids unavailable in one transaction. A missing id rolls
// the whole batch back.
func (d *Database) Borrow(ids []int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		res, err := tx.Exec(`UPDATE books SET available=0 WHERE id=?`, id)
		if err != nil {
			return fmt.Errorf("mark book %d borrowed: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("book %d: %w", id, ErrBookNotFound)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit borrow: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

func (d *Database) FindMember(ctx context.Context, email string) (*Member, bool, error) {
	var m Member
	err := d.db.QueryRowContext(ctx, `SELECT id,email,password_hash,created_at FROM members WHERE email=?`, email).
		Scan(&m.ID, &m.Email, &m.PasswordHash, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (d *Database) CreateMember(ctx context.Context, email, passwordHash string, createdAt time.Time) (*Member, error) {
	res, err := d.addMemberStmt.ExecContext(ctx, email, passwordHash, createdAt)
	if err != nil {
		// Handle database constraint violations with user-friendly messages
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%s: %w", email, ErrAccountExists)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Member{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: createdAt}, nil
}

// ---------------------------------------------------------------------------
// Key/value documents
// ---------------------------------------------------------------------------

func (d *Database) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (d *Database) Set(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO kv(key,value) VALUES(?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}
