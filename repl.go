package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"library-borrowing/internal/config"
	"library-borrowing/library"
)

// readPassword securely reads a password with masking. Piped input falls back
// to a plain line read.
func readPassword(sc *bufio.Scanner, prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		if !sc.Scan() {
			return "", fmt.Errorf("no input")
		}
		return strings.TrimSpace(sc.Text()), nil
	}
	bytePassword, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func runBorrow(ctx context.Context, cfg config.Config) error {
	manager, closeAll, err := openManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	sess := manager.NewSession()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the Library Borrowing System!")
	fmt.Println("Available commands:")
	fmt.Println("  Books: list books, search book, genres")
	fmt.Println("  Cart: add, remove, cart, checkout")
	fmt.Println("  Account: register, login, logout, whoami, history")
	fmt.Println("  System: exit")
	fmt.Println()
	fmt.Printf("Tip: only %s email addresses can register.\n", manager.Accounts().Domain())

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "list books":
			handleListBooks(sess, "", "all")
		case "search book":
			handleSearchBooks(scanner, sess)
		case "genres":
			handleGenres(sess)
		case "add":
			handleAdd(scanner, sess)
		case "remove":
			handleRemove(scanner, sess)
		case "cart":
			handleShowCart(sess)
		case "checkout":
			printNotice(sess.OnCheckout(ctx))
		case "register":
			handleRegister(ctx, scanner, sess)
		case "login":
			handleLogin(ctx, scanner, sess)
		case "logout":
			printNotice(sess.Logout())
		case "whoami":
			if user, ok := sess.Identity().CurrentUser(); ok {
				fmt.Printf("Signed in as %s\n", user)
			} else {
				fmt.Println("Not signed in")
			}
		case "history":
			handleHistory(ctx, sess)
		case "exit":
			fmt.Println("Goodbye!")
			return nil
		case "":
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
	return scanner.Err()
}

func printNotice(n library.Notice) {
	switch n.Kind {
	case library.NoticeSuccess:
		fmt.Printf("✔ %s\n", n.Message)
	case library.NoticeError:
		fmt.Printf("✖ %s\n", n.Message)
	default:
		fmt.Println(n.Message)
	}
	if n.Err != nil && n.Kind == library.NoticeSuccess {
		fmt.Println("Warning: your borrowing history could not be saved.")
	}
}

func readBookID(sc *bufio.Scanner) (int64, bool) {
	fmt.Print("Book ID: ")
	if !sc.Scan() {
		return 0, false
	}
	bookIDStr := strings.TrimSpace(sc.Text())
	bookID, err := strconv.ParseInt(bookIDStr, 10, 64)
	if err != nil {
		fmt.Printf("Invalid book ID: %s\n", bookIDStr)
		return 0, false
	}
	return bookID, true
}

func handleAdd(sc *bufio.Scanner, sess *library.Session) {
	if id, ok := readBookID(sc); ok {
		printNotice(sess.OnAdd(id))
	}
}

func handleRemove(sc *bufio.Scanner, sess *library.Session) {
	if id, ok := readBookID(sc); ok {
		printNotice(sess.OnRemove(id))
	}
}

func handleListBooks(sess *library.Session, query, genre string) {
	view, err := sess.Snapshot(query, genre)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(view.Shelf) == 0 {
		fmt.Println("No books matched your search criteria.")
		return
	}

	fmt.Printf("%-5s %-30s %-25s %-15s %-10s\n", "ID", "Title", "Author", "Genre", "Status")
	fmt.Println(strings.Repeat("-", 90))
	for _, item := range view.Shelf {
		b := item.Book
		b.Title = library.Truncate(b.Title, 30)
		b.Author = library.Truncate(b.Author, 25)
		b.Genre = library.Truncate(b.Genre, 15)
		fmt.Println(library.PrettyBook(b, item.InCart))
	}
	fmt.Printf("\nCart: %d book(s)\n", view.CartCount)
}

func handleSearchBooks(sc *bufio.Scanner, sess *library.Session) {
	fmt.Print("Search (title, author, ISBN or genre): ")
	if !sc.Scan() {
		return
	}
	query := strings.TrimSpace(sc.Text())

	fmt.Print("Genre (Enter for all): ")
	if !sc.Scan() {
		return
	}
	genre := strings.TrimSpace(sc.Text())
	handleListBooks(sess, query, genre)
}

func handleGenres(sess *library.Session) {
	view, err := sess.Snapshot("", "all")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(strings.Join(view.Genres, ", "))
}

func handleShowCart(sess *library.Session) {
	items := sess.Cart().Items()
	if len(items) == 0 {
		fmt.Println(library.MsgEmptyCart)
		return
	}
	for i, b := range items {
		fmt.Printf("%d. %s by %s (ID: %d)\n", i+1, b.Title, b.Author, b.ID)
	}
}

func readCredentials(sc *bufio.Scanner) (string, string, bool) {
	fmt.Print("Email: ")
	if !sc.Scan() {
		return "", "", false
	}
	email := strings.TrimSpace(sc.Text())
	password, err := readPassword(sc, "Password: ")
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		return "", "", false
	}
	return email, password, true
}

func handleRegister(ctx context.Context, sc *bufio.Scanner, sess *library.Session) {
	if email, password, ok := readCredentials(sc); ok {
		printNotice(sess.Register(ctx, email, password))
	}
}

func handleLogin(ctx context.Context, sc *bufio.Scanner, sess *library.Session) {
	if email, password, ok := readCredentials(sc); ok {
		printNotice(sess.Login(ctx, email, password))
	}
}

func handleHistory(ctx context.Context, sess *library.Session) {
	records, err := sess.History(ctx)
	if err != nil {
		fmt.Println(library.UserMessage(err))
		return
	}
	if len(records) == 0 {
		fmt.Println("No borrowing history yet.")
		return
	}
	for _, rec := range records {
		fmt.Printf("%s  %s\n", rec.Timestamp.Local().Format("2006-01-02 15:04"), strings.Join(rec.Titles, ", "))
	}
}
