package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"library-borrowing/library"
)

func main() {
	dbPath := flag.String("db", "library.db", "path to the SQLite database")
	reset := flag.Bool("reset", false, "remove the existing database first")
	demo := flag.Bool("demo", false, "import the built-in demo catalog instead of a file")
	flag.Parse()

	if *reset {
		// Clean up any existing database files
		fmt.Println("Cleaning up existing database files...")
		for _, file := range []string{*dbPath, *dbPath + "-shm", *dbPath + "-wal"} {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
			}
		}
		fmt.Println("Database cleanup complete.")
	}

	if !*demo && flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: import_books [-db path] [-reset] (-demo | books.json)")
		os.Exit(2)
	}

	manager, err := library.NewLibraryManager(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	var n int
	if *demo {
		fmt.Println("Importing demo catalog...")
		n, err = manager.SeedDemo()
	} else {
		fmt.Printf("Importing books from %s...\n", flag.Arg(0))
		n, err = manager.ImportBooksFromFile(flag.Arg(0))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Newly imported: %d books\n", n)

	books, err := manager.GetAllBooks()
	if err != nil {
		fmt.Printf("Error retrieving books: %v\n", err)
		return
	}
	fmt.Println("\nCatalog:")
	fmt.Printf("%-5s %-50s %-30s\n", "ID", "Title", "Author")
	fmt.Println(strings.Repeat("-", 87))
	for _, book := range books {
		fmt.Printf("%-5d %-50s %-30s\n", book.ID, library.Truncate(book.Title, 50), library.Truncate(book.Author, 30))
	}
}
