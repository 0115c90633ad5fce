package library

import "time"

// Book represents a catalog entry and its current availability.
// Available=false means the book is on loan.
type Book struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	Genre     string `json:"genre"`
	Available bool   `json:"available"`
}

// Member represents a registered library account. The email is the user id.
type Member struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Don't serialize password hash
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryRecord is an immutable snapshot of one completed checkout.
// BookIDs and Titles are parallel and keep cart order.
type HistoryRecord struct {
	Timestamp time.Time `json:"date"`
	BookIDs   []int64   `json:"ids"`
	Titles    []string  `json:"titles"`
}

// DemoBooks is the demonstration catalog shipped with the site.
func DemoBooks() []Book {
	return []Book{
		{ID: 101, Title: "The 48 Laws of Power", Author: "Robert Greene", ISBN: "978-0140280197", Genre: "Personal Development", Available: true},
		{ID: 102, Title: "Moby-Dick; or, The Whale", Author: "Herman Melville", ISBN: "978-1503280786", Genre: "Classic", Available: true},
		{ID: 103, Title: "Rich Dad Poor Dad", Author: "Robert Kiyosaki", ISBN: "978-1612680194", Genre: "Finance", Available: true},
		{ID: 104, Title: "Harry Potter and the Chamber of Secrets", Author: "J.K. Rowling", ISBN: "978-0439064873", Genre: "Fantasy", Available: true},
		{ID: 105, Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "978-0061120084", Genre: "Classic", Available: true},
		{ID: 106, Title: "1984", Author: "George Orwell", ISBN: "978-0451524935", Genre: "Dystopian", Available: true},
		{ID: 107, Title: "Pride and Prejudice", Author: "Jane Austen", ISBN: "978-1503290563", Genre: "Romance", Available: true},
		{ID: 108, Title: "The Hobbit", Author: "J.R.R. Tolkien", ISBN: "978-0547928227", Genre: "Fantasy", Available: true},
		{ID: 109, Title: "Sapiens: A Brief History of Humankind", Author: "Yuval Noah Harari", ISBN: "978-0062316097", Genre: "History", Available: true},
		{ID: 110, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "978-0743273565", Genre: "Classic", Available: true},
		{ID: 111, Title: "The Catcher in the Rye", Author: "J.D. Salinger", ISBN: "978-0316769488", Genre: "Classic", Available: true},
		{ID: 112, Title: "The Alchemist", Author: "Paulo Coelho", ISBN: "978-0061122415", Genre: "Fiction", Available: true},
	}
}
