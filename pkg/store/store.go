package store

import (
	"errors"

	"bookreader/pkg/domain"
)

// ErrUsernameTaken is returned when a registration collides with an existing
// username. The storage layer enforces this with a unique index so that
// concurrent registrations of the same name yield at most one insert.
var ErrUsernameTaken = errors.New("username already taken")

// Store defines persistence operations for users, books, pages and donations.
type Store interface {
	// users
	CreateUser(domain.User) error
	GetUserByUsername(username string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// books
	SaveBook(domain.Book) error
	ListBooks(offset, limit int) ([]domain.Book, int, error)
	GetBook(id string) (domain.Book, bool, error)
	DeleteBook(id string) error

	// pages
	SavePage(domain.Page) error
	ListPagesByBook(bookID string, offset, limit int) ([]domain.Page, int, error)
	GetPage(id string) (domain.Page, bool, error)
	DeletePage(id string) error

	// donations
	SaveDonation(domain.Donation) error
	ListDonations() ([]domain.Donation, error)
}
