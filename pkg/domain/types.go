package domain

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleUser  UserRole = "USER"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Claims is the identity payload carried by a signed bearer token.
// Role reflects the user record at issuance time; later role changes
// are not visible until re-login.
type Claims struct {
	UserID string   `json:"userId"`
	Role   UserRole `json:"role"`
}

type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Image       string    `json:"image,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Page belongs to a book by reference and has its own lifecycle.
type Page struct {
	ID        string    `json:"pageId"`
	BookID    string    `json:"bookId"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Donation is an append-only ledger entry.
type Donation struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	DonorName string    `json:"donorName"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
