package store

import (
	"time"

	"bookreader/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type BookModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Author      string `gorm:"not null"`
	Image       string
	Description string    `gorm:"type:text"`
	CreatedBy   string    `gorm:"index"`
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type PageModel struct {
	ID        string    `gorm:"primaryKey"`
	BookID    string    `gorm:"not null;index"`
	Title     string    `gorm:"not null"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

type DonationModel struct {
	ID        string  `gorm:"primaryKey"`
	Amount    float64 `gorm:"not null"`
	DonorName string  `gorm:"not null"`
	Message   string
	CreatedAt time.Time `gorm:"not null;index"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Image:       b.Image,
		Description: b.Description,
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:          m.ID,
		Title:       m.Title,
		Author:      m.Author,
		Image:       m.Image,
		Description: m.Description,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func pageToModel(p domain.Page) PageModel {
	return PageModel{
		ID:        p.ID,
		BookID:    p.BookID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func pageFromModel(m PageModel) domain.Page {
	return domain.Page{
		ID:        m.ID,
		BookID:    m.BookID,
		Title:     m.Title,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func donationToModel(d domain.Donation) DonationModel {
	return DonationModel{
		ID:        d.ID,
		Amount:    d.Amount,
		DonorName: d.DonorName,
		Message:   d.Message,
		CreatedAt: d.CreatedAt,
	}
}

func donationFromModel(m DonationModel) domain.Donation {
	return domain.Donation{
		ID:        m.ID,
		Amount:    m.Amount,
		DonorName: m.DonorName,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}
