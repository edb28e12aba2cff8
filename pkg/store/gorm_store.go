package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bookreader/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLog,
		// Needed so duplicate-key violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &BookModel{}, &PageModel{}, &DonationModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUser inserts a new user. The unique index on username makes the
// uniqueness check and insert atomic; a collision returns ErrUsernameTaken.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("username = ?", username).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveBook stores or updates a book.
func (s *GormStore) SaveBook(b domain.Book) error {
	model := bookToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "image", "description", "updated_at"}),
	}).Create(&model).Error
}

// ListBooks returns one page of books in creation order plus the total count.
func (s *GormStore) ListBooks(offset, limit int) ([]domain.Book, int, error) {
	var total int64
	if err := s.db.Model(&BookModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []BookModel
	if err := s.db.Order("created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, int(total), nil
}

// GetBook retrieves a book by ID.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// DeleteBook removes a book and its pages.
func (s *GormStore) DeleteBook(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&PageModel{}, "book_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&BookModel{}, "id = ?", id).Error
	})
}

// SavePage stores or updates a page.
func (s *GormStore) SavePage(p domain.Page) error {
	model := pageToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "updated_at"}),
	}).Create(&model).Error
}

// ListPagesByBook returns one page of pages for a book plus the total count.
func (s *GormStore) ListPagesByBook(bookID string, offset, limit int) ([]domain.Page, int, error) {
	var total int64
	if err := s.db.Model(&PageModel{}).Where("book_id = ?", bookID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []PageModel
	if err := s.db.Where("book_id = ?", bookID).Order("created_at ASC").
		Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.Page, 0, len(models))
	for _, m := range models {
		res = append(res, pageFromModel(m))
	}
	return res, int(total), nil
}

// GetPage retrieves a page by ID.
func (s *GormStore) GetPage(id string) (domain.Page, bool, error) {
	var model PageModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Page{}, false, nil
		}
		return domain.Page{}, false, err
	}
	return pageFromModel(model), true, nil
}

// DeletePage removes a page.
func (s *GormStore) DeletePage(id string) error {
	return s.db.Delete(&PageModel{}, "id = ?", id).Error
}

// SaveDonation appends a donation ledger entry.
func (s *GormStore) SaveDonation(d domain.Donation) error {
	model := donationToModel(d)
	return s.db.Create(&model).Error
}

// ListDonations returns all donations in creation order.
func (s *GormStore) ListDonations() ([]domain.Donation, error) {
	var models []DonationModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Donation, 0, len(models))
	for _, m := range models {
		res = append(res, donationFromModel(m))
	}
	return res, nil
}
