package app

import (
	"fmt"
	"strings"
	"time"

	"bookreader/internal/util"
	"bookreader/pkg/auth"
	"bookreader/pkg/domain"
	"bookreader/pkg/storage"
	"bookreader/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL       string
	JWTSecret         string
	TokenTTL          time.Duration
	RegistrationToken string
	UploadDir         string

	// Store and Uploads override the database/disk defaults in tests.
	Store   store.Store
	Uploads *storage.UploadStore
}

// App is the core application service wiring storage, auth and domain logic.
type App struct {
	store             store.Store
	tokens            *auth.Tokens
	uploads           *storage.UploadStore
	registrationToken string
}

// New constructs the application with database-backed persistence and
// disk-backed upload storage.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, "bookreader", cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	uploads := cfg.Uploads
	if uploads == nil {
		uploads, err = storage.NewUploadStore(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("init upload store: %w", err)
		}
	}

	if strings.TrimSpace(cfg.RegistrationToken) == "" {
		return nil, fmt.Errorf("registration token required")
	}

	return &App{
		store:             dataStore,
		tokens:            tokens,
		uploads:           uploads,
		registrationToken: cfg.RegistrationToken,
	}, nil
}

// Paginated is one page of a listing plus its pagination counters.
type Paginated[T any] struct {
	Items      []T `json:"items"`
	Count      int `json:"count"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// pageOffset converts 1-based pagination to a storage offset. Extreme values
// whose product wraps around are rejected rather than passed to the store.
func pageOffset(page, size int) (int, bool) {
	if page < 1 || size < 1 {
		return 0, false
	}
	offset := (page - 1) * size
	if offset < 0 || (page > 1 && offset/size != page-1) {
		return 0, false
	}
	return offset, true
}

func paginate[T any](items []T, total, page, size int) Paginated[T] {
	return Paginated[T]{
		Items:      items,
		Count:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}
}

// BookInput carries client-supplied book fields. Ownership is never taken
// from here; it comes from the authenticated claims.
type BookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// CreateBook persists a new book attributed to the authenticated identity.
func (a *App) CreateBook(claims domain.Claims, in BookInput) (domain.Book, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Book{}, ErrTitleRequired
	}
	if strings.TrimSpace(in.Author) == "" {
		return domain.Book{}, ErrAuthorRequired
	}
	now := time.Now().UTC()
	book := domain.Book{
		ID:          util.NewID(),
		Title:       in.Title,
		Author:      in.Author,
		Image:       in.Image,
		Description: in.Description,
		CreatedBy:   claims.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// ListBooks returns one page of books. Both pagination values must be >= 1.
func (a *App) ListBooks(page, size int) (Paginated[domain.Book], error) {
	offset, ok := pageOffset(page, size)
	if !ok {
		return Paginated[domain.Book]{}, ErrInvalidPagination
	}
	items, total, err := a.store.ListBooks(offset, size)
	if err != nil {
		return Paginated[domain.Book]{}, fmt.Errorf("list books: %w", err)
	}
	return paginate(items, total, page, size), nil
}

// GetBook retrieves a book by ID.
func (a *App) GetBook(id string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// BookUpdate carries the sparse-update fields; empty fields are left untouched.
type BookUpdate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateBook applies only the non-empty fields of the update.
func (a *App) UpdateBook(id string, in BookUpdate) (domain.Book, error) {
	book, err := a.GetBook(id)
	if err != nil {
		return domain.Book{}, err
	}
	if in.Title != "" {
		book.Title = in.Title
	}
	if in.Description != "" {
		book.Description = in.Description
	}
	book.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("update book: %w", err)
	}
	return book, nil
}

// DeleteBook removes a book and its pages. Only the creator or an admin may
// delete; books without ownership attribution fall back to any caller.
func (a *App) DeleteBook(id string, claims domain.Claims) error {
	book, err := a.GetBook(id)
	if err != nil {
		return err
	}
	if book.CreatedBy != "" && book.CreatedBy != claims.UserID && claims.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	if err := a.store.DeleteBook(id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

// PageInput carries client-supplied page fields.
type PageInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AddPage appends a page to an existing book.
func (a *App) AddPage(bookID string, in PageInput) (domain.Page, error) {
	if _, err := a.GetBook(bookID); err != nil {
		return domain.Page{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Page{}, ErrTitleRequired
	}
	now := time.Now().UTC()
	page := domain.Page{
		ID:        util.NewID(),
		BookID:    bookID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SavePage(page); err != nil {
		return domain.Page{}, fmt.Errorf("save page: %w", err)
	}
	return page, nil
}

// ListPages returns one page of a book's pages, same contract as ListBooks.
func (a *App) ListPages(bookID string, page, size int) (Paginated[domain.Page], error) {
	offset, ok := pageOffset(page, size)
	if !ok {
		return Paginated[domain.Page]{}, ErrInvalidPagination
	}
	items, total, err := a.store.ListPagesByBook(bookID, offset, size)
	if err != nil {
		return Paginated[domain.Page]{}, fmt.Errorf("list pages: %w", err)
	}
	return paginate(items, total, page, size), nil
}

// GetPage retrieves a page by ID.
func (a *App) GetPage(id string) (domain.Page, error) {
	page, ok, err := a.store.GetPage(id)
	if err != nil {
		return domain.Page{}, fmt.Errorf("get page: %w", err)
	}
	if !ok {
		return domain.Page{}, ErrPageNotFound
	}
	return page, nil
}

// UpdatePage applies only the non-empty fields of the update.
func (a *App) UpdatePage(id string, in PageInput) (domain.Page, error) {
	page, err := a.GetPage(id)
	if err != nil {
		return domain.Page{}, err
	}
	if in.Title != "" {
		page.Title = in.Title
	}
	if in.Content != "" {
		page.Content = in.Content
	}
	page.UpdatedAt = time.Now().UTC()
	if err := a.store.SavePage(page); err != nil {
		return domain.Page{}, fmt.Errorf("update page: %w", err)
	}
	return page, nil
}

// DeletePage removes a page.
func (a *App) DeletePage(id string) error {
	if _, err := a.GetPage(id); err != nil {
		return err
	}
	if err := a.store.DeletePage(id); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return nil
}
