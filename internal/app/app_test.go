package app

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"bookreader/pkg/domain"
	"bookreader/pkg/storage"
	"bookreader/pkg/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	uploads, err := storage.NewUploadStore(t.TempDir())
	if err != nil {
		t.Fatalf("new upload store: %v", err)
	}
	a, err := New(Config{
		Store:             store.NewMemoryStore(),
		Uploads:           uploads,
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		RegistrationToken: "invite-code",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func TestRegisterRejectsBadRegistrationToken(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Register("wrong", "reader", "pw", "USER")
	if !errors.Is(err, ErrInvalidRegistrationToken) {
		t.Fatalf("expected ErrInvalidRegistrationToken, got %v", err)
	}
	// The gate must reject before any persistence side effect.
	if _, err := a.Login("reader", "pw"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("no user should have been created, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.Register("invite-code", "reader", "pw", "USER"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := a.Register("invite-code", "reader", "other", "ADMIN"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.Register("invite-code", "reader", "pw", "ROOT"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	a := newTestApp(t)
	user, err := a.Register("invite-code", "reader", "pw", "ADMIN")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := a.Login("reader", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := a.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != domain.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := a.Login("reader", "nope"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if _, err := a.Login("ghost", "pw"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListBooksPagination(t *testing.T) {
	a := newTestApp(t)
	claims := domain.Claims{UserID: "u1", Role: domain.RoleUser}
	var ids []string
	for i := 1; i <= 7; i++ {
		book, err := a.CreateBook(claims, BookInput{
			Title:  fmt.Sprintf("Book %d", i),
			Author: "A",
		})
		if err != nil {
			t.Fatalf("create book %d: %v", i, err)
		}
		ids = append(ids, book.ID)
	}

	res, err := a.ListBooks(2, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Count != 7 || res.TotalPages != 3 || res.Page != 2 || res.PageSize != 3 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(res.Items))
	}
	for i, item := range res.Items {
		if item.ID != ids[3+i] {
			t.Fatalf("expected items 4-6, got %q at %d", item.Title, i)
		}
	}

	if _, err := a.ListBooks(0, 3); !errors.Is(err, ErrInvalidPagination) {
		t.Fatalf("expected ErrInvalidPagination for page 0, got %v", err)
	}
	if _, err := a.ListBooks(1, 0); !errors.Is(err, ErrInvalidPagination) {
		t.Fatalf("expected ErrInvalidPagination for size 0, got %v", err)
	}
}

func TestListPaginationRejectsOverflowingOffset(t *testing.T) {
	a := newTestApp(t)
	book, err := a.CreateBook(domain.Claims{UserID: "u1"}, BookInput{Title: "T", Author: "A"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	// Positive and Atoi-parseable, but (page-1)*size wraps around. The store
	// must never see the wrapped negative offset.
	const hugePage = 1<<62 + 1
	if _, err := a.ListBooks(hugePage, 4); !errors.Is(err, ErrInvalidPagination) {
		t.Fatalf("expected ErrInvalidPagination for overflowing page, got %v", err)
	}
	if _, err := a.ListPages(book.ID, hugePage, 4); !errors.Is(err, ErrInvalidPagination) {
		t.Fatalf("expected ErrInvalidPagination for overflowing page, got %v", err)
	}

	// The largest non-wrapping offsets still behave as an empty page.
	res, err := a.ListBooks(1<<40, 1)
	if err != nil || len(res.Items) != 0 {
		t.Fatalf("expected empty page for huge in-range offset, got items=%d err=%v", len(res.Items), err)
	}
}

func TestUpdateBookIsSparse(t *testing.T) {
	a := newTestApp(t)
	book, err := a.CreateBook(domain.Claims{UserID: "u1"}, BookInput{
		Title:       "Old Title",
		Author:      "Original Author",
		Description: "Original description",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := a.UpdateBook(book.ID, BookUpdate{Title: "New"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "New" {
		t.Fatalf("title not updated: %+v", updated)
	}
	if updated.Author != "Original Author" || updated.Description != "Original description" {
		t.Fatalf("absent fields must stay untouched: %+v", updated)
	}
}

func TestDeleteBookOwnership(t *testing.T) {
	a := newTestApp(t)
	owner := domain.Claims{UserID: "owner", Role: domain.RoleUser}
	book, err := a.CreateBook(owner, BookInput{Title: "T", Author: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stranger := domain.Claims{UserID: "stranger", Role: domain.RoleUser}
	if err := a.DeleteBook(book.ID, stranger); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}

	admin := domain.Claims{UserID: "root", Role: domain.RoleAdmin}
	if err := a.DeleteBook(book.ID, admin); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := a.GetBook(book.ID); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("book should be gone, got %v", err)
	}
}

func TestDeleteMissingBook(t *testing.T) {
	a := newTestApp(t)
	err := a.DeleteBook("nope", domain.Claims{UserID: "u1", Role: domain.RoleAdmin})
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestPageLifecycle(t *testing.T) {
	a := newTestApp(t)
	book, err := a.CreateBook(domain.Claims{UserID: "u1"}, BookInput{Title: "T", Author: "A"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	if _, err := a.AddPage("missing-book", PageInput{Title: "P"}); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}

	page, err := a.AddPage(book.ID, PageInput{Title: "Chapter 1", Content: "Once upon a time"})
	if err != nil {
		t.Fatalf("add page: %v", err)
	}

	updated, err := a.UpdatePage(page.ID, PageInput{Content: "Revised"})
	if err != nil {
		t.Fatalf("update page: %v", err)
	}
	if updated.Title != "Chapter 1" || updated.Content != "Revised" {
		t.Fatalf("sparse update broken: %+v", updated)
	}

	res, err := a.ListPages(book.ID, 1, 10)
	if err != nil || res.Count != 1 {
		t.Fatalf("list pages: count=%d err=%v", res.Count, err)
	}

	if err := a.DeletePage(page.ID); err != nil {
		t.Fatalf("delete page: %v", err)
	}
	if err := a.DeletePage(page.ID); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestDonationsAppendOnly(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.CreateDonation(DonationInput{Amount: 0, DonorName: "x"}); !errors.Is(err, ErrInvalidDonation) {
		t.Fatalf("expected ErrInvalidDonation, got %v", err)
	}
	if _, err := a.CreateDonation(DonationInput{Amount: 5, DonorName: "Ann", Message: "keep going"}); err != nil {
		t.Fatalf("create donation: %v", err)
	}
	if _, err := a.CreateDonation(DonationInput{Amount: 10, DonorName: "Ben"}); err != nil {
		t.Fatalf("create donation: %v", err)
	}
	donations, err := a.ListDonations()
	if err != nil {
		t.Fatalf("list donations: %v", err)
	}
	if len(donations) != 2 || donations[0].DonorName != "Ann" {
		t.Fatalf("unexpected ledger: %+v", donations)
	}
}

func TestSeedSampleData(t *testing.T) {
	a := newTestApp(t)
	book, err := a.SeedSampleData()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := a.ListPages(book.ID, 1, 10)
	if err != nil || res.Count != 3 {
		t.Fatalf("expected 3 seeded pages, got count=%d err=%v", res.Count, err)
	}
}
