package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"bookreader/internal/util"
	"bookreader/pkg/domain"
)

// DonationInput carries client-supplied donation fields.
type DonationInput struct {
	Amount    float64 `json:"amount"`
	DonorName string  `json:"donorName"`
	Message   string  `json:"message"`
}

// CreateDonation appends a ledger entry. Donations are never updated or deleted.
func (a *App) CreateDonation(in DonationInput) (domain.Donation, error) {
	if in.Amount <= 0 || strings.TrimSpace(in.DonorName) == "" {
		return domain.Donation{}, ErrInvalidDonation
	}
	donation := domain.Donation{
		ID:        util.NewID(),
		Amount:    in.Amount,
		DonorName: in.DonorName,
		Message:   in.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveDonation(donation); err != nil {
		return domain.Donation{}, fmt.Errorf("save donation: %w", err)
	}
	return donation, nil
}

// ListDonations returns the full ledger in creation order.
func (a *App) ListDonations() ([]domain.Donation, error) {
	donations, err := a.store.ListDonations()
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

// SaveUpload stores an uploaded file and returns the relative URL it will be
// served from.
func (a *App) SaveUpload(filename string, r io.Reader) (string, error) {
	name, err := a.uploads.Save(filename, r)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return "/uploads/" + name, nil
}

// UploadDir exposes the upload directory for static serving.
func (a *App) UploadDir() string {
	return a.uploads.Dir()
}
