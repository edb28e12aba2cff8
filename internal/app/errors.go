package app

import "errors"

var (
	// ErrInvalidRegistrationToken is returned before any persistence when the
	// shared registration secret does not match.
	ErrInvalidRegistrationToken = errors.New("invalid registration token")

	ErrCredentialsRequired = errors.New("username and password required")
	ErrInvalidRole         = errors.New("invalid role")
	ErrUsernameTaken       = errors.New("username already taken")

	// ErrUserNotFound and ErrInvalidPassword are distinct on purpose: the
	// original API exposed this distinction and clients rely on it.
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")

	ErrBookNotFound = errors.New("book not found")
	ErrPageNotFound = errors.New("page not found")

	// ErrForbidden is returned when a delete is attempted by someone who is
	// neither the creator nor an admin.
	ErrForbidden = errors.New("permission denied")

	ErrInvalidPagination = errors.New("invalid pagination parameters")
	ErrTitleRequired     = errors.New("title is required")
	ErrAuthorRequired    = errors.New("author is required")
	ErrInvalidDonation   = errors.New("amount and donorName are required")
)
