package model

import "time"

// Account is a registered GitHub account: the identity resolved from a
// personal access token plus the token itself. ID is a UUID assigned at
// registration time.
type Account struct {
	ID        string
	Login     string
	Name      string // Display name; empty when the profile has none.
	HTMLURL   string
	AvatarURL string
	Token     string
	ExpiresAt *time.Time // Token expiration when GitHub reports one.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountProfile is the identity returned by GET /user for a token.
// Used to validate tokens before an Account exists.
type AccountProfile struct {
	Login     string
	Name      string
	HTMLURL   string
	AvatarURL string
}
