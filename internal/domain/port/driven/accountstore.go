package driven

import (
	"context"
	"errors"
	"time"

	"github.com/prdeck/prdeck/internal/domain/model"
)

// Sentinel errors returned by AccountStore implementations.
var (
	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists indicates an account with the same login is
	// already registered.
	ErrAccountAlreadyExists = errors.New("account already registered")
)

// AccountStore defines the driven port for registered account persistence.
// Create returns ErrAccountAlreadyExists on a duplicate login. Tokens are
// handed over in plaintext at this boundary; the adapter owns encryption.
type AccountStore interface {
	Create(ctx context.Context, account model.Account) error
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByLogin(ctx context.Context, login string) (*model.Account, error)
	ListAll(ctx context.Context) ([]model.Account, error)
	// UpdateToken replaces the token and expiration for an existing account,
	// leaving everything else (including tracked repositories) intact.
	UpdateToken(ctx context.Context, id string, token string, expiresAt *time.Time) error
	Delete(ctx context.Context, id string) error
}
