package driven

import (
	"context"
	"errors"

	"github.com/prdeck/prdeck/internal/domain/model"
)

// Sentinel errors returned by TrackedRepoStore implementations.
var (
	// ErrRepoNotFound indicates the tracked repository does not exist.
	ErrRepoNotFound = errors.New("tracked repository not found")

	// ErrRepoAlreadyTracked indicates the (account, owner, repository)
	// triple is already tracked.
	ErrRepoAlreadyTracked = errors.New("repository already tracked")
)

// TrackedRepoStore defines the driven port for the watch-list: the
// (account, owner, repository) triples the fan-out fetches pull requests
// for. ListAll returns triples in insertion order, which fixes the
// account iteration order of the fan-out.
type TrackedRepoStore interface {
	Add(ctx context.Context, repo model.TrackedRepository) error
	Remove(ctx context.Context, id int64) error
	RemoveByName(ctx context.Context, accountID, ownerLogin, name string) error
	ListAll(ctx context.Context) ([]model.TrackedRepository, error)
	ListByAccount(ctx context.Context, accountID string) ([]model.TrackedRepository, error)
}
