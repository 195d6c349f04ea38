package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/prdeck/prdeck/internal/domain/model"
	"github.com/prdeck/prdeck/internal/domain/port/driven"
)

// ErrLoginMismatch is returned by UpdateToken when the replacement token
// resolves to a different login than the stored account.
var ErrLoginMismatch = fmt.Errorf("token belongs to a different login")

// AccountService manages account registration and repository tracking.
type AccountService struct {
	accountStore driven.AccountStore
	repoStore    driven.TrackedRepoStore
	newClient    driven.ClientFactory
}

// NewAccountService creates an AccountService with all required dependencies.
func NewAccountService(
	accountStore driven.AccountStore,
	repoStore driven.TrackedRepoStore,
	newClient driven.ClientFactory,
) *AccountService {
	return &AccountService{
		accountStore: accountStore,
		repoStore:    repoStore,
		newClient:    newClient,
	}
}

// RegisterAccount validates the token against the live API, probes its
// expiration, and persists a new account under a generated id. Registering
// a login that already has an account fails with ErrAccountAlreadyExists.
func (s *AccountService) RegisterAccount(ctx context.Context, token string) (*model.Account, error) {
	client := s.newClient(token)

	profile, err := client.FetchViewer(ctx)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}

	existing, err := s.accountStore.FindByLogin(ctx, profile.Login)
	if err != nil {
		return nil, fmt.Errorf("check existing login %s: %w", profile.Login, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("account %s: %w", profile.Login, driven.ErrAccountAlreadyExists)
	}

	expiresAt, err := client.FetchTokenExpiration(ctx)
	if err != nil {
		slog.Warn("token expiration probe failed", "login", profile.Login, "error", err)
	}

	account := model.Account{
		ID:        uuid.NewString(),
		Login:     profile.Login,
		Name:      profile.Name,
		HTMLURL:   profile.HTMLURL,
		AvatarURL: profile.AvatarURL,
		Token:     token,
		ExpiresAt: expiresAt,
	}

	if err := s.accountStore.Create(ctx, account); err != nil {
		return nil, err
	}

	slog.Info("account registered", "login", account.Login, "id", account.ID)

	stored, err := s.accountStore.FindByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("reload account %s: %w", account.ID, err)
	}

	return stored, nil
}

// UpdateToken replaces an account's token after verifying the new token
// resolves to the same login. Tracked repositories are preserved.
func (s *AccountService) UpdateToken(ctx context.Context, accountID, token string) error {
	account, err := s.accountStore.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("find account %s: %w", accountID, err)
	}
	if account == nil {
		return fmt.Errorf("account %s: %w", accountID, driven.ErrAccountNotFound)
	}

	client := s.newClient(token)

	profile, err := client.FetchViewer(ctx)
	if err != nil {
		return fmt.Errorf("validate token: %w", err)
	}
	if !strings.EqualFold(profile.Login, account.Login) {
		return fmt.Errorf("account %s, token login %s: %w", account.Login, profile.Login, ErrLoginMismatch)
	}

	expiresAt, err := client.FetchTokenExpiration(ctx)
	if err != nil {
		slog.Warn("token expiration probe failed", "login", account.Login, "error", err)
	}

	if err := s.accountStore.UpdateToken(ctx, accountID, token, expiresAt); err != nil {
		return err
	}

	slog.Info("account token updated", "login", account.Login, "id", accountID)
	return nil
}

// ListAccounts returns all registered accounts in registration order.
func (s *AccountService) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return s.accountStore.ListAll(ctx)
}

// RemoveAccount deletes an account and, through the store's cascade, its
// tracked repositories.
func (s *AccountService) RemoveAccount(ctx context.Context, accountID string) error {
	if err := s.accountStore.Delete(ctx, accountID); err != nil {
		return err
	}
	slog.Info("account removed", "id", accountID)
	return nil
}

// ListOwners returns the owners reachable by the account's token: the
// account itself first, then its organizations.
func (s *AccountService) ListOwners(ctx context.Context, accountID string) ([]model.Owner, error) {
	account, err := s.accountStore.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("find account %s: %w", accountID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, driven.ErrAccountNotFound)
	}

	client := s.newClient(account.Token)

	orgs, err := client.FetchOwners(ctx)
	if err != nil {
		return nil, err
	}

	owners := make([]model.Owner, 0, len(orgs)+1)
	owners = append(owners, model.Owner{
		Login:     account.Login,
		HTMLURL:   account.HTMLURL,
		AvatarURL: account.AvatarURL,
	})
	owners = append(owners, orgs...)

	return owners, nil
}

// ListOwnerRepositories lists the repositories under one owner reachable by
// the account's token. The account's own login maps to the authenticated
// user's repositories; any other owner is treated as an organization.
func (s *AccountService) ListOwnerRepositories(ctx context.Context, accountID, ownerLogin string) ([]model.RepositoryRef, error) {
	account, err := s.accountStore.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("find account %s: %w", accountID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, driven.ErrAccountNotFound)
	}

	client := s.newClient(account.Token)

	if strings.EqualFold(ownerLogin, account.Login) {
		return client.FetchUserRepositories(ctx)
	}
	return client.FetchOwnerRepositories(ctx, ownerLogin)
}

// AddRepository starts tracking a repository for an account. The
// (account, owner, repository) triple must be unique; the same repository
// may be tracked by different accounts independently.
func (s *AccountService) AddRepository(ctx context.Context, repo model.TrackedRepository) error {
	account, err := s.accountStore.FindByID(ctx, repo.AccountID)
	if err != nil {
		return fmt.Errorf("find account %s: %w", repo.AccountID, err)
	}
	if account == nil {
		return fmt.Errorf("account %s: %w", repo.AccountID, driven.ErrAccountNotFound)
	}

	if repo.Owner.HTMLURL == "" {
		repo.Owner.HTMLURL = "https://github.com/" + repo.Owner.Login
	}
	if repo.HTMLURL == "" {
		repo.HTMLURL = repo.Owner.HTMLURL + "/" + repo.Name
	}

	if err := s.repoStore.Add(ctx, repo); err != nil {
		return err
	}

	slog.Info("repository tracked", "account", account.Login, "repo", repo.FullName())
	return nil
}

// RemoveRepository stops tracking a repository by its id.
func (s *AccountService) RemoveRepository(ctx context.Context, id int64) error {
	return s.repoStore.Remove(ctx, id)
}

// ListTrackedRepositories returns every tracked repository in insertion
// order.
func (s *AccountService) ListTrackedRepositories(ctx context.Context) ([]model.TrackedRepository, error) {
	return s.repoStore.ListAll(ctx)
}
