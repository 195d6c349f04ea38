package application_test

import (
	"context"
	"strings"
	"time"

	"github.com/prdeck/prdeck/internal/domain/model"
	"github.com/prdeck/prdeck/internal/domain/port/driven"
)

// --- Fake GitHub client ---

type fakeClient struct {
	token      string
	viewer     model.AccountProfile
	viewerErr  error
	expiresAt  *time.Time
	owners     []model.Owner
	ownersErr  error
	userRepos  []model.RepositoryRef
	orgRepos   map[string][]model.RepositoryRef
	fetchPulls func(ctx context.Context, repos []model.TrackedRepository, state model.PullRequestState) ([]model.PullRequest, error)
}

func (f *fakeClient) FetchViewer(context.Context) (model.AccountProfile, error) {
	return f.viewer, f.viewerErr
}

func (f *fakeClient) FetchTokenExpiration(context.Context) (*time.Time, error) {
	return f.expiresAt, nil
}

func (f *fakeClient) FetchOwners(context.Context) ([]model.Owner, error) {
	return f.owners, f.ownersErr
}

func (f *fakeClient) FetchUserRepositories(context.Context) ([]model.RepositoryRef, error) {
	return f.userRepos, nil
}

func (f *fakeClient) FetchOwnerRepositories(_ context.Context, ownerLogin string) ([]model.RepositoryRef, error) {
	return f.orgRepos[ownerLogin], nil
}

func (f *fakeClient) FetchPullRequests(ctx context.Context, repos []model.TrackedRepository, state model.PullRequestState) ([]model.PullRequest, error) {
	if f.fetchPulls == nil {
		return nil, nil
	}
	return f.fetchPulls(ctx, repos, state)
}

// factoryFor returns a ClientFactory that hands out per-token fakes and
// records which tokens were requested.
func factoryFor(clients map[string]*fakeClient, requested *[]string) driven.ClientFactory {
	return func(token string) driven.GitHubClient {
		if requested != nil {
			*requested = append(*requested, token)
		}
		if c, ok := clients[token]; ok {
			return c
		}
		return &fakeClient{token: token}
	}
}

// --- Fake stores ---

type fakeAccountStore struct {
	accounts []model.Account
}

func (f *fakeAccountStore) Create(_ context.Context, account model.Account) error {
	for _, a := range f.accounts {
		if strings.EqualFold(a.Login, account.Login) {
			return driven.ErrAccountAlreadyExists
		}
	}
	f.accounts = append(f.accounts, account)
	return nil
}

func (f *fakeAccountStore) FindByID(_ context.Context, id string) (*model.Account, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeAccountStore) FindByLogin(_ context.Context, login string) (*model.Account, error) {
	for _, a := range f.accounts {
		if strings.EqualFold(a.Login, login) {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeAccountStore) ListAll(context.Context) ([]model.Account, error) {
	return f.accounts, nil
}

func (f *fakeAccountStore) UpdateToken(_ context.Context, id string, token string, expiresAt *time.Time) error {
	for i := range f.accounts {
		if f.accounts[i].ID == id {
			f.accounts[i].Token = token
			f.accounts[i].ExpiresAt = expiresAt
			return nil
		}
	}
	return driven.ErrAccountNotFound
}

func (f *fakeAccountStore) Delete(_ context.Context, id string) error {
	for i := range f.accounts {
		if f.accounts[i].ID == id {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			return nil
		}
	}
	return driven.ErrAccountNotFound
}

type fakeTrackedRepoStore struct {
	repos  []model.TrackedRepository
	nextID int64
}

func (f *fakeTrackedRepoStore) Add(_ context.Context, repo model.TrackedRepository) error {
	for _, r := range f.repos {
		if r.AccountID == repo.AccountID && r.Owner.Login == repo.Owner.Login && r.Name == repo.Name {
			return driven.ErrRepoAlreadyTracked
		}
	}
	f.nextID++
	repo.ID = f.nextID
	f.repos = append(f.repos, repo)
	return nil
}

func (f *fakeTrackedRepoStore) Remove(_ context.Context, id int64) error {
	for i := range f.repos {
		if f.repos[i].ID == id {
			f.repos = append(f.repos[:i], f.repos[i+1:]...)
			return nil
		}
	}
	return driven.ErrRepoNotFound
}

func (f *fakeTrackedRepoStore) RemoveByName(_ context.Context, accountID, ownerLogin, name string) error {
	for i := range f.repos {
		r := f.repos[i]
		if r.AccountID == accountID && r.Owner.Login == ownerLogin && r.Name == name {
			f.repos = append(f.repos[:i], f.repos[i+1:]...)
			return nil
		}
	}
	return driven.ErrRepoNotFound
}

func (f *fakeTrackedRepoStore) ListAll(context.Context) ([]model.TrackedRepository, error) {
	return f.repos, nil
}

func (f *fakeTrackedRepoStore) ListByAccount(_ context.Context, accountID string) ([]model.TrackedRepository, error) {
	var out []model.TrackedRepository
	for _, r := range f.repos {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}
