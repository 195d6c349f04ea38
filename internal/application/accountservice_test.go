package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prdeck/prdeck/internal/application"
	"github.com/prdeck/prdeck/internal/domain/model"
	"github.com/prdeck/prdeck/internal/domain/port/driven"
)

func TestRegisterAccount(t *testing.T) {
	expires := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	clients := map[string]*fakeClient{
		"tok-1": {
			viewer: model.AccountProfile{
				Login:     "octocat",
				Name:      "The Octocat",
				HTMLURL:   "https://github.com/octocat",
				AvatarURL: "https://avatars.githubusercontent.com/u/1",
			},
			expiresAt: &expires,
		},
	}
	store := &fakeAccountStore{}
	svc := application.NewAccountService(store, &fakeTrackedRepoStore{}, factoryFor(clients, nil))

	account, err := svc.RegisterAccount(context.Background(), "tok-1")
	require.NoError(t, err)
	require.NotNil(t, account)

	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "octocat", account.Login)
	assert.Equal(t, "The Octocat", account.Name)
	assert.Equal(t, "tok-1", account.Token)
	require.NotNil(t, account.ExpiresAt)
	assert.Equal(t, expires, *account.ExpiresAt)

	require.Len(t, store.accounts, 1)
}

func TestRegisterAccount_InvalidToken(t *testing.T) {
	clients := map[string]*fakeClient{
		"tok-bad": {
			viewerErr: &model.APIError{Kind: model.APIErrorAuthFailed, Message: "Bad credentials", StatusCode: 401},
		},
	}
	svc := application.NewAccountService(&fakeAccountStore{}, &fakeTrackedRepoStore{}, factoryFor(clients, nil))

	_, err := svc.RegisterAccount(context.Background(), "tok-bad")
	require.Error(t, err)
	assert.True(t, model.IsAuthFailed(err))
}

func TestRegisterAccount_DuplicateLogin(t *testing.T) {
	clients := map[string]*fakeClient{
		"tok-2": {viewer: model.AccountProfile{Login: "OctoCat"}},
	}
	store := &fakeAccountStore{accounts: []model.Account{
		{ID: "a1", Login: "octocat", Token: "tok-1"},
	}}
	svc := application.NewAccountService(store, &fakeTrackedRepoStore{}, factoryFor(clients, nil))

	_, err := svc.RegisterAccount(context.Background(), "tok-2")
	assert.ErrorIs(t, err, driven.ErrAccountAlreadyExists)
}

func TestUpdateToken(t *testing.T) {
	expires := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	clients := map[string]*fakeClient{
		"tok-new": {
			viewer:    model.AccountProfile{Login: "OCTOCAT"},
			expiresAt: &expires,
		},
	}
	store := &fakeAccountStore{accounts: []model.Account{
		{ID: "a1", Login: "octocat", Token: "tok-old"},
	}}
	svc := application.NewAccountService(store, &fakeTrackedRepoStore{}, factoryFor(clients, nil))

	// Logins compare case-insensitively.
	require.NoError(t, svc.UpdateToken(context.Background(), "a1", "tok-new"))

	assert.Equal(t, "tok-new", store.accounts[0].Token)
	require.NotNil(t, store.accounts[0].ExpiresAt)
	assert.Equal(t, expires, *store.accounts[0].ExpiresAt)
}

func TestUpdateToken_LoginMismatch(t *testing.T) {
	clients := map[string]*fakeClient{
		"tok-other": {viewer: model.AccountProfile{Login: "somebody-else"}},
	}
	store := &fakeAccountStore{accounts: []model.Account{
		{ID: "a1", Login: "octocat", Token: "tok-old"},
	}}
	svc := application.NewAccountService(store, &fakeTrackedRepoStore{}, factoryFor(clients, nil))

	err := svc.UpdateToken(context.Background(), "a1", "tok-other")
	assert.ErrorIs(t, err, application.ErrLoginMismatch)
	assert.Equal(t, "tok-old", store.accounts[0].Token, "token must be untouched on mismatch")
}

func TestUpdateToken_AccountNotFound(t *testing.T) {
	svc := application.NewAccountService(&fakeAccountStore{}, &fakeTrackedRepoStore{}, factoryFor(nil, nil))

	err := svc.UpdateToken(context.Background(), "missing", "tok-new")
	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
}

func TestListOwners_SelfFirst(t *testing.T) {
	clients := map[string]*fakeClient{
		"tok-1": {owners: []model.Owner{
			{Login: "acme", HTMLURL: "https://github.com/acme"},
			{Login: "initech", HTMLURL: "https://github.com/initech"},
		}},
	}
	store := &fakeAccountStore{accounts: []model.Account{
		{ID: "a1", Login: "octocat", HTMLURL: "https://github.com/octocat", Token: "tok-1"},
	}}
	svc := application.NewAccountService(store, &fakeTrackedRepoStore{}, factoryFor(clients, nil))

	owners, err := svc.ListOwners(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, owners, 3)

	assert.Equal(t, "octocat", owners[0].Login)
	assert.Equal(t, "acme", owners[1].Login)
	assert.Equal(t, "initech", owners[2].Login)
}

func TestListOwnerRepositories(t *testing.T) {
	clients := map[string]*fakeClient{
		"tok-1": {
			userRepos: []model.RepositoryRef{{Name: "dotfiles"}},
			orgRepos: map[string][]model.RepositoryRef{
				"acme": {{Name: "widget"}, {Name: "gadget"}},
			},
		},
	}
	store := &fakeAccountStore{accounts: []model.Account{
		{ID: "a1", Login: "octocat", Token: "tok-1"},
	}}
	svc := application.NewAccountService(store, &fakeTrackedRepoStore{}, factoryFor(clients, nil))
	ctx := context.Background()

	// The account's own login lists the authenticated user's repositories.
	own, err := svc.ListOwnerRepositories(ctx, "a1", "Octocat")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "dotfiles", own[0].Name)

	// Any other owner is an organization.
	org, err := svc.ListOwnerRepositories(ctx, "a1", "acme")
	require.NoError(t, err)
	assert.Len(t, org, 2)
}

func TestAddRepository(t *testing.T) {
	store := &fakeAccountStore{accounts: []model.Account{
		{ID: "a1", Login: "octocat", Token: "tok-1"},
	}}
	repos := &fakeTrackedRepoStore{}
	svc := application.NewAccountService(store, repos, factoryFor(nil, nil))

	err := svc.AddRepository(context.Background(), model.TrackedRepository{
		AccountID: "a1",
		Owner:     model.Owner{Login: "octocat"},
		Name:      "hello-world",
	})
	require.NoError(t, err)

	require.Len(t, repos.repos, 1)
	got := repos.repos[0]
	assert.Equal(t, "https://github.com/octocat", got.Owner.HTMLURL)
	assert.Equal(t, "https://github.com/octocat/hello-world", got.HTMLURL)
}

func TestAddRepository_UnknownAccount(t *testing.T) {
	svc := application.NewAccountService(&fakeAccountStore{}, &fakeTrackedRepoStore{}, factoryFor(nil, nil))

	err := svc.AddRepository(context.Background(), model.TrackedRepository{
		AccountID: "missing",
		Owner:     model.Owner{Login: "octocat"},
		Name:      "hello-world",
	})
	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
}

func TestAddRepository_Duplicate(t *testing.T) {
	store := &fakeAccountStore{accounts: []model.Account{
		{ID: "a1", Login: "octocat", Token: "tok-1"},
	}}
	repos := &fakeTrackedRepoStore{}
	svc := application.NewAccountService(store, repos, factoryFor(nil, nil))
	ctx := context.Background()

	repo := model.TrackedRepository{
		AccountID: "a1",
		Owner:     model.Owner{Login: "octocat"},
		Name:      "hello-world",
	}
	require.NoError(t, svc.AddRepository(ctx, repo))

	err := svc.AddRepository(ctx, repo)
	assert.ErrorIs(t, err, driven.ErrRepoAlreadyTracked)
}

func TestRemoveAccount(t *testing.T) {
	store := &fakeAccountStore{accounts: []model.Account{
		{ID: "a1", Login: "octocat", Token: "tok-1"},
	}}
	svc := application.NewAccountService(store, &fakeTrackedRepoStore{}, factoryFor(nil, nil))

	require.NoError(t, svc.RemoveAccount(context.Background(), "a1"))
	assert.Empty(t, store.accounts)

	err := svc.RemoveAccount(context.Background(), "a1")
	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
}
