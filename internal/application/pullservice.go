// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prdeck/prdeck/internal/domain/model"
	"github.com/prdeck/prdeck/internal/domain/port/driven"
)

// PullService aggregates pull requests across all registered accounts.
type PullService struct {
	accountStore driven.AccountStore
	repoStore    driven.TrackedRepoStore
	newClient    driven.ClientFactory
}

// NewPullService creates a PullService with all required dependencies.
func NewPullService(
	accountStore driven.AccountStore,
	repoStore driven.TrackedRepoStore,
	newClient driven.ClientFactory,
) *PullService {
	return &PullService{
		accountStore: accountStore,
		repoStore:    repoStore,
		newClient:    newClient,
	}
}

// accountBatch is one account's slice of the fan-out: its token and the
// tracked repositories queried with it.
type accountBatch struct {
	account model.Account
	repos   []model.TrackedRepository
}

// accountResult is the settled outcome of one account's batched fetch.
type accountResult struct {
	pulls []model.PullRequest
	err   error
}

// GetPullRequests fetches pull requests in the given state for every
// tracked repository, one batched call per account, all accounts
// concurrently. Results concatenate in account registration order, then
// tracked-repository order within the account.
//
// A failed account never cancels its siblings: the fan-out always waits
// for every account to settle. Expired or revoked credentials are the one
// failure the caller must know about, so the first AUTH_FAILED error is
// returned alongside whatever partial list the healthy accounts produced.
// Every other per-account failure degrades to fewer results at warn level.
func (s *PullService) GetPullRequests(ctx context.Context, state model.PullRequestState) ([]model.PullRequest, error) {
	start := time.Now()

	tracked, err := s.repoStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked repositories: %w", err)
	}
	if len(tracked) == 0 {
		return []model.PullRequest{}, nil
	}

	batches, err := s.groupByAccount(ctx, tracked)
	if err != nil {
		return nil, err
	}

	results := make([]accountResult, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch accountBatch) {
			defer wg.Done()
			client := s.newClient(batch.account.Token)
			pulls, err := client.FetchPullRequests(ctx, batch.repos, state)
			results[i] = accountResult{pulls: pulls, err: err}
		}(i, batch)
	}
	wg.Wait()

	var all []model.PullRequest
	var authErr error
	var failed int

	for i, res := range results {
		login := batches[i].account.Login
		if res.err != nil {
			failed++
			if model.IsAuthFailed(res.err) {
				slog.Error("account authentication failed", "account", login, "error", res.err)
				if authErr == nil {
					authErr = res.err
				}
			} else {
				slog.Warn("account fetch failed", "account", login, "error", res.err)
			}
			continue
		}
		all = append(all, res.pulls...)
	}

	if all == nil {
		all = []model.PullRequest{}
	}

	slog.Info("pull request aggregation complete",
		"accounts", len(batches),
		"failed", failed,
		"pulls", len(all),
		"state", string(state),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return all, authErr
}

// groupByAccount buckets tracked repositories by account in first-seen
// order and resolves each account record. Stored rows insert in
// registration order, so first-seen order is registration order.
func (s *PullService) groupByAccount(ctx context.Context, tracked []model.TrackedRepository) ([]accountBatch, error) {
	var batches []accountBatch
	index := make(map[string]int)

	for _, repo := range tracked {
		i, ok := index[repo.AccountID]
		if !ok {
			account, err := s.accountStore.FindByID(ctx, repo.AccountID)
			if err != nil {
				return nil, fmt.Errorf("resolve account %s: %w", repo.AccountID, err)
			}
			if account == nil {
				// Orphaned row; cascade delete should prevent this.
				slog.Warn("tracked repository references unknown account", "account_id", repo.AccountID, "repo", repo.FullName())
				index[repo.AccountID] = -1
				continue
			}
			batches = append(batches, accountBatch{account: *account})
			i = len(batches) - 1
			index[repo.AccountID] = i
		}
		if i < 0 {
			continue
		}
		batches[i].repos = append(batches[i].repos, repo)
	}

	return batches, nil
}
