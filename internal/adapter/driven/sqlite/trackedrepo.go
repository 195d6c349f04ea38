package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prdeck/prdeck/internal/domain/model"
	"github.com/prdeck/prdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TrackedRepoStore = (*TrackedRepoRepo)(nil)

// TrackedRepoRepo is the SQLite implementation of the TrackedRepoStore
// port.
type TrackedRepoRepo struct {
	db *DB
}

// NewTrackedRepoRepo creates a TrackedRepoRepo backed by the given DB.
func NewTrackedRepoRepo(db *DB) *TrackedRepoRepo {
	return &TrackedRepoRepo{db: db}
}

// Add inserts a tracked repository. Returns ErrRepoAlreadyTracked when the
// (account, owner, repository) triple already exists.
func (r *TrackedRepoRepo) Add(ctx context.Context, repo model.TrackedRepository) error {
	const query = `INSERT INTO tracked_repositories
		(account_id, owner_login, owner_html_url, owner_avatar_url, name, html_url, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	addedAt := repo.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		repo.AccountID,
		repo.Owner.Login,
		repo.Owner.HTMLURL,
		repo.Owner.AvatarURL,
		repo.Name,
		repo.HTMLURL,
		addedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("track repository %s: %w", repo.FullName(), driven.ErrRepoAlreadyTracked)
		}
		return fmt.Errorf("track repository %s: %w", repo.FullName(), err)
	}

	return nil
}

// Remove deletes a tracked repository by row id. Returns ErrRepoNotFound
// when it does not exist.
func (r *TrackedRepoRepo) Remove(ctx context.Context, id int64) error {
	const query = `DELETE FROM tracked_repositories WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove tracked repository %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("remove tracked repository %d: %w", id, driven.ErrRepoNotFound)
	}

	return nil
}

// RemoveByName deletes a tracked repository by its (account, owner, name)
// triple. Returns ErrRepoNotFound when it does not exist.
func (r *TrackedRepoRepo) RemoveByName(ctx context.Context, accountID, ownerLogin, name string) error {
	const query = `DELETE FROM tracked_repositories WHERE account_id = ? AND owner_login = ? AND name = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, accountID, ownerLogin, name)
	if err != nil {
		return fmt.Errorf("remove tracked repository %s/%s: %w", ownerLogin, name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("remove tracked repository %s/%s: %w", ownerLogin, name, driven.ErrRepoNotFound)
	}

	return nil
}

const trackedColumns = `id, account_id, owner_login, owner_html_url, owner_avatar_url, name, html_url, added_at`

// ListAll returns all tracked repositories in insertion order, which fixes
// the account iteration order of the fan-out.
func (r *TrackedRepoRepo) ListAll(ctx context.Context) ([]model.TrackedRepository, error) {
	const query = `SELECT ` + trackedColumns + ` FROM tracked_repositories ORDER BY id`
	return r.list(ctx, query)
}

// ListByAccount returns the tracked repositories for one account in
// insertion order.
func (r *TrackedRepoRepo) ListByAccount(ctx context.Context, accountID string) ([]model.TrackedRepository, error) {
	const query = `SELECT ` + trackedColumns + ` FROM tracked_repositories WHERE account_id = ? ORDER BY id`
	return r.list(ctx, query, accountID)
}

func (r *TrackedRepoRepo) list(ctx context.Context, query string, args ...any) ([]model.TrackedRepository, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracked repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.TrackedRepository
	for rows.Next() {
		repo, err := scanTrackedRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracked repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked repositories: %w", err)
	}

	return repos, nil
}

func scanTrackedRepository(s scanner) (*model.TrackedRepository, error) {
	var repo model.TrackedRepository
	var addedAt string

	err := s.Scan(
		&repo.ID,
		&repo.AccountID,
		&repo.Owner.Login,
		&repo.Owner.HTMLURL,
		&repo.Owner.AvatarURL,
		&repo.Name,
		&repo.HTMLURL,
		&addedAt,
	)
	if err != nil {
		return nil, err
	}

	repo.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &repo, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
