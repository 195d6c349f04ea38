package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prdeck/prdeck/internal/domain/model"
	"github.com/prdeck/prdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port.
// Tokens are encrypted with AES-256-GCM before write when a key is
// configured; with a nil key tokens are stored in plaintext. Changing the
// key invalidates previously stored tokens.
type AccountRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key, or nil to disable encryption.
}

// NewAccountRepo creates an AccountRepo backed by the given DB. key must
// be 32 bytes for AES-256-GCM, or nil to store tokens unencrypted.
func NewAccountRepo(db *DB, key []byte) *AccountRepo {
	return &AccountRepo{db: db, key: key}
}

// Create inserts a new account. Returns ErrAccountAlreadyExists when the
// login is already registered (case-insensitive).
func (r *AccountRepo) Create(ctx context.Context, account model.Account) error {
	token, err := r.encryptToken(account.Token)
	if err != nil {
		return fmt.Errorf("create account %s: %w", account.Login, err)
	}

	const query = `INSERT INTO accounts (id, login, name, html_url, avatar_url, token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := account.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		account.ID,
		account.Login,
		account.Name,
		account.HTMLURL,
		account.AvatarURL,
		token,
		formatNullableTime(account.ExpiresAt),
		createdAt.Format(time.RFC3339),
		updatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("create account %s: %w", account.Login, driven.ErrAccountAlreadyExists)
		}
		return fmt.Errorf("create account %s: %w", account.Login, err)
	}

	return nil
}

const accountColumns = `id, login, name, html_url, avatar_url, token, expires_at, created_at, updated_at`

// FindByID retrieves an account by its UUID. Returns nil, nil when absent.
func (r *AccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	account, err := r.scanAccount(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account %s: %w", id, err)
	}

	return account, nil
}

// FindByLogin retrieves an account by login (case-insensitive).
// Returns nil, nil when absent.
func (r *AccountRepo) FindByLogin(ctx context.Context, login string) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE login = ?`

	account, err := r.scanAccount(r.db.Reader.QueryRowContext(ctx, query, login))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account by login %s: %w", login, err)
	}

	return account, nil
}

// ListAll returns all registered accounts in registration order.
func (r *AccountRepo) ListAll(ctx context.Context) ([]model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// UpdateToken replaces the token and expiration for an existing account.
// Tracked repositories are untouched. Returns ErrAccountNotFound when the
// id does not exist.
func (r *AccountRepo) UpdateToken(ctx context.Context, id string, token string, expiresAt *time.Time) error {
	encrypted, err := r.encryptToken(token)
	if err != nil {
		return fmt.Errorf("update token for account %s: %w", id, err)
	}

	const query = `UPDATE accounts SET token = ?, expires_at = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query,
		encrypted,
		formatNullableTime(expiresAt),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("update token for account %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update token for account %s: %w", id, driven.ErrAccountNotFound)
	}

	return nil
}

// Delete removes an account. Tracked repositories cascade via foreign key.
// Returns ErrAccountNotFound when the id does not exist.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM accounts WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete account %s: %w", id, driven.ErrAccountNotFound)
	}

	return nil
}

func (r *AccountRepo) scanAccount(s scanner) (*model.Account, error) {
	var account model.Account
	var token string
	var expiresAt sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&account.ID,
		&account.Login,
		&account.Name,
		&account.HTMLURL,
		&account.AvatarURL,
		&token,
		&expiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Token, err = r.decryptToken(token)
	if err != nil {
		return nil, fmt.Errorf("decrypt token: %w", err)
	}

	if expiresAt.Valid {
		t, err := parseTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse expires_at: %w", err)
		}
		account.ExpiresAt = &t
	}

	account.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	account.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &account, nil
}

// encryptToken encrypts a token with AES-256-GCM, returning base64 of
// nonce || ciphertext || tag. Pass-through when no key is configured.
func (r *AccountRepo) encryptToken(plaintext string) (string, error) {
	if r.key == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decryptToken reverses encryptToken. Pass-through when no key is
// configured.
func (r *AccountRepo) decryptToken(stored string) (string, error) {
	if r.key == nil {
		return stored, nil
	}

	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

// formatNullableTime renders an optional time as RFC 3339 or SQL NULL.
func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
