package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"media-catalog/internal/logging"
)

// SessionDuration is the length of time a session remains valid.
const SessionDuration = 7 * 24 * time.Hour

// HasUsers checks if the single user account exists.
func (d *Database) HasUsers(ctx context.Context) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// CreateUser creates the single user with the given password.
func (d *Database) CreateUser(ctx context.Context, password string) error {
	done := observeQuery("create_user")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		done(err)
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = d.db.ExecContext(ctx, "INSERT INTO users (password_hash) VALUES (?)", string(hash))
	done(err)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash and invalidates all sessions.
func (d *Database) UpdatePassword(ctx context.Context, password string) error {
	done := observeQuery("update_password")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		done(err)
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err = d.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = strftime('%s', 'now')",
		string(hash),
	); err != nil {
		done(err)
		return fmt.Errorf("failed to update password: %w", err)
	}

	_, err = d.db.ExecContext(ctx, "DELETE FROM sessions")
	done(err)
	if err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}
	return nil
}

// ValidatePassword checks the password and returns the user if valid.
func (d *Database) ValidatePassword(ctx context.Context, password string) (*User, error) {
	done := observeQuery("validate_password")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user User
	var createdAt, updatedAt int64

	err := d.db.QueryRowContext(ctx,
		"SELECT id, password_hash, created_at, updated_at FROM users LIMIT 1",
	).Scan(&user.ID, &user.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		err = fmt.Errorf("invalid password")
		done(err)
		return nil, err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		err = fmt.Errorf("invalid password")
		done(err)
		return nil, err
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	done(nil)
	return &user, nil
}

// CreateSession creates a new session for a user. The returned token is the
// client-side secret; only its hash is stored.
func (d *Database) CreateSession(ctx context.Context, userID int64) (*Session, error) {
	done := observeQuery("create_session")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		done(err)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	hash := sha256.Sum256(tokenBytes)
	tokenHash := hex.EncodeToString(hash[:])
	token := hex.EncodeToString(tokenBytes)

	expiresAt := time.Now().Add(SessionDuration)

	result, err := d.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, expires_at) VALUES (?, ?, ?)",
		userID, tokenHash, expiresAt.Unix(),
	)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, _ := result.LastInsertId()

	return &Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// ValidateSession checks if a session token is valid and unexpired.
func (d *Database) ValidateSession(ctx context.Context, token string) (*User, error) {
	done := observeQuery("validate_session")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	decoded, err := hex.DecodeString(token)
	if err != nil {
		err = fmt.Errorf("invalid session")
		done(err)
		return nil, err
	}
	hash := sha256.Sum256(decoded)
	tokenHash := hex.EncodeToString(hash[:])

	var user User
	var createdAt, updatedAt int64

	err = d.db.QueryRowContext(ctx, `
		SELECT u.id, u.password_hash, u.created_at, u.updated_at
		FROM users u
		INNER JOIN sessions s ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, tokenHash, time.Now().Unix()).Scan(&user.ID, &user.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		err = fmt.Errorf("invalid session")
		done(err)
		return nil, err
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	done(nil)
	return &user, nil
}

// DeleteSession removes a session by its client token.
func (d *Database) DeleteSession(ctx context.Context, token string) error {
	done := observeQuery("delete_session")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	decoded, err := hex.DecodeString(token)
	if err != nil {
		done(err)
		return fmt.Errorf("invalid session token")
	}
	hash := sha256.Sum256(decoded)

	_, err = d.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE token = ?", hex.EncodeToString(hash[:]))
	done(err)
	return err
}

// CleanExpiredSessions removes sessions past their expiry.
func (d *Database) CleanExpiredSessions(ctx context.Context) {
	done := observeQuery("clean_expired_sessions")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", time.Now().Unix())
	done(err)
	if err != nil {
		logging.Error("failed to clean expired sessions: %v", err)
		return
	}
	if n, _ := result.RowsAffected(); n > 0 {
		logging.Debug("cleaned %d expired sessions", n)
	}
}
