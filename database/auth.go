package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abefas/EmberTracker/models"
)

// hashPassword generates a bcrypt hash of the plain-text password.
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash compares a bcrypt password hash with a plain-text password.
func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new user. A duplicate email yields ErrEmailTaken.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	hashed, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		ID:    uuid.NewString(),
		Email: normalizeEmail(email),
	}
	err = c.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, u.ID, u.Email, hashed).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user insert: %w", err)
	}
	return u, nil
}

// SignIn checks the credentials, opens a session and returns it together
// with the signed token the browser should keep.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, string, error) {
	var u models.User
	err := c.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash
		FROM users
		WHERE email = $1
	`, normalizeEmail(email)).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrInvalidCredentials
	} else if err != nil {
		return nil, "", fmt.Errorf("user lookup: %w", err)
	}

	if !checkPasswordHash(password, u.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		ExpiresAt: c.now().Add(c.sessionTTL),
	}
	token, err := c.signer.Sign(*sess)
	if err != nil {
		return nil, "", err
	}

	if _, err := c.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, sess.ID, sess.UserID, sess.ExpiresAt); err != nil {
		return nil, "", fmt.Errorf("session insert: %w", err)
	}
	return sess, token, nil
}

// GetSession resolves a session token. An empty token means "nobody signed
// in" and returns (nil, nil). A token whose session was signed out or has
// expired returns ErrNotFound.
func (c *Client) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	now := c.now()
	claims, err := c.signer.Parse(token, now)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{ID: claims.ID}
	err = c.db.QueryRowContext(ctx, `
		SELECT s.user_id, u.email, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND s.expires_at > $2
	`, claims.ID, now).Scan(&sess.UserID, &sess.Email, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	return sess, nil
}

// SignOut deletes the session so its token stops resolving.
func (c *Client) SignOut(ctx context.Context, sessionID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
