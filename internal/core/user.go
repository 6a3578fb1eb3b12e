package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// User is an authenticated Numa user. CredentialHash is the bcrypt hash
// that Register stores and VerifyCredential checks against.
type User struct {
	ID             int
	OwnerID        string
	CredentialHash string
	CreatedAt      time.Time
}

// UserService provides user lookup and registration. Core logic never
// deletes a User.
type UserService interface {
	GetByOwnerID(ctx context.Context, ownerID string) (*User, error)
	// Register hashes plaintext and stores the resulting User. The core owns
	// the hashing scheme; callers never see or persist the plaintext.
	Register(ctx context.Context, ownerID, plaintext string) (*User, error)
	// VerifyCredential compares plaintext against the stored hash for ownerID.
	VerifyCredential(ctx context.Context, ownerID, plaintext string) (*User, error)
}

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

func (s *userService) GetByOwnerID(ctx context.Context, ownerID string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, credential_hash, created_at
		FROM users
		WHERE owner_id = $1`,
		ownerID,
	).Scan(&u.ID, &u.OwnerID, &u.CredentialHash, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("owner %q: %w", ownerID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to load user %q: %w", ownerID, err)
	}
	return u, nil
}

func (s *userService) Register(ctx context.Context, ownerID, plaintext string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash credential for owner %q: %w", ownerID, err)
	}

	u := &User{}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO users (owner_id, credential_hash, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, owner_id, credential_hash, created_at`,
		ownerID, string(hash),
	).Scan(&u.ID, &u.OwnerID, &u.CredentialHash, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to register owner %q: %w", ownerID, err)
	}
	return u, nil
}

func (s *userService) VerifyCredential(ctx context.Context, ownerID, plaintext string) (*User, error) {
	u, err := s.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.CredentialHash), []byte(plaintext)); err != nil {
		return nil, fmt.Errorf("invalid credentials for owner %q", ownerID)
	}
	return u, nil
}
