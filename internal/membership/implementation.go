// internal/membership/implementation.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"libradesk/internal/apperr"
	"libradesk/pkg/database"
)

// ErrInvalidCredentials is returned for any failed login so the response does
// not reveal whether the email exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrTooManyAttempts is returned when the login throttle trips.
var ErrTooManyAttempts = errors.New("too many login attempts")

// service implements the Service interface.
type service struct {
	db           *database.DB
	loginLimiter *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(db *database.DB) Service {
	return &service{
		db:           db,
		loginLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

// Register creates a new user with a hashed password.
func (s *service) Register(ctx context.Context, in CreateUserInput) (*User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("name, email and password are required")
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, apperr.Validation("role must be ADMIN or USER")
	}

	hash, salt, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		Role:         role,
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := s.db.Rebind(`
		INSERT INTO users (id, name, email, role, password_hash, password_salt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = s.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.Role, user.PasswordHash, user.PasswordSalt,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// Authenticate verifies a user's credentials and returns the user if
// successful.
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if !s.loginLimiter.Allow() {
		return nil, ErrTooManyAttempts
	}

	user := &User{}
	query := s.db.Rebind(`SELECT * FROM users WHERE email = ?`)
	if err := s.db.GetContext(ctx, user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	ok, err := verifyPassword(password, user.PasswordSalt, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Get retrieves a user by ID.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	user := &User{}
	query := s.db.Rebind(`SELECT * FROM users WHERE id = ?`)
	if err := s.db.GetContext(ctx, user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Update replaces the user's profile. The password is rehashed only when a
// new non-empty value is supplied.
func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Role != "" {
		if !in.Role.Valid() {
			return nil, apperr.Validation("role must be ADMIN or USER")
		}
		user.Role = in.Role
	}
	if in.Password != "" {
		hash, salt, err := hashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		user.PasswordSalt = salt
	}
	user.UpdatedAt = time.Now().UTC()

	query := s.db.Rebind(`
		UPDATE users
		SET name = ?, email = ?, role = ?, password_hash = ?, password_salt = ?, updated_at = ?
		WHERE id = ?
	`)
	_, err = s.db.ExecContext(ctx, query,
		user.Name, user.Email, user.Role, user.PasswordHash, user.PasswordSalt, user.UpdatedAt, id,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// Delete removes a user. Users with an active loan cannot be deleted; their
// finished loans are removed with them.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var active int
		countQuery := tx.Rebind(`SELECT COUNT(*) FROM loans WHERE user_id = ? AND status = ?`)
		if err := tx.GetContext(ctx, &active, countQuery, id, "ACTIVE"); err != nil {
			return fmt.Errorf("count active loans: %w", err)
		}
		if active > 0 {
			return apperr.Conflict("user has active loans")
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM loans WHERE user_id = ?`), id); err != nil {
			return fmt.Errorf("delete finished loans: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// List returns users newest first, each with the count of loans they own.
func (s *service) List(ctx context.Context) ([]*User, error) {
	users := []*User{}
	query := `
		SELECT u.id, u.name, u.email, u.role, u.created_at, u.updated_at,
		       COUNT(l.id) AS loan_count
		FROM users u
		LEFT JOIN loans l ON l.user_id = u.id
		GROUP BY u.id, u.name, u.email, u.role, u.created_at, u.updated_at
		ORDER BY u.created_at DESC
	`
	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
