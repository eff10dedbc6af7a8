// internal/membership/implementation_test.go
package membership

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libradesk/internal/apperr"
	"libradesk/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestRegister(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	user, err := svc.Register(context.Background(), CreateUserInput{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "SecurePass123!",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleUser, user.Role, "role defaults to USER")
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "SecurePass123!", user.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.Register(ctx, CreateUserInput{Name: "Ana", Email: "ana@example.com"})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.Register(ctx, CreateUserInput{
		Name: "Ana", Email: "ana@example.com", Password: "pw", Role: "LIBRARIAN",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.Register(ctx, CreateUserInput{Name: "Ana", Email: "ana@example.com", Password: "pw1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, CreateUserInput{Name: "Other", Email: "ana@example.com", Password: "pw2"})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, "email already registered", err.Error())
}

func TestPasswordIsNeverSerialized(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	user, err := svc.Register(context.Background(), CreateUserInput{
		Name: "Ana", Email: "ana@example.com", Password: "SecurePass123!",
	})
	require.NoError(t, err)

	body, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), user.PasswordHash)
	assert.NotContains(t, string(body), user.PasswordSalt)
}

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	registered, err := svc.Register(ctx, CreateUserInput{
		Name: "Ana", Email: "ana@example.com", Password: "SecurePass123!",
	})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "ana@example.com", "SecurePass123!")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.Register(ctx, CreateUserInput{
		Name: "Ana", Email: "ana@example.com", Password: "original",
	})
	require.NoError(t, err)
	originalHash := user.PasswordHash

	// empty password keeps the stored credential
	updated, err := svc.Update(ctx, user.ID, UpdateUserInput{Name: "Ana Maria", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, RoleAdmin, updated.Role)
	assert.Equal(t, originalHash, updated.PasswordHash)

	// a non-empty password is rehashed
	updated, err = svc.Update(ctx, user.ID, UpdateUserInput{Password: "new-password"})
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, updated.PasswordHash)

	_, err = svc.Authenticate(ctx, "ana@example.com", "new-password")
	require.NoError(t, err)

	_, err = svc.Update(ctx, uuid.New(), UpdateUserInput{Name: "Ghost"})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteUserWithActiveLoanConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.Register(ctx, CreateUserInput{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	now := time.Now().UTC()
	bookID := uuid.New()
	_, err = db.Exec(db.Rebind(`
		INSERT INTO books (id, title, author, isbn, category, published_at, available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), bookID, "Dune", "Frank Herbert", "0001", "Science Fiction", 1965, false, now, now)
	require.NoError(t, err)
	_, err = db.Exec(db.Rebind(`
		INSERT INTO loans (id, user_id, book_id, borrowed_at, due_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), uuid.New(), user.ID, bookID, now, now.AddDate(0, 0, 7), "ACTIVE", now, now)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, "user has active loans", err.Error())

	_, err = db.Exec(db.Rebind(`UPDATE loans SET status = ? WHERE user_id = ?`), "RETURNED", user.ID)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, user.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestListUsersWithLoanCounts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	ana, err := svc.Register(ctx, CreateUserInput{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	bruno, err := svc.Register(ctx, CreateUserInput{Name: "Bruno", Email: "bruno@example.com", Password: "pw"})
	require.NoError(t, err)

	now := time.Now().UTC()
	bookID := uuid.New()
	_, err = db.Exec(db.Rebind(`
		INSERT INTO books (id, title, author, isbn, category, published_at, available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), bookID, "Dune", "Frank Herbert", "0001", "Science Fiction", 1965, false, now, now)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		status := "RETURNED"
		if i == 0 {
			status = "ACTIVE"
		}
		_, err = db.Exec(db.Rebind(`
			INSERT INTO loans (id, user_id, book_id, borrowed_at, due_date, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`), uuid.New(), ana.ID, bookID, now, now.AddDate(0, 0, 7), status, now, now)
		require.NoError(t, err)
	}

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, bruno.ID, users[0].ID, "newest first")
	assert.Equal(t, 0, users[0].LoanCount)
	assert.Equal(t, ana.ID, users[1].ID)
	assert.Equal(t, 2, users[1].LoanCount)
}
