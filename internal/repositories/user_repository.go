package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/angga0x/ownchat/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

const userColumns = `id, username, password_hash, online, pinned_chats, archived_chats, created_at`

// UserRepository abstracts user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string) (models.User, error)
	GetUser(ctx context.Context, id int) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetOnline(ctx context.Context, id int, online bool) error
	PinChat(ctx context.Context, userID, partnerID int) (models.User, error)
	UnpinChat(ctx context.Context, userID, partnerID int) (models.User, error)
	ArchiveChat(ctx context.Context, userID, partnerID int) (models.User, error)
	UnarchiveChat(ctx context.Context, userID, partnerID int) (models.User, error)
}

// UserRepo is a sqlx-backed repository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a new account.
func (r *UserRepo) CreateUser(ctx context.Context, username, passwordHash string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING `+userColumns,
		username, passwordHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.User{}, ErrUsernameTaken
	}
	return user, err
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, id int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByUsername fetches a user by username.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ListUsers returns all users ordered by username.
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	return users, err
}

// SetOnline flips the presence flag.
func (r *UserRepo) SetOnline(ctx context.Context, id int, online bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET online=$2 WHERE id=$1`, id, online)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PinChat adds partnerID to the user's pinned set. Idempotent.
func (r *UserRepo) PinChat(ctx context.Context, userID, partnerID int) (models.User, error) {
	return r.mutateChatSet(ctx, `UPDATE users SET pinned_chats =
        CASE WHEN $2 = ANY(pinned_chats) THEN pinned_chats ELSE array_append(pinned_chats, $2) END
        WHERE id=$1 RETURNING `+userColumns, userID, partnerID)
}

// UnpinChat removes partnerID from the user's pinned set.
func (r *UserRepo) UnpinChat(ctx context.Context, userID, partnerID int) (models.User, error) {
	return r.mutateChatSet(ctx, `UPDATE users SET pinned_chats = array_remove(pinned_chats, $2)
        WHERE id=$1 RETURNING `+userColumns, userID, partnerID)
}

// ArchiveChat adds partnerID to the user's archived set. Idempotent.
func (r *UserRepo) ArchiveChat(ctx context.Context, userID, partnerID int) (models.User, error) {
	return r.mutateChatSet(ctx, `UPDATE users SET archived_chats =
        CASE WHEN $2 = ANY(archived_chats) THEN archived_chats ELSE array_append(archived_chats, $2) END
        WHERE id=$1 RETURNING `+userColumns, userID, partnerID)
}

// UnarchiveChat removes partnerID from the user's archived set.
func (r *UserRepo) UnarchiveChat(ctx context.Context, userID, partnerID int) (models.User, error) {
	return r.mutateChatSet(ctx, `UPDATE users SET archived_chats = array_remove(archived_chats, $2)
        WHERE id=$1 RETURNING `+userColumns, userID, partnerID)
}

func (r *UserRepo) mutateChatSet(ctx context.Context, query string, userID, partnerID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, query, userID, partnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
