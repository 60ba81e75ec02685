package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/angga0x/ownchat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, sender_id, receiver_id, content, image_path, delivered, read, is_deleted, deleted_by, created_at`

// MessageRepository defines the durable-store operations the delivery core
// consumes. Ids come from the table's sequence, so concurrent sends can
// never collide.
type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID, receiverID int, content, imagePath *string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	GetMessagesBetween(ctx context.Context, userA, userB int) ([]models.Message, error)
	GetUndelivered(ctx context.Context, receiverID int) ([]models.Message, error)
	MarkDelivered(ctx context.Context, receiverID int) ([]models.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID int) ([]models.Message, error)
	DeleteForMe(ctx context.Context, messageID, viewerID int) (models.Message, error)
	DeleteForAll(ctx context.Context, messageID int) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a new message with server-assigned id and timestamp.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID, receiverID int, content, imagePath *string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`INSERT INTO messages (sender_id, receiver_id, content, image_path)
         VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
		senderID, receiverID, content, imagePath)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetMessagesBetween returns the conversation between two users ordered by
// creation time ascending.
func (r *MessageRepo) GetMessagesBetween(ctx context.Context, userA, userB int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
         ORDER BY created_at ASC, id ASC`,
		userA, userB)
	return msgs, err
}

// GetUndelivered returns messages waiting for the receiver.
func (r *MessageRepo) GetUndelivered(ctx context.Context, receiverID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE receiver_id=$1 AND delivered = FALSE
         ORDER BY created_at ASC, id ASC`,
		receiverID)
	return msgs, err
}

// MarkDelivered transitions all of the receiver's undelivered messages and
// returns the transitioned rows so callers can notify each sender.
func (r *MessageRepo) MarkDelivered(ctx context.Context, receiverID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`UPDATE messages SET delivered = TRUE
         WHERE receiver_id=$1 AND delivered = FALSE
         RETURNING `+messageColumns,
		receiverID)
	return msgs, err
}

// MarkRead transitions unread messages from sender to receiver. Read implies
// delivered, enforced in the same statement.
func (r *MessageRepo) MarkRead(ctx context.Context, senderID, receiverID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`UPDATE messages SET read = TRUE, delivered = TRUE
         WHERE sender_id=$1 AND receiver_id=$2 AND read = FALSE
         RETURNING `+messageColumns,
		senderID, receiverID)
	return msgs, err
}

// DeleteForMe adds the viewer to the message's deleted_by set. Idempotent.
func (r *MessageRepo) DeleteForMe(ctx context.Context, messageID, viewerID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`UPDATE messages SET deleted_by =
         CASE WHEN $2 = ANY(deleted_by) THEN deleted_by ELSE array_append(deleted_by, $2) END
         WHERE id=$1 RETURNING `+messageColumns,
		messageID, viewerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteForAll flips the message into a tombstone for every viewer.
// Authorization is the caller's responsibility.
func (r *MessageRepo) DeleteForAll(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`UPDATE messages SET is_deleted = TRUE WHERE id=$1 RETURNING `+messageColumns,
		messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
