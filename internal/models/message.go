package models

import (
	"time"

	"github.com/lib/pq"
)

// Message represents a direct message between two users. Exactly one of
// Content and ImagePath is non-nil.
type Message struct {
	ID         int           `db:"id" json:"id"`
	SenderID   int           `db:"sender_id" json:"sender_id"`
	ReceiverID int           `db:"receiver_id" json:"receiver_id"`
	Content    *string       `db:"content" json:"content"`
	ImagePath  *string       `db:"image_path" json:"image_path"`
	Delivered  bool          `db:"delivered" json:"delivered"`
	Read       bool          `db:"read" json:"read"`
	IsDeleted  bool          `db:"is_deleted" json:"is_deleted"`
	DeletedBy  pq.Int64Array `db:"deleted_by" json:"deleted_by"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// HiddenFor reports whether the viewer soft-deleted the message for
// themselves. A deleted-for-all message is not hidden; it renders as a
// tombstone for everyone instead.
func (m Message) HiddenFor(viewerID int) bool {
	return containsID(m.DeletedBy, viewerID)
}

// ValidPayload reports whether exactly one of content and image path is set.
func ValidPayload(content, imagePath *string) bool {
	if content == nil {
		return imagePath != nil
	}
	return imagePath == nil
}
