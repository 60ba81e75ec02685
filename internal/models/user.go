package models

import (
	"time"

	"github.com/lib/pq"
)

// User represents an account. PasswordHash never leaves the server.
type User struct {
	ID            int           `db:"id" json:"id"`
	Username      string        `db:"username" json:"username"`
	PasswordHash  string        `db:"password_hash" json:"-"`
	Online        bool          `db:"online" json:"online"`
	PinnedChats   pq.Int64Array `db:"pinned_chats" json:"pinned_chats"`
	ArchivedChats pq.Int64Array `db:"archived_chats" json:"archived_chats"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// HasPinned reports whether the chat with partnerID is pinned.
func (u User) HasPinned(partnerID int) bool {
	return containsID(u.PinnedChats, partnerID)
}

// HasArchived reports whether the chat with partnerID is archived.
func (u User) HasArchived(partnerID int) bool {
	return containsID(u.ArchivedChats, partnerID)
}

func containsID(ids pq.Int64Array, id int) bool {
	for _, v := range ids {
		if int(v) == id {
			return true
		}
	}
	return false
}
