package client

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/angga0x/ownchat/internal/models"
)

const (
	// CacheLimit caps the message window stored per conversation pair.
	CacheLimit = 50
	// CacheTTL bounds how long a cached pair stays valid without a refresh.
	CacheTTL = 24 * time.Hour
)

// PairCache is the persistent local message cache, keyed by the canonical
// unordered user pair so either party opening the conversation hits the
// same entry. Messages are indexed by id, so status updates are targeted
// rather than a scan over every stored pair.
type PairCache struct {
	db    *sql.DB
	limit int
	ttl   time.Duration
}

// OpenPairCache opens (and if needed initializes) the cache database.
func OpenPairCache(path string) (*PairCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS cache_pairs (
            pair_key TEXT PRIMARY KEY,
            last_seen_message_id INTEGER NOT NULL DEFAULT 0,
            cached_at TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS cache_messages (
            pair_key TEXT NOT NULL,
            message_id INTEGER NOT NULL,
            sender_id INTEGER NOT NULL,
            receiver_id INTEGER NOT NULL,
            content TEXT,
            image_path TEXT,
            delivered INTEGER NOT NULL DEFAULT 0,
            read INTEGER NOT NULL DEFAULT 0,
            is_deleted INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP NOT NULL,
            PRIMARY KEY (pair_key, message_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_cache_messages_id ON cache_messages (message_id);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init cache schema: %w", err)
		}
	}

	return &PairCache{db: db, limit: CacheLimit, ttl: CacheTTL}, nil
}

// Close closes the underlying database.
func (c *PairCache) Close() error {
	return c.db.Close()
}

// PairKey canonicalizes an unordered user pair.
func PairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Read returns the cached window for a pair, ascending by timestamp. An
// expired or unreadable entry is deleted and reported as absent, so the
// caller falls back to an authoritative fetch.
func (c *PairCache) Read(pairKey string) ([]models.Message, bool, error) {
	var cachedAt time.Time
	err := c.db.QueryRow(`SELECT cached_at FROM cache_pairs WHERE pair_key=?`, pairKey).Scan(&cachedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Since(cachedAt) > c.ttl {
		return nil, false, c.evict(pairKey)
	}

	rows, err := c.db.Query(
		`SELECT message_id, sender_id, receiver_id, content, image_path, delivered, read, is_deleted, created_at
         FROM cache_messages WHERE pair_key=? ORDER BY created_at ASC, message_id ASC`, pairKey)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.ImagePath,
			&m.Delivered, &m.Read, &m.IsDeleted, &m.CreatedAt); err != nil {
			// Self-heal: a corrupt entry is worthless, drop it.
			return nil, false, c.evict(pairKey)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, c.evict(pairKey)
	}
	return msgs, true, nil
}

// Write replaces the pair's window with the given messages, trimmed to the
// most recent limit and stored ascending.
func (c *PairCache) Write(pairKey string, msgs []models.Message) error {
	if len(msgs) > c.limit {
		msgs = msgs[len(msgs)-c.limit:]
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cache_messages WHERE pair_key=?`, pairKey); err != nil {
		return err
	}
	for _, m := range msgs {
		if err := insertMessage(tx, pairKey, m); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO cache_pairs (pair_key, cached_at) VALUES (?, ?)
         ON CONFLICT(pair_key) DO UPDATE SET cached_at=excluded.cached_at`,
		pairKey, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

// Append merges one message into the pair's window. Appending an id that is
// already stored is a no-op, and the window is re-trimmed afterwards.
func (c *PairCache) Append(pairKey string, m models.Message) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertMessage(tx, pairKey, m); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM cache_messages WHERE pair_key=? AND message_id NOT IN (
            SELECT message_id FROM cache_messages WHERE pair_key=?
            ORDER BY created_at DESC, message_id DESC LIMIT ?)`,
		pairKey, pairKey, c.limit); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO cache_pairs (pair_key, cached_at) VALUES (?, ?)
         ON CONFLICT(pair_key) DO UPDATE SET cached_at=excluded.cached_at`,
		pairKey, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMessage(tx *sql.Tx, pairKey string, m models.Message) error {
	_, err := tx.Exec(
		`INSERT OR IGNORE INTO cache_messages
         (pair_key, message_id, sender_id, receiver_id, content, image_path, delivered, read, is_deleted, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pairKey, m.ID, m.SenderID, m.ReceiverID, m.Content, m.ImagePath,
		m.Delivered, m.Read, m.IsDeleted, m.CreatedAt)
	return err
}

// UpdateStatus patches delivered/read flags wherever the message is cached.
func (c *PairCache) UpdateStatus(messageID int, delivered, read bool) error {
	_, err := c.db.Exec(
		`UPDATE cache_messages SET delivered=?, read=? WHERE message_id=?`,
		delivered, read, messageID)
	return err
}

// MarkDeletedForAll turns the cached copy into a tombstone: the flag flips
// and the payload is dropped so the cache no longer retains the content.
func (c *PairCache) MarkDeletedForAll(messageID int) error {
	_, err := c.db.Exec(
		`UPDATE cache_messages SET is_deleted=1, content=NULL, image_path=NULL WHERE message_id=?`,
		messageID)
	return err
}

// Remove drops the cached copy entirely (delete-for-me on this device).
func (c *PairCache) Remove(messageID int) error {
	_, err := c.db.Exec(`DELETE FROM cache_messages WHERE message_id=?`, messageID)
	return err
}

// SetLastSeen records the newest message id the user has seen for the pair.
func (c *PairCache) SetLastSeen(pairKey string, messageID int) error {
	_, err := c.db.Exec(
		`INSERT INTO cache_pairs (pair_key, last_seen_message_id, cached_at) VALUES (?, ?, ?)
         ON CONFLICT(pair_key) DO UPDATE SET last_seen_message_id=excluded.last_seen_message_id`,
		pairKey, messageID, time.Now())
	return err
}

// LastSeen returns the recorded last-seen message id for the pair.
func (c *PairCache) LastSeen(pairKey string) (int, error) {
	var id int
	err := c.db.QueryRow(`SELECT last_seen_message_id FROM cache_pairs WHERE pair_key=?`, pairKey).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

func (c *PairCache) evict(pairKey string) error {
	if _, err := c.db.Exec(`DELETE FROM cache_messages WHERE pair_key=?`, pairKey); err != nil {
		return err
	}
	_, err := c.db.Exec(`DELETE FROM cache_pairs WHERE pair_key=?`, pairKey)
	return err
}
