// Package inbox persists the notification history per channel so a client
// that reconnects can page back through what it missed. Read state is a
// single unread counter per channel with a bulk reset; there is no
// per-notification read flag.
package inbox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"parishd/internal/domain"
)

var (
	bucketChannels = []byte("channels")
	bucketUnread   = []byte("unread")
)

// Inbox is a bbolt-backed notification log keyed by channel name.
type Inbox struct {
	logger *zap.Logger

	mu     sync.RWMutex
	db     *bolt.DB
	closed bool
}

// Open opens (or creates) the inbox database at path.
func Open(path string, logger *zap.Logger) (*Inbox, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure inbox dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open inbox db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketChannels); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketUnread)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure inbox schema: %w", err)
	}

	return &Inbox{logger: logger.Named("inbox"), db: db}, nil
}

// Close closes the database.
func (i *Inbox) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	return i.db.Close()
}

// Append logs one notification under the channel and bumps its unread
// counter. Errors are logged, never surfaced: the inbox is best-effort and
// must not disturb the delivery path it observes.
func (i *Inbox) Append(channel string, n domain.Notification) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		i.logger.Error("inbox encode failed", zap.String("channel", channel), zap.Error(err))
		return
	}

	err = i.db.Update(func(tx *bolt.Tx) error {
		log, err := tx.Bucket(bucketChannels).CreateBucketIfNotExists([]byte(channel))
		if err != nil {
			return err
		}
		seq, err := log.NextSequence()
		if err != nil {
			return err
		}
		if err := log.Put(seqKey(seq), payload); err != nil {
			return err
		}

		unread := tx.Bucket(bucketUnread)
		count := readCount(unread.Get([]byte(channel)))
		return unread.Put([]byte(channel), writeCount(count+1))
	})
	if err != nil {
		i.logger.Error("inbox append failed", zap.String("channel", channel), zap.Error(err))
	}
}

// UnreadCount returns the channel's unread counter.
func (i *Inbox) UnreadCount(channel string) (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, domain.ErrInboxClosed
	}

	var count uint64
	err := i.db.View(func(tx *bolt.Tx) error {
		count = readCount(tx.Bucket(bucketUnread).Get([]byte(channel)))
		return nil
	})
	return count, err
}

// MarkAllRead resets the channel's unread counter to zero. This is the only
// read-state mutation: there is deliberately no per-notification variant.
func (i *Inbox) MarkAllRead(channel string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return domain.ErrInboxClosed
	}

	return i.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUnread).Put([]byte(channel), writeCount(0))
	})
}

// Recent returns up to limit notifications for the channel, newest first.
func (i *Inbox) Recent(channel string, limit int) ([]domain.Notification, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, domain.ErrInboxClosed
	}
	if limit <= 0 {
		limit = domain.DefaultListPageSize
	}

	notifications := []domain.Notification{}
	err := i.db.View(func(tx *bolt.Tx) error {
		log := tx.Bucket(bucketChannels).Bucket([]byte(channel))
		if log == nil {
			return nil
		}
		cursor := log.Cursor()
		for k, v := cursor.Last(); k != nil && len(notifications) < limit; k, v = cursor.Prev() {
			var n domain.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				i.logger.Warn("inbox decode failed", zap.String("channel", channel), zap.Error(err))
				continue
			}
			notifications = append(notifications, n)
		}
		return nil
	})
	return notifications, err
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func readCount(raw []byte) uint64 {
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func writeCount(count uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, count)
	return raw
}
