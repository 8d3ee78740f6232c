// Package state implements the shared in-memory state of the bot: per-user
// message counters, bounded per-chat message context buffers, and the registry
// of open moderation prompts. It is the only shared mutable resource in the
// application and supports snapshot persistence to disk.
package state

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"strconv"
	"sync"
)

// shardCount is the number of lock stripes per map. Operations on keys that
// land in different shards never contend.
const shardCount = 32

// Message is a single chat message retained in a chat's context buffer.
// It carries enough sender metadata to re-render the sender identity for the
// classifier prompt and moderation notifications.
type Message struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Text      string `json:"text"`
	Date      int64  `json:"date"`
}

// SenderLabel renders the sender as "First Last (id)" for prompts and logs.
func (m Message) SenderLabel() string {
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s (%d)", name, m.UserID)
}

type counterShard struct {
	mu     sync.RWMutex
	counts map[string]uint64
}

type contextShard struct {
	mu      sync.RWMutex
	buffers map[int64][]Message
}

type notificationShard struct {
	mu      sync.RWMutex
	prompts map[string]int
}

// Store is a lock-striped concurrent store. Each operation is atomic with
// respect to the key(s) it touches; there are no cross-key transactions.
type Store struct {
	log           *slog.Logger
	counters      [shardCount]counterShard
	contexts      [shardCount]contextShard
	notifications [shardCount]notificationShard
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{log: logger.With("component", "state_store")}
	for i := range s.counters {
		s.counters[i].counts = make(map[string]uint64)
		s.contexts[i].buffers = make(map[int64][]Message)
		s.notifications[i].prompts = make(map[string]int)
	}
	return s
}

// counterKey matches the persisted snapshot key format, "user_id:chat_id".
func counterKey(chatID, userID int64) string {
	return strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(chatID, 10)
}

func shardForKey(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % shardCount
}

func shardForChat(chatID int64) uint32 {
	h := fnv.New32a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(chatID >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum32() % shardCount
}

// Increment atomically increases the counter for (chat, user) by one and
// returns the new value. An absent counter starts at zero.
func (s *Store) Increment(chatID, userID int64) uint64 {
	key := counterKey(chatID, userID)
	shard := &s.counters[shardForKey(key)]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.counts[key]++
	return shard.counts[key]
}

// Count returns the current counter value for (chat, user), or zero if absent.
func (s *Store) Count(chatID, userID int64) uint64 {
	key := counterKey(chatID, userID)
	shard := &s.counters[shardForKey(key)]

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	return shard.counts[key]
}

// Reset removes the counter for (chat, user). A subsequent Count returns zero.
func (s *Store) Reset(chatID, userID int64) {
	key := counterKey(chatID, userID)
	shard := &s.counters[shardForKey(key)]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.counts, key)
}

// AddMessage appends a message to the chat's context buffer and evicts the
// oldest entries until the buffer holds at most maxSize messages. The append
// and eviction happen under a single lock, so concurrent appends to the same
// chat never lose a message or overshoot the bound.
func (s *Store) AddMessage(chatID int64, msg Message, maxSize int) {
	shard := &s.contexts[shardForChat(chatID)]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	buf := append(shard.buffers[chatID], msg)
	if maxSize >= 0 && len(buf) > maxSize {
		buf = buf[len(buf)-maxSize:]
	}
	shard.buffers[chatID] = buf
}

// ClearContext empties the chat's context buffer.
func (s *Store) ClearContext(chatID int64) {
	shard := &s.contexts[shardForChat(chatID)]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.buffers, chatID)
}

// Context returns a point-in-time copy of the chat's buffer, oldest first.
func (s *Store) Context(chatID int64) []Message {
	shard := &s.contexts[shardForChat(chatID)]

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	buf := shard.buffers[chatID]
	if len(buf) == 0 {
		return nil
	}
	out := make([]Message, len(buf))
	copy(out, buf)
	return out
}

// TrackNotification records the message ID of the open moderation prompt for
// (chat, user), overwriting any previous record. At most one prompt is tracked
// per key.
func (s *Store) TrackNotification(chatID, userID int64, messageID int) {
	key := counterKey(chatID, userID)
	shard := &s.notifications[shardForKey(key)]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.prompts[key] = messageID
}

// Notification returns the tracked prompt message ID for (chat, user), if any.
func (s *Store) Notification(chatID, userID int64) (int, bool) {
	key := counterKey(chatID, userID)
	shard := &s.notifications[shardForKey(key)]

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	id, ok := shard.prompts[key]
	return id, ok
}

// RemoveNotification clears the tracked prompt for (chat, user). Removing an
// absent record is a no-op.
func (s *Store) RemoveNotification(chatID, userID int64) {
	key := counterKey(chatID, userID)
	shard := &s.notifications[shardForKey(key)]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.prompts, key)
}
