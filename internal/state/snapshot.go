package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// snapshot is the persisted document: counters keyed by "user_id:chat_id" and
// per-chat message history keyed by the decimal chat ID. Notification records
// are short-lived and re-derivable, so they are not persisted.
type snapshot struct {
	Counters       map[string]uint64    `json:"counters"`
	MessageHistory map[string][]Message `json:"message_history"`
}

// Save serializes the full counter and context state to path. The write goes
// through a temporary file and a rename so a crash mid-save never leaves a
// truncated snapshot. The snapshot is consistent per key; keys written while
// concurrent writers are active may reflect different moments.
func (s *Store) Save(path string) error {
	snap := snapshot{
		Counters:       make(map[string]uint64),
		MessageHistory: make(map[string][]Message),
	}

	for i := range s.counters {
		shard := &s.counters[i]
		shard.mu.RLock()
		for k, v := range shard.counts {
			snap.Counters[k] = v
		}
		shard.mu.RUnlock()
	}

	for i := range s.contexts {
		shard := &s.contexts[i]
		shard.mu.RLock()
		for chatID, buf := range shard.buffers {
			msgs := make([]Message, len(buf))
			copy(msgs, buf)
			snap.MessageHistory[strconv.FormatInt(chatID, 10)] = msgs
		}
		shard.mu.RUnlock()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace state snapshot: %w", err)
	}

	s.log.Debug("State snapshot saved", "path", filepath.Clean(path), "counters", len(snap.Counters), "chats", len(snap.MessageHistory))
	return nil
}

// Load reads a snapshot from path and returns a store populated from it.
// A missing or unparseable file is never fatal: the returned store is simply
// empty and a warning is logged for the corrupt case.
func Load(path string, logger *slog.Logger) *Store {
	store := NewStore(logger)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			store.log.Info("No state snapshot found, starting fresh", "path", path)
		} else {
			store.log.Warn("Failed to read state snapshot, starting fresh", "path", path, "error", err)
		}
		return store
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		store.log.Warn("Failed to parse state snapshot, starting fresh", "path", path, "error", err)
		return store
	}

	for key, count := range snap.Counters {
		shard := &store.counters[shardForKey(key)]
		shard.mu.Lock()
		shard.counts[key] = count
		shard.mu.Unlock()
	}

	for chatKey, msgs := range snap.MessageHistory {
		chatID, err := strconv.ParseInt(chatKey, 10, 64)
		if err != nil {
			store.log.Warn("Skipping malformed chat key in snapshot", "key", chatKey)
			continue
		}
		shard := &store.contexts[shardForChat(chatID)]
		shard.mu.Lock()
		shard.buffers[chatID] = append([]Message(nil), msgs...)
		shard.mu.Unlock()
	}

	store.log.Info("State snapshot loaded", "path", path, "counters", len(snap.Counters), "chats", len(snap.MessageHistory))
	return store
}
