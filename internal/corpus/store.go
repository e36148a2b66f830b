// Package corpus keeps the per-chat message history and settings in memory.
package corpus

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when an operation references a chat that was never ensured.
var ErrNotFound = errors.New("chat record not found")

// ChatRecord is the state of one conversation.
type ChatRecord struct {
	ID       string
	Messages []string
	// OffUntil is a unix timestamp; generation is suppressed while now < OffUntil. 0 means not suppressed.
	OffUntil int64
	Dirty    bool
}

// Patch lists the fields that may be updated in place. Nil fields are left untouched.
type Patch struct {
	OffUntil *int64
}

// Snapshot is a copy of a dirty record taken for persistence.
type Snapshot struct {
	Record   ChatRecord
	Revision uint64
}

type entry struct {
	rec ChatRecord
	rev uint64
}

type Store struct {
	mu          sync.RWMutex
	chats       map[string]*entry
	maxMessages int
}

// NewStore creates an empty store. maxMessages caps the per-chat history, oldest first out; 0 disables the cap.
func NewStore(maxMessages int) *Store {
	return &Store{chats: make(map[string]*entry), maxMessages: maxMessages}
}

// Seed replaces the store contents with records loaded from storage. Seeded records are clean.
func (s *Store) Seed(records map[string]ChatRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = make(map[string]*entry, len(records))
	for id, r := range records {
		r.ID = id
		r.Messages = append([]string(nil), r.Messages...)
		r.Dirty = false
		s.chats[id] = &entry{rec: r}
	}
}

// Ensure inserts an empty record for chatID if absent.
func (s *Store) Ensure(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chatID]; ok {
		return
	}
	s.chats[chatID] = &entry{rec: ChatRecord{ID: chatID, Messages: []string{}}}
}

// AppendMessage stores trimmed text. Empty text is ignored and reported as false.
func (s *Store) AppendMessage(chatID, text string) (bool, error) {
	text = strings.TrimSpace(text)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.chats[chatID]
	if !ok {
		return false, ErrNotFound
	}
	if text == "" {
		return false, nil
	}
	e.rec.Messages = append(e.rec.Messages, text)
	if s.maxMessages > 0 && len(e.rec.Messages) > s.maxMessages {
		drop := len(e.rec.Messages) - s.maxMessages
		e.rec.Messages = append([]string(nil), e.rec.Messages[drop:]...)
	}
	s.touch(e)
	return true, nil
}

func (s *Store) SetFields(chatID string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.chats[chatID]
	if !ok {
		return ErrNotFound
	}
	if p.OffUntil != nil {
		e.rec.OffUntil = *p.OffUntil
	}
	s.touch(e)
	return nil
}

func (s *Store) touch(e *entry) {
	e.rec.Dirty = true
	e.rev++
}

func (s *Store) MessageCount(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.chats[chatID]; ok {
		return len(e.rec.Messages)
	}
	return 0
}

// Get returns a deep copy of the record.
func (s *Store) Get(chatID string) (ChatRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.chats[chatID]
	if !ok {
		return ChatRecord{}, false
	}
	return copyRecord(e.rec), true
}

// Messages returns a copy of the chat history in insertion order.
func (s *Store) Messages(chatID string) []string {
	return s.LastMessages(chatID, 0)
}

// LastMessages returns up to k most recent messages, oldest first. k <= 0 returns all of them.
func (s *Store) LastMessages(chatID string, k int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	msgs := e.rec.Messages
	if k > 0 && len(msgs) > k {
		msgs = msgs[len(msgs)-k:]
	}
	return append([]string(nil), msgs...)
}

// OffUntil returns the active suppression deadline, normalizing an elapsed one to 0.
// Normalization does not mark the record dirty; the next flush writes it out with the record.
func (s *Store) OffUntil(chatID string, now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.chats[chatID]
	if !ok {
		return 0
	}
	if e.rec.OffUntil != 0 && e.rec.OffUntil <= now.Unix() {
		e.rec.OffUntil = 0
	}
	return e.rec.OffUntil
}

// Len returns the number of known chats.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

// DirtySnapshots copies every dirty record. Elapsed OffUntil values are normalized to 0 first.
func (s *Store) DirtySnapshots(now time.Time) []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Snapshot
	for _, e := range s.chats {
		if e.rec.OffUntil != 0 && e.rec.OffUntil <= now.Unix() {
			e.rec.OffUntil = 0
		}
		if !e.rec.Dirty {
			continue
		}
		out = append(out, Snapshot{Record: copyRecord(e.rec), Revision: e.rev})
	}
	return out
}

// MarkClean clears the dirty flag unless the record changed after the snapshot at rev was taken.
func (s *Store) MarkClean(chatID string, rev uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.chats[chatID]
	if !ok || e.rev != rev {
		return false
	}
	e.rec.Dirty = false
	return true
}

func copyRecord(r ChatRecord) ChatRecord {
	r.Messages = append([]string{}, r.Messages...)
	return r
}
