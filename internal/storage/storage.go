package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidID is returned for chat ids that cannot be used as a storage key.
var ErrInvalidID = errors.New("invalid chat id")

// ChatID is the storage key of a chat. Numeric ids are written as JSON numbers
// and both numbers and strings are accepted on read.
type ChatID string

func (id ChatID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ChatID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ChatID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("chat id: %w", err)
	}
	*id = ChatID(n.String())
	return nil
}

// Record is the persisted form of one chat.
type Record struct {
	ID          ChatID   `json:"ID"`
	Messages    []string `json:"Messages"`
	Attachments []string `json:"Attachments"`
	OffUntil    int64    `json:"OffUntil"`
}

// Repository abstracts the durable per-chat storage.
// Save must replace the unit keyed by rec.ID atomically enough that a failed
// write leaves the previous unit readable. LoadAll skips units it cannot decode
// and reports them through the returned error slice.
// Implementations must be safe for concurrent use.
type Repository interface {
	Save(ctx context.Context, rec Record) error
	LoadAll(ctx context.Context) ([]Record, []error)
	Close() error
}

// LoadError describes a storage unit that could not be read.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Key, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

func normalize(rec Record) Record {
	if rec.Messages == nil {
		rec.Messages = []string{}
	}
	if rec.Attachments == nil {
		rec.Attachments = []string{}
	}
	return rec
}
