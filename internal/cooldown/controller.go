// Package cooldown handles the admin commands that pause and resume reply generation in a chat.
package cooldown

import (
	"errors"
	"strings"
	"time"

	"markov-chatter/internal/corpus"
)

var (
	// ErrDurationTooShort is returned when the requested window is below the minimum.
	ErrDurationTooShort = errors.New("duration too short")
	// ErrUnparsableDuration is returned when the arguments are not a recognizable time expression.
	ErrUnparsableDuration = errors.New("unparsable duration")
)

// TimeParser resolves a natural-language time expression relative to ref.
type TimeParser interface {
	Parse(text string, ref time.Time) (time.Time, bool)
}

// Result describes an accepted or rejected /disable request.
type Result struct {
	Accepted bool
	Seconds  int64
	OffUntil int64
}

type Controller struct {
	store         *corpus.Store
	parser        TimeParser
	defaultWindow time.Duration
	minimumWindow time.Duration
}

func New(store *corpus.Store, parser TimeParser, defaultWindow, minimumWindow time.Duration) *Controller {
	return &Controller{
		store:         store,
		parser:        parser,
		defaultWindow: defaultWindow,
		minimumWindow: minimumWindow,
	}
}

// Disable suppresses generation in the chat. Empty args use the default window; args that
// cannot be parsed are rejected rather than silently replaced by the default.
// Rejections return Seconds so the caller can show what was understood.
func (c *Controller) Disable(chatID, args string, now time.Time) (Result, error) {
	seconds := int64(c.defaultWindow / time.Second)
	if args = strings.TrimSpace(args); args != "" {
		at, ok := c.parser.Parse(args, now)
		if !ok {
			return Result{}, ErrUnparsableDuration
		}
		seconds = at.Unix() - now.Unix()
		if seconds < 0 {
			seconds = -seconds
		}
	}
	if seconds < int64(c.minimumWindow/time.Second) {
		return Result{Seconds: seconds}, ErrDurationTooShort
	}
	until := now.Unix() + seconds
	if err := c.store.SetFields(chatID, corpus.Patch{OffUntil: &until}); err != nil {
		return Result{Seconds: seconds}, err
	}
	return Result{Accepted: true, Seconds: seconds, OffUntil: until}, nil
}

// Enable clears the window and reports whether one was active.
func (c *Controller) Enable(chatID string, now time.Time) (bool, error) {
	wasActive := c.store.OffUntil(chatID, now) != 0
	zero := int64(0)
	if err := c.store.SetFields(chatID, corpus.Patch{OffUntil: &zero}); err != nil {
		return false, err
	}
	return wasActive, nil
}
