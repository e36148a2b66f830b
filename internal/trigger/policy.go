// Package trigger decides whether an incoming message gets a generated reply.
package trigger

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Event is the part of an incoming message the policy looks at.
type Event struct {
	Text       string
	ReplyToBot bool
	// OffUntil is the chat's suppression deadline as a unix timestamp, 0 when none.
	OffUntil int64
	Now      time.Time
}

// Decision explains the outcome of Decide.
type Decision struct {
	Proceed    bool
	Suppressed bool
	Addressed  bool
	// Roll is the drawn value in [1,100]; 0 when suppressed.
	Roll int
}

type Policy struct {
	tokens    []string
	triggered int
	ambient   int
	mu        sync.Mutex
	rng       *rand.Rand
}

// New builds a policy. triggered and ambient are percentages in [0,100].
func New(tokens []string, triggered, ambient int, rng *rand.Rand) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	p := &Policy{triggered: triggered, ambient: ambient, rng: rng}
	p.AddTokens(tokens...)
	return p
}

// AddTokens registers extra address tokens, e.g. the bot's @handle once it is known.
func (p *Policy) AddTokens(tokens ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			p.tokens = append(p.tokens, t)
		}
	}
}

// Suppressed reports whether a cool-down window is active at now.
func Suppressed(offUntil int64, now time.Time) bool {
	return offUntil != 0 && offUntil > now.Unix()
}

// Addressed reports whether the message is aimed at the bot.
func (p *Policy) Addressed(text string, replyToBot bool) bool {
	if replyToBot {
		return true
	}
	lower := strings.ToLower(text)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func (p *Policy) Decide(ev Event) Decision {
	if Suppressed(ev.OffUntil, ev.Now) {
		return Decision{Suppressed: true}
	}
	d := Decision{Addressed: p.Addressed(ev.Text, ev.ReplyToBot)}
	d.Roll = p.roll()
	threshold := p.ambient
	if d.Addressed {
		threshold = p.triggered
	}
	d.Proceed = d.Roll <= threshold
	return d
}

func (p *Policy) roll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(100) + 1
}
