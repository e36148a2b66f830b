package markov

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
)

type Options struct {
	// LongChance is the probability of sampling an unconstrained sentence instead of a short one.
	LongChance    float64
	SentenceTries int
	ShortTries    int
	ShortMaxChars int
	// FallbackChance is the probability of replaying a stored message when sampling fails.
	FallbackChance float64
}

func DefaultOptions() Options {
	return Options{
		LongChance:     1.0 / 3,
		SentenceTries:  10,
		ShortTries:     100,
		ShortMaxChars:  50,
		FallbackChance: 0.5,
	}
}

// Engine rebuilds a chain from the given history on every call and holds no state besides its random source.
type Engine struct {
	opts Options
	mu   sync.Mutex
	rng  *rand.Rand
}

func NewEngine(opts Options, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{opts: opts, rng: rng}
}

// Generate returns a reply built from history, or false when there is nothing to say.
func (e *Engine) Generate(history []string) (string, bool) {
	if len(history) == 0 {
		return "", false
	}
	text := NewText(strings.ToLower(strings.Join(history, "\n")))

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		out string
		ok  bool
	)
	if e.rng.Float64() < e.opts.LongChance {
		out, ok = text.MakeSentence(e.rng, e.opts.SentenceTries, 0)
	} else {
		out, ok = text.MakeSentence(e.rng, e.opts.ShortTries, e.opts.ShortMaxChars)
	}
	if ok {
		return out, true
	}
	if e.rng.Float64() < e.opts.FallbackChance {
		if msg := history[e.rng.IntN(len(history))]; strings.TrimSpace(msg) != "" {
			return msg, true
		}
	}
	return "", false
}

var mentionRe = regexp.MustCompile(`@(\w+)`)

// LinkMentions turns every @handle into an HTML link to the handle's profile.
// The input is expected to be HTML-escaped already.
func LinkMentions(text string) string {
	return mentionRe.ReplaceAllString(text, `<a href="https://t.me/$1">@$1</a>`)
}
