package markov

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rng(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }

func vocabulary(history []string) map[string]bool {
	v := map[string]bool{}
	for _, m := range history {
		for _, w := range strings.Fields(strings.ToLower(m)) {
			v[w] = true
		}
	}
	return v
}

func TestGenerate_ChatScenario(t *testing.T) {
	history := []string{"hi", "hi there", "hi there friend"}
	vocab := vocabulary(history)

	opts := DefaultOptions()
	opts.FallbackChance = 1

	for seed := uint64(1); seed <= 20; seed++ {
		out, ok := NewEngine(opts, rng(seed)).Generate(history)
		require.True(t, ok, "seed %d produced nothing", seed)
		require.NotEmpty(t, out)

		verbatim := false
		for _, h := range history {
			if out == h {
				verbatim = true
			}
		}
		if verbatim {
			continue
		}
		for _, w := range strings.Fields(out) {
			assert.True(t, vocab[w], "seed %d: token %q not in corpus", seed, w)
		}
	}
}

func TestGenerate_SameSeedSameOutput(t *testing.T) {
	history := []string{"one two three", "two three four", "three four five six"}
	a, okA := NewEngine(DefaultOptions(), rng(7)).Generate(history)
	b, okB := NewEngine(DefaultOptions(), rng(7)).Generate(history)
	assert.Equal(t, okA, okB)
	assert.Equal(t, a, b)
}

func TestGenerate_EmptyAndTinyCorpora(t *testing.T) {
	e := NewEngine(DefaultOptions(), rng(1))

	out, ok := e.Generate(nil)
	assert.False(t, ok)
	assert.Empty(t, out)

	assert.NotPanics(t, func() { e.Generate([]string{"single"}) })
	assert.NotPanics(t, func() { e.Generate([]string{"   ", "\n"}) })

	opts := DefaultOptions()
	opts.FallbackChance = 0
	_, ok = NewEngine(opts, rng(1)).Generate([]string{"   ", "\n\n"})
	assert.False(t, ok)
}

func TestGenerate_NoFallbackYieldsNovelSentences(t *testing.T) {
	history := []string{
		"red fox and lazy dog",
		"blue bird and quiet cat",
		"green frog and sleepy owl",
		"white horse and noisy duck",
		"black bear and shy deer",
	}
	vocab := vocabulary(history)
	opts := DefaultOptions()
	opts.FallbackChance = 0

	successes := 0
	for seed := uint64(1); seed <= 20; seed++ {
		out, ok := NewEngine(opts, rng(seed)).Generate(history)
		if !ok {
			continue
		}
		successes++
		for _, h := range history {
			assert.NotEqual(t, h, out, "chain must not replay input verbatim")
		}
		for _, w := range strings.Fields(out) {
			assert.True(t, vocab[w], "token %q not in corpus", w)
		}
	}
	assert.Positive(t, successes)
}

func TestMakeSentence_RespectsMaxChars(t *testing.T) {
	text := NewText(strings.Join([]string{
		"a very long sentence that goes on and on and on without stopping",
		"short and sweet",
		"tiny and odd",
	}, "\n"))
	r := rng(3)
	for i := 0; i < 50; i++ {
		s, ok := text.MakeSentence(r, 100, 20)
		if ok {
			assert.LessOrEqual(t, utf8.RuneCountInString(s), 20)
		}
	}
}

func TestNovel(t *testing.T) {
	text := NewText("hi there friend\nthe quick brown fox jumps")
	assert.False(t, text.novel([]string{"hi"}))
	assert.False(t, text.novel([]string{"hi", "there", "friend"}))
	assert.True(t, text.novel([]string{"quick", "friend"}))
}

func TestChainWalk(t *testing.T) {
	c := NewChain([][]string{{"a", "b"}})
	assert.Equal(t, []string{"a", "b"}, c.Walk(rng(1), 10))
	assert.Nil(t, NewChain(nil).Walk(rng(1), 10))
	assert.True(t, NewChain(nil).Empty())
}

func TestLinkMentions(t *testing.T) {
	assert.Equal(t,
		`hey <a href="https://t.me/alice">@alice</a>, how are you`,
		LinkMentions("hey @alice, how are you"))
	assert.Equal(t, "no handles here", LinkMentions("no handles here"))
	assert.Equal(t,
		`<a href="https://t.me/a_b">@a_b</a> and <a href="https://t.me/c1">@c1</a>`,
		LinkMentions("@a_b and @c1"))
	assert.Equal(t, "mail me @ home", LinkMentions("mail me @ home"))
}
