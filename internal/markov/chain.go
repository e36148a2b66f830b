// Package markov builds an order-1 word chain from a chat history and samples replies from it.
package markov

import (
	"math"
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

const (
	begin = "\x00begin"
	end   = "\x00end"
)

// transitions keeps followers in first-seen order so seeded sampling is reproducible.
type transitions struct {
	words  []string
	counts []int
	index  map[string]int
	total  int
}

func (t *transitions) add(word string) {
	if i, ok := t.index[word]; ok {
		t.counts[i]++
	} else {
		t.index[word] = len(t.words)
		t.words = append(t.words, word)
		t.counts = append(t.counts, 1)
	}
	t.total++
}

func (t *transitions) pick(rng *rand.Rand) string {
	n := rng.IntN(t.total)
	for i, c := range t.counts {
		if n < c {
			return t.words[i]
		}
		n -= c
	}
	return t.words[len(t.words)-1]
}

// Chain is an order-1 model: the next word depends only on the previous one.
type Chain struct {
	model map[string]*transitions
}

func NewChain(sentences [][]string) *Chain {
	c := &Chain{model: make(map[string]*transitions)}
	for _, words := range sentences {
		prev := begin
		for _, w := range words {
			c.follow(prev).add(w)
			prev = w
		}
		c.follow(prev).add(end)
	}
	return c
}

func (c *Chain) follow(word string) *transitions {
	t, ok := c.model[word]
	if !ok {
		t = &transitions{index: make(map[string]int)}
		c.model[word] = t
	}
	return t
}

// Empty reports whether the chain has no sentences.
func (c *Chain) Empty() bool {
	_, ok := c.model[begin]
	return !ok
}

// Walk samples one sentence. It gives up and returns nil after maxWords words.
func (c *Chain) Walk(rng *rand.Rand, maxWords int) []string {
	if c.Empty() {
		return nil
	}
	var out []string
	prev := begin
	for {
		t, ok := c.model[prev]
		if !ok {
			return out
		}
		next := t.pick(rng)
		if next == end {
			return out
		}
		out = append(out, next)
		if maxWords > 0 && len(out) > maxWords {
			return nil
		}
		prev = next
	}
}

// Text is a chain together with the corpus it was trained on, used to reject samples that copy the input.
type Text struct {
	chain    *Chain
	rejoined string
	// MaxOverlapRatio and MaxOverlapTotal bound how many consecutive words a sample may share with the corpus.
	MaxOverlapRatio float64
	MaxOverlapTotal int
	MaxWords        int
}

// NewText splits corpus into one sentence per line and whitespace-separated words.
func NewText(corpus string) *Text {
	var (
		sentences [][]string
		joined    []string
	)
	for _, line := range strings.Split(corpus, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		sentences = append(sentences, words)
		joined = append(joined, strings.Join(words, " "))
	}
	return &Text{
		chain:           NewChain(sentences),
		rejoined:        strings.Join(joined, " "),
		MaxOverlapRatio: 0.7,
		MaxOverlapTotal: 15,
		MaxWords:        200,
	}
}

// MakeSentence tries up to tries walks and returns the first one that passes the overlap test
// and, when maxChars > 0, fits into maxChars characters.
func (t *Text) MakeSentence(rng *rand.Rand, tries, maxChars int) (string, bool) {
	if t.chain.Empty() {
		return "", false
	}
	for i := 0; i < tries; i++ {
		words := t.chain.Walk(rng, t.MaxWords)
		if len(words) == 0 || !t.novel(words) {
			continue
		}
		s := strings.Join(words, " ")
		if maxChars > 0 && utf8.RuneCountInString(s) > maxChars {
			continue
		}
		return s, true
	}
	return "", false
}

// novel rejects samples containing a long enough run of words found verbatim in the corpus.
func (t *Text) novel(words []string) bool {
	overlapMax := int(math.RoundToEven(t.MaxOverlapRatio * float64(len(words))))
	if t.MaxOverlapTotal < overlapMax {
		overlapMax = t.MaxOverlapTotal
	}
	over := overlapMax + 1
	grams := len(words) - overlapMax
	if grams < 1 {
		grams = 1
	}
	for i := 0; i < grams; i++ {
		hi := i + over
		if hi > len(words) {
			hi = len(words)
		}
		if strings.Contains(t.rejoined, strings.Join(words[i:hi], " ")) {
			return false
		}
	}
	return true
}
