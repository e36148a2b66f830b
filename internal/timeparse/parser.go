// Package timeparse turns natural-language time expressions ("5 часов", "2d", "tomorrow at 10am") into absolute times.
package timeparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/olebedev/when/rules/ru"
	"github.com/xhit/go-str2duration/v2"
)

const day = 24 * time.Hour

// units maps word stems to their length. Longer stems come before their own prefixes.
var units = []struct {
	stem string
	d    time.Duration
}{
	{"сек", time.Second},
	{"мин", time.Minute},
	{"час", time.Hour},
	{"ч", time.Hour},
	{"сут", day},
	{"день", day},
	{"дн", day},
	{"нед", 7 * day},
	{"мес", 30 * day},
	{"sec", time.Second},
	{"min", time.Minute},
	{"hour", time.Hour},
	{"hr", time.Hour},
	{"day", day},
	{"week", 7 * day},
	{"month", 30 * day},
}

var (
	amountsForm = regexp.MustCompile(`^(?:\d+ ?\p{L}+ ?)+$`)
	amountPart  = regexp.MustCompile(`(\d+) ?(\p{L}+)`)
)

type Parser struct {
	w *when.Parser
}

func New() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(ru.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// Parse resolves text relative to ref. Bare amounts such as "5 часов" or "3h" are read as offsets into the future.
// A zero amount resolves to ref itself.
func (p *Parser) Parse(text string, ref time.Time) (time.Time, bool) {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return time.Time{}, false
	}
	if d, err := str2duration.ParseDuration(strings.ReplaceAll(text, " ", "")); err == nil && d >= 0 {
		return ref.Add(d), true
	}
	if d, ok := parseAmounts(text); ok {
		return ref.Add(d), true
	}
	candidates := []string{text}
	if startsWithDigit(text) {
		candidates = append(candidates, "через "+text, "in "+text)
	}
	for _, c := range candidates {
		r, err := p.w.Parse(c, ref)
		if err != nil || r == nil {
			continue
		}
		if r.Time.Equal(ref) {
			continue
		}
		return r.Time, true
	}
	return time.Time{}, false
}

// parseAmounts sums phrases like "2 дня", "1 час 30 минут" or "in 3 weeks".
func parseAmounts(text string) (time.Duration, bool) {
	var words []string
	for _, f := range strings.FieldsFunc(text, func(r rune) bool { return unicode.IsSpace(r) || r == ',' }) {
		switch f {
		case "и", "and":
			continue
		}
		words = append(words, f)
	}
	if len(words) > 0 {
		switch words[0] {
		case "через", "на", "in", "for":
			words = words[1:]
		}
	}
	text = strings.Join(words, " ")
	if !amountsForm.MatchString(text) {
		return 0, false
	}
	var total time.Duration
	for _, m := range amountPart.FindAllStringSubmatch(text, -1) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		u, ok := unitOf(m[2])
		if !ok || n > int64(math.MaxInt64/u) {
			return 0, false
		}
		part := time.Duration(n) * u
		if total > math.MaxInt64-part {
			return 0, false
		}
		total += part
	}
	return total, true
}

func unitOf(word string) (time.Duration, bool) {
	for _, u := range units {
		if strings.HasPrefix(word, u.stem) {
			return u.d, true
		}
	}
	return 0, false
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}
