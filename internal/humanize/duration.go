// Package humanize renders durations as short localized phrases with correct plural forms.
package humanize

import (
	"strings"
	"sync"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

type unit struct {
	key     string
	seconds int64
}

// most significant first
var units = []unit{
	{"%d weeks", 7 * 24 * 3600},
	{"%d days", 24 * 3600},
	{"%d hours", 3600},
	{"%d minutes", 60},
	{"%d seconds", 1},
}

const zeroKey = "zero duration"

var (
	catalogOnce sync.Once
	builder     *catalog.Builder
)

func buildCatalog() *catalog.Builder {
	catalogOnce.Do(func() {
		builder = catalog.NewBuilder(catalog.Fallback(language.English))
		set := func(tag language.Tag, key string, msg catalog.Message) {
			if err := builder.Set(tag, key, msg); err != nil {
				panic(err)
			}
		}
		ru := language.Russian
		set(ru, "%d weeks", plural.Selectf(1, "%d",
			plural.One, "%d неделя", plural.Few, "%d недели", plural.Many, "%d недель", plural.Other, "%d недели"))
		set(ru, "%d days", plural.Selectf(1, "%d",
			plural.One, "%d день", plural.Few, "%d дня", plural.Many, "%d дней", plural.Other, "%d дня"))
		set(ru, "%d hours", plural.Selectf(1, "%d",
			plural.One, "%d час", plural.Few, "%d часа", plural.Many, "%d часов", plural.Other, "%d часа"))
		set(ru, "%d minutes", plural.Selectf(1, "%d",
			plural.One, "%d минута", plural.Few, "%d минуты", plural.Many, "%d минут", plural.Other, "%d минуты"))
		set(ru, "%d seconds", plural.Selectf(1, "%d",
			plural.One, "%d секунда", plural.Few, "%d секунды", plural.Many, "%d секунд", plural.Other, "%d секунды"))
		set(ru, zeroKey, catalog.String("0 секунд"))

		en := language.English
		for _, u := range units {
			name := strings.TrimPrefix(u.key, "%d ")
			set(en, u.key, plural.Selectf(1, "%d",
				plural.One, "%d "+strings.TrimSuffix(name, "s"), plural.Other, "%d "+name))
		}
		set(en, zeroKey, catalog.String("0 seconds"))
	})
	return builder
}

// Formatter renders durations in one locale.
type Formatter struct {
	printer  *message.Printer
	maxUnits int
}

// NewFormatter returns a formatter for locale ("ru", "en", ...) showing at most maxUnits units.
// Unknown locales fall back to English.
func NewFormatter(locale string, maxUnits int) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	if maxUnits <= 0 {
		maxUnits = 2
	}
	cat := buildCatalog()
	tag, _, _ = cat.Matcher().Match(tag)
	return &Formatter{
		printer:  message.NewPrinter(tag, message.Catalog(cat)),
		maxUnits: maxUnits,
	}
}

// Duration renders seconds, e.g. "1 неделя, 2 дня". Negative input is treated as its absolute value.
func (f *Formatter) Duration(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	var parts []string
	for _, u := range units {
		if len(parts) == f.maxUnits {
			break
		}
		if seconds < u.seconds {
			continue
		}
		n := seconds / u.seconds
		seconds %= u.seconds
		parts = append(parts, f.printer.Sprintf(u.key, int(n)))
	}
	if len(parts) == 0 {
		return f.printer.Sprintf(zeroKey)
	}
	return strings.Join(parts, ", ")
}
