package certificate

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// monthNames holds full month names keyed by base language. English is the
// Go layout default and needs no entry.
var monthNames = map[string][12]string{
	"de": {"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"},
	"es": {"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
	"fr": {"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
	"it": {"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno", "luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
	"nl": {"januari", "februari", "maart", "april", "mei", "juni", "juli", "augustus", "september", "oktober", "november", "december"},
	"pt": {"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
	"tr": {"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran", "Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık"},
}

// formatDate formats t with a Go layout and swaps the English month name for
// the locale's. Weekday names stay English.
func formatDate(t time.Time, layout, locale string) string {
	out := t.Format(layout)

	base, _ := language.Make(locale).Base()
	names, ok := monthNames[base.String()]
	if !ok {
		return out
	}
	month := names[t.Month()-1]

	switch {
	case strings.Contains(layout, "January"):
		return strings.Replace(out, t.Month().String(), month, 1)
	case strings.Contains(layout, "Jan"):
		short := []rune(month)
		if len(short) > 3 {
			short = short[:3]
		}
		return strings.Replace(out, t.Month().String()[:3], string(short), 1)
	}
	return out
}
