package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/arabic"
	"github.com/blevesearch/snowballstem/french"
	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// Strategy turns lowercased, noise-stripped text into tokens for one language.
type Strategy interface {
	Tokens(text string) []string
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(text string) []string

func (f StrategyFunc) Tokens(text string) []string { return f(text) }

var arabicForms = strings.NewReplacer(
	"إ", "ا", "أ", "ا", "آ", "ا",
	"ى", "ي",
	"ؤ", "و",
	"ئ", "ي",
	"ة", "ه",
	"گ", "ك",
)

// UnifyArabic folds presentation forms, unifies alef/yaa/hamza/ta-marbuta
// variants and strips diacritics and tatweel.
func UnifyArabic(s string) string {
	s = norm.NFKC.String(s)
	s = arabicForms.Replace(s)
	return strings.Map(func(r rune) rune {
		if r >= '\u064B' && r <= '\u0652' || r == '\u0640' {
			return -1
		}
		return r
	}, s)
}

const extraPunctuation = "`÷×؛<>_()*&^%][ـ،/:\"؟.,'{}~¦+|!”…“–"

// StripPunctuation removes ASCII punctuation, the Arabic punctuation set and
// both ASCII and Arabic-Indic digits.
func StripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < utf8.RuneSelf && (unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsDigit(r)):
			return -1
		case r >= '\u0660' && r <= '\u0669':
			return -1
		case strings.ContainsRune(extraPunctuation, r):
			return -1
		}
		return r
	}, s)
}

// segment splits text into word tokens on Unicode word boundaries, dropping
// whitespace and punctuation segments.
func segment(text string) []string {
	var out []string
	it := words.FromString(text)
	for it.Next() {
		w := it.Value()
		if strings.IndexFunc(w, isWordRune) >= 0 {
			out = append(out, w)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// tokenFilter is the shared tokenize, stop-word and stem sequence.
type tokenFilter struct {
	prepare func(string) string
	stop    wordSet
	stem    func(string) string
}

func (f tokenFilter) Tokens(text string) []string {
	if f.prepare != nil {
		text = f.prepare(text)
	}
	text = StripPunctuation(text)
	var out []string
	for _, w := range segment(text) {
		if utf8.RuneCountInString(w) <= 1 || f.stop.has(w) {
			continue
		}
		if f.stem != nil {
			w = f.stem(w)
		}
		out = append(out, w)
	}
	return out
}

func newArabic(stemming bool) Strategy {
	f := tokenFilter{prepare: UnifyArabic, stop: loadStopwords("ar", UnifyArabic)}
	if stemming {
		f.stem = snowball(arabic.Stem)
	}
	return f
}

func newEnglish(stemming bool) Strategy {
	f := tokenFilter{stop: loadStopwords("en", nil)}
	if stemming {
		f.stem = porterstemmer.StemString
	}
	return f
}

func newFrench(stemming bool) Strategy {
	f := tokenFilter{stop: loadStopwords("fr", nil)}
	if stemming {
		f.stem = snowball(french.Stem)
	}
	return f
}

// punctuationOnly strips punctuation and splits on whitespace without any
// further filtering.
var punctuationOnly = StrategyFunc(func(text string) []string {
	return strings.Fields(StripPunctuation(text))
})

// generic is the fallback for undetected languages: whitespace tokenization
// and dropping single-rune tokens.
var generic = StrategyFunc(func(text string) []string {
	var out []string
	for _, w := range strings.Fields(StripPunctuation(text)) {
		if utf8.RuneCountInString(w) > 1 {
			out = append(out, w)
		}
	}
	return out
})

func snowball(stem func(*snowballstem.Env) bool) func(string) string {
	return func(w string) string {
		env := snowballstem.NewEnv(w)
		stem(env)
		return env.Current()
	}
}
