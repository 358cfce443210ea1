// Package textnorm cleans free text into a canonical, single-line token
// stream. Cleaning is language aware: the language is detected from a bounded
// prefix and a per-language Strategy does the tokenization, stop-word
// filtering and optional stemming. Undetected languages use a conservative
// generic strategy.
package textnorm

import (
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
	"go.uber.org/zap"
)

// Unknown is the language code used when detection fails.
const Unknown = "unknown"

const defaultDetectPrefix = 200

// shortText is the rune length at or below which the whole text is used for
// detection instead of a prefix.
const shortText = 20

var (
	urlRe     = regexp.MustCompile(`https?\S+|www\S+`)
	emailRe   = regexp.MustCompile(`\S*@\S*\s?`)
	mentionRe = regexp.MustCompile(`[@#][\p{L}\p{N}_]+`)
)

// Detector returns an ISO 639-1 code for a text sample, or "" when the
// language cannot be determined.
type Detector func(sample string) string

// Options configures a Normalizer.
type Options struct {
	ArabicStemming  bool
	EnglishStemming bool
	FrenchStemming  bool
	DetectPrefix    int
	Detector        Detector
	Logger          *zap.Logger
}

// DefaultOptions returns Arabic stemming off, English stemming on and a
// 200-rune detection prefix.
func DefaultOptions() Options {
	return Options{EnglishStemming: true, DetectPrefix: defaultDetectPrefix}
}

// Normalizer is safe for concurrent use once constructed.
type Normalizer struct {
	strategies map[string]Strategy
	fallback   Strategy
	detect     Detector
	prefix     int
	log        *zap.Logger
}

// New creates a Normalizer with strategies for Arabic, English, French and
// Kurdish, plus the generic fallback.
func New(opts Options) *Normalizer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefix := opts.DetectPrefix
	if prefix <= 0 {
		prefix = defaultDetectPrefix
	}
	n := &Normalizer{
		strategies: map[string]Strategy{
			"ar": newArabic(opts.ArabicStemming),
			"en": newEnglish(opts.EnglishStemming),
			"fr": newFrench(opts.FrenchStemming),
			"ku": punctuationOnly,
		},
		fallback: generic,
		detect:   opts.Detector,
		prefix:   prefix,
		log:      log,
	}
	if n.detect == nil {
		n.detect = WhatlangDetector(log)
	}
	return n
}

// Register adds or replaces the strategy for a language code. It must not be
// called concurrently with Normalize.
func (n *Normalizer) Register(lang string, s Strategy) {
	n.strategies[lang] = s
}

// Normalize cleans text, detecting its language first.
func (n *Normalizer) Normalize(text string) string {
	return n.NormalizeLang(text, "")
}

// NormalizeLang cleans text using the strategy for lang. An empty lang
// triggers detection. The result never contains runs of whitespace or the
// standalone token "none".
func (n *Normalizer) NormalizeLang(text, lang string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = StripNoise(strings.ToLower(text))
	if lang == "" {
		sample := text
		if runes := []rune(text); len(runes) > shortText && len(runes) > n.prefix {
			sample = string(runes[:n.prefix])
		}
		if strings.TrimSpace(sample) == "" {
			return ""
		}
		lang = n.Detect(sample)
	}
	return finalize(n.strategy(lang).Tokens(text))
}

// NormalizePtr is Normalize for optional values; nil yields "".
func (n *Normalizer) NormalizePtr(text *string) string {
	if text == nil {
		return ""
	}
	return n.Normalize(*text)
}

// Detect returns the language code of sample, or Unknown.
func (n *Normalizer) Detect(sample string) string {
	code := n.detect(sample)
	if code == "" {
		return Unknown
	}
	return code
}

func (n *Normalizer) strategy(lang string) Strategy {
	if s, ok := n.strategies[lang]; ok {
		return s
	}
	return n.fallback
}

// StripNoise removes URLs, email addresses, hashtags and mentions.
func StripNoise(s string) string {
	s = urlRe.ReplaceAllString(s, "")
	s = emailRe.ReplaceAllString(s, "")
	return mentionRe.ReplaceAllString(s, "")
}

func finalize(tokens []string) string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		for _, f := range strings.Fields(tok) {
			if !strings.EqualFold(f, "none") {
				out = append(out, f)
			}
		}
	}
	return strings.Join(out, " ")
}

// WhatlangDetector detects with whatlanggo. Results at or below whatlanggo's
// reliability threshold, and panics inside the library, are reported as an
// undetected language.
func WhatlangDetector(log *zap.Logger) Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return func(sample string) (code string) {
		defer func() {
			if r := recover(); r != nil {
				log.Warn("language detection failed", zap.Any("panic", r), zap.Int("sample_len", len(sample)))
				code = ""
			}
		}()
		info := whatlanggo.Detect(sample)
		if info.Script == nil || !info.IsReliable() {
			log.Debug("language not detected", zap.Float64("confidence", info.Confidence), zap.Int("sample_len", len(sample)))
			return ""
		}
		return info.Lang.Iso6391()
	}
}
