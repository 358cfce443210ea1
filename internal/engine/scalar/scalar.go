// Package scalar extracts numeric magnitudes from descriptive cost and
// duration strings such as "5000-7000 دولار" or "3 اسابيع".
package scalar

import (
	"regexp"
	"strconv"
	"strings"
)

var numberRe = regexp.MustCompile(`\d+\.?\d*`)

// vocabulary matches marker words. Arabic forms match as substrings, which
// tolerates attached prefixes; Latin forms match whole words only, so "today"
// is not a day and "below" is not low.
type vocabulary struct {
	arabic []string
	latin  *regexp.Regexp
}

func words(arabic []string, latin ...string) vocabulary {
	v := vocabulary{arabic: arabic}
	if len(latin) > 0 {
		v.latin = regexp.MustCompile(`\b(?:` + strings.Join(latin, "|") + `)\b`)
	}
	return v
}

func (v vocabulary) in(s string) bool {
	for _, w := range v.arabic {
		if strings.Contains(s, w) {
			return true
		}
	}
	return v.latin != nil && v.latin.MatchString(s)
}

// rangeMarkers signal that several numbers form a range to be averaged.
var rangeMarkers = words([]string{"-", "الى", "إلى"}, "to")

var arabicDigits = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9", "٫", ".",
)

// Cost anchors for descriptive-only input.
const (
	CostHigh       = 10000.0
	CostVeryMedium = 7500.0
	CostMedium     = 5000.0
	CostLow        = 1000.0
)

var (
	highWords   = words([]string{"عالي", "مرتفع"}, "high")
	mediumWords = words([]string{"متوسط"}, "medium")
	veryWords   = words([]string{"جدا"}, "very")
	lowWords    = words([]string{"منخفض"}, "low")
)

// durationUnit maps unit words to a multiplier in days. Units are tried in
// order; months come first so that "شهر" is not shadowed by shorter tokens.
type durationUnit struct {
	words vocabulary
	days  float64
}

var durationUnits = []durationUnit{
	{words([]string{"شهر", "اشهر", "أشهر"}, "months?"), 30},
	{words([]string{"اسبوع", "أسبوع", "اسابيع", "أسابيع"}, "weeks?"), 7},
	{words([]string{"يوم", "ايام", "أيام"}, "days?"), 1},
	{words([]string{"ساعه", "ساعة", "ساعات"}, "hours?"), 1.0 / 24},
	{words([]string{"دقيقه", "دقيقة", "دقائق"}, "minutes?"), 1.0 / (24 * 60)},
}

var immediateWords = words([]string{"فوري"}, "immediate(?:ly)?")

// ParseCost returns the cost magnitude described by s. The bool is false when
// s holds neither a number nor a recognized descriptor.
func ParseCost(s string) (float64, bool) {
	s, ok := prepare(s)
	if !ok {
		return 0, false
	}
	if v, ok := extractNumber(s); ok {
		return v, true
	}
	switch {
	case highWords.in(s):
		return CostHigh, true
	case mediumWords.in(s):
		if veryWords.in(s) {
			return CostVeryMedium, true
		}
		return CostMedium, true
	case lowWords.in(s):
		return CostLow, true
	}
	return 0, false
}

// ParseDurationDays returns the duration described by s in days. An
// "immediate" marker is zero days. Otherwise both a number and a unit are
// required; a bare number is not guessed into a unit.
func ParseDurationDays(s string) (float64, bool) {
	s, ok := prepare(s)
	if !ok {
		return 0, false
	}
	if immediateWords.in(s) {
		return 0, true
	}
	v, ok := extractNumber(s)
	if !ok {
		return 0, false
	}
	for _, u := range durationUnits {
		if u.words.in(s) {
			return v * u.days, true
		}
	}
	return 0, false
}

func prepare(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return arabicDigits.Replace(strings.ToLower(s)), true
}

// extractNumber applies the shared number strategy: a single number is used
// as is, a range is averaged over its first and last numbers, and anything
// else falls back to the first number.
func extractNumber(s string) (float64, bool) {
	found := numberRe.FindAllString(s, -1)
	if len(found) == 0 {
		return 0, false
	}
	first, err := strconv.ParseFloat(found[0], 64)
	if err != nil {
		return 0, false
	}
	if len(found) > 1 && rangeMarkers.in(s) {
		if last, err := strconv.ParseFloat(found[len(found)-1], 64); err == nil {
			return (first + last) / 2, true
		}
	}
	return first, true
}
