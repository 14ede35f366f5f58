package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
)

// Conversion factors into canonical SI units.
const (
	MillimetreToMetre = 0.001
	CentimetreToMetre = 0.01
	InchToMetre       = 0.0254

	MillilitreToCubicMetre = 1e-6
	LitreToCubicMetre      = 0.001

	SquareMillimetreToSquareMetre = 1e-6
	SquareCentimetreToSquareMetre = 1e-4
)

type unitRule struct {
	tokens  []string
	pattern *regexp.Regexp
	factor  float64
}

// bareLitre matches a lone "l" straight after a number, as in "5L" or "10 l".
var bareLitre = regexp.MustCompile(`\d\s*l\b`)

// Rules are checked in order; more specific tokens come before the tokens they contain.
var (
	lengthUnits = []unitRule{
		{tokens: []string{"mm", "millimet"}, factor: MillimetreToMetre},
		{tokens: []string{"cm", "centimet"}, factor: CentimetreToMetre},
		{tokens: []string{"inch", `"`, "imperial"}, factor: InchToMetre},
		{tokens: []string{"m"}, factor: 1},
	}

	volumeUnits = []unitRule{
		{tokens: []string{"ml", "millilit"}, factor: MillilitreToCubicMetre},
		{tokens: []string{"ltr", "litre", "liter"}, factor: LitreToCubicMetre},
		{pattern: bareLitre, factor: LitreToCubicMetre},
		{tokens: []string{"m3", "m³", "cubic m"}, factor: 1},
	}

	areaUnits = []unitRule{
		{tokens: []string{"mm2", "mm²", "sq mm"}, factor: SquareMillimetreToSquareMetre},
		{tokens: []string{"cm2", "cm²", "sq cm"}, factor: SquareCentimetreToSquareMetre},
		{tokens: []string{"m2", "m²", "sq m", "sqm"}, factor: 1},
	}
)

// Unit tokens carrying digits are removed before the number is read so "10m2" is 10, not 102.
var digitBearingTokens = []string{"mm2", "cm2", "m2", "m3", "mm²", "cm²", "m²", "m³"}

// NormalizeLength converts free text such as "250mm" or "6 inch" into metres.
func NormalizeLength(raw string) models.Measure {
	return normalize(raw, lengthUnits)
}

// NormalizeVolume converts free text such as "500ml" or "2 litre" into cubic metres.
func NormalizeVolume(raw string) models.Measure {
	return normalize(raw, volumeUnits)
}

// NormalizeArea converts free text such as "2.88m²" into square metres.
func NormalizeArea(raw string) models.Measure {
	return normalize(raw, areaUnits)
}

func normalize(raw string, rules []unitRule) models.Measure {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" || text == strings.ToLower(models.NotAvailable) {
		return models.Unknown()
	}

	factor := detectFactor(text, rules)

	for _, token := range digitBearingTokens {
		text = strings.ReplaceAll(text, token, " ")
	}

	value, ok := ParseNumber(text)
	if !ok {
		return models.Unknown()
	}
	return models.Known(value * factor)
}

func detectFactor(text string, rules []unitRule) float64 {
	for _, rule := range rules {
		if rule.pattern != nil && rule.pattern.MatchString(text) {
			return rule.factor
		}
		for _, token := range rule.tokens {
			if strings.Contains(text, token) {
				return rule.factor
			}
		}
	}
	return 1
}

// ParseNumber keeps the digits and one decimal separator of s and parses the result.
// A comma followed by exactly three digits is a thousands separator and is dropped;
// any other comma between digits is read as the decimal separator. A second decimal
// separator followed by digits makes the text ambiguous and yields no value.
func ParseNumber(s string) (float64, bool) {
	runes := []rune(s)
	var b strings.Builder
	seenDecimal := false

	for i, r := range runes {
		nextIsDigit := i+1 < len(runes) && isASCIIDigit(runes[i+1])

		switch {
		case isASCIIDigit(r):
			b.WriteRune(r)
		case r == '.':
			if !nextIsDigit {
				continue
			}
			if seenDecimal {
				return 0, false
			}
			if b.Len() > 0 {
				b.WriteRune('.')
			} else if i == 0 || !unicode.IsLetter(runes[i-1]) {
				b.WriteString("0.")
			} else {
				// "Approx.250mm": the point ends a word.
				continue
			}
			seenDecimal = true
		case r == ',':
			if b.Len() == 0 || !nextIsDigit || isThousandsGroup(runes[i+1:]) {
				continue
			}
			if seenDecimal {
				return 0, false
			}
			b.WriteRune('.')
			seenDecimal = true
		}
	}

	digits := b.String()
	if digits == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func isThousandsGroup(rest []rune) bool {
	count := 0
	for _, r := range rest {
		if !isASCIIDigit(r) {
			break
		}
		count++
	}
	return count == 3
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
