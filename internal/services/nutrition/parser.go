package nutrition

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// jsonObject spans from the first '{' to the last '}' of a reply.
var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

const number = `(?P<value>\d+(?:[.,]\d+)?)`

// label marks the start of a label-first match; word is the unit side.
const (
	label = `(?:^|[^\p{L}])`
	word  = `(?:[^\p{L}]|$)`
)

// sep stays on the label's line. It allows a parenthesised unit, JSON-ish
// quoting and an optional separator.
const sep = `[ \t]*(?:\([^)\n]*\))?[ \t]*["']?[ \t]*[:=]?[ \t]*["']?[ \t]*`

// fatQualifier names fat subtypes that must not be read as total fat.
const fatQualifier = `(?:(?P<qualifier>saturated|unsaturated|monounsaturated|polyunsaturated|trans|nasycené|nasycene|nenasycené|nenasycene)[ \t]+)?`

var (
	namePattern = regexp.MustCompile(`(?:name|název|nazev)[ \t]*["']?[ \t]*[:=][ \t]*["']?[ \t]*([^"'\n,{}]+)`)

	caloriePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)` + label + `(?:calories|calorie|kalorie|kalorií|kalorii|energie|energy)` + sep + number),
		regexp.MustCompile(number + `[ \t]*(?:kcal|kalorií|kalorii|kalorie|calories|cal)` + word),
	}
	proteinPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)` + label + `(?:proteins|protein|bílkoviny|bilkoviny)` + sep + number),
		regexp.MustCompile(number + `[ \t]*g[ \t]+(?:of[ \t]+)?(?:protein|bílkovin|bilkovin)`),
	}
	carbPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)` + label + `(?:carbohydrates|carbohydrate|carbs|carb|sacharidy|sacharidů)` + sep + number),
		regexp.MustCompile(number + `[ \t]*g[ \t]+(?:of[ \t]+)?(?:carbs|carbohydrates|sacharidů|sacharidy)`),
	}
	fatPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)` + label + fatQualifier + `(?:fats|fat|tuky|tuk)` + sep + number),
		regexp.MustCompile(number + `[ \t]*g[ \t]+(?:of[ \t]+)?(?:fat|tuku|tuků)` + word),
	}
)

// structuredOutcome tells whether the JSON path produced a candidate.
type structuredOutcome int

const (
	structuredAbsent structuredOutcome = iota
	structuredFound
)

// Parse turns a raw provider reply into a validated Record, or nil when no
// plausible record can be extracted. A JSON object carrying every required
// field wins; otherwise the reply is scanned as free text. A structured
// candidate that fails validation is final and free text is not consulted.
func Parse(raw string) *Record {
	if est, outcome := parseStructured(raw); outcome == structuredFound {
		rec := normalize(est)
		if err := rec.Validate(); err != nil {
			slog.Debug("Structured nutrition record rejected", "error", err, "name", rec.Name)
			return nil
		}
		return &rec
	}

	est, ok := parseFreeText(raw)
	if !ok {
		slog.Debug("No nutrition values found in reply", "length", len(raw))
		return nil
	}

	rec := normalize(est)
	if err := rec.Validate(); err != nil {
		slog.Debug("Free-text nutrition record rejected", "error", err, "name", rec.Name)
		return nil
	}
	return &rec
}

func parseStructured(raw string) (estimate, structuredOutcome) {
	candidate := jsonObject.FindString(raw)
	if candidate == "" {
		return estimate{}, structuredAbsent
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		slog.Debug("Reply JSON did not decode, trying free text", "error", err)
		return estimate{}, structuredAbsent
	}

	name, hasName := obj["name"]
	if !hasName {
		return estimate{}, structuredAbsent
	}

	var est estimate
	fields := []struct {
		key string
		dst *float64
	}{
		{"calories", &est.calories},
		{"protein", &est.protein},
		{"carbs", &est.carbs},
		{"fat", &est.fat},
	}
	for _, f := range fields {
		v, ok := obj[f.key].(float64)
		if !ok {
			return estimate{}, structuredAbsent
		}
		*f.dst = v
	}

	switch n := name.(type) {
	case string:
		est.name = n
	case nil:
	default:
		est.name = fmt.Sprint(n)
	}
	return est, structuredFound
}

func parseFreeText(raw string) (estimate, bool) {
	text := strings.ToLower(raw)

	var est estimate
	found := false
	for _, f := range []struct {
		patterns []*regexp.Regexp
		dst      *float64
	}{
		{caloriePatterns, &est.calories},
		{proteinPatterns, &est.protein},
		{carbPatterns, &est.carbs},
		{fatPatterns, &est.fat},
	} {
		if v, ok := firstNumber(text, f.patterns); ok {
			*f.dst = v
			found = true
		}
	}
	if !found {
		return estimate{}, false
	}

	if m := namePattern.FindStringSubmatch(text); m != nil {
		est.name = m[1]
	}
	return est, true
}

// firstNumber returns the value of the leftmost unqualified match of the
// first pattern that has one.
func firstNumber(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, p := range patterns {
		value := p.SubexpIndex("value")
		qualifier := p.SubexpIndex("qualifier")
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if qualifier >= 0 && m[qualifier] != "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.Replace(m[value], ",", ".", 1), 64)
			if err == nil {
				return v, true
			}
		}
	}
	return 0, false
}
