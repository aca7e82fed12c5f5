package nutrition

import (
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// UnnamedMeal replaces an empty meal name after normalization.
const UnnamedMeal = "Unknown meal"

// Record is the nutrition estimate for one meal. Macros are grams.
type Record struct {
	Name     string `json:"name" validate:"required"`
	Calories int    `json:"calories" validate:"gte=5,lte=10000"`
	Protein  int    `json:"protein" validate:"gte=0,lte=500"`
	Carbs    int    `json:"carbs" validate:"gte=0,lte=1000"`
	Fat      int    `json:"fat" validate:"gte=0,lte=500"`
}

// estimate is a record before normalization.
type estimate struct {
	name     string
	calories float64
	protein  float64
	carbs    float64
	fat      float64
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(macrosPresent, Record{})
	return v
}

// macrosPresent rejects records whose protein, carbs and fat are all zero.
func macrosPresent(sl validator.StructLevel) {
	r := sl.Current().Interface().(Record)
	if r.Protein == 0 && r.Carbs == 0 && r.Fat == 0 {
		sl.ReportError(r.Protein, "Protein", "protein", "macros", "")
	}
}

// Validate checks the plausibility bounds of a normalized record.
func (r Record) Validate() error {
	return validate.Struct(r)
}

// normalize rounds numeric fields to integers and trims the name.
func normalize(e estimate) Record {
	name := strings.TrimSpace(e.name)
	if name == "" {
		name = UnnamedMeal
	}
	return Record{
		Name:     name,
		Calories: round(e.calories),
		Protein:  round(e.protein),
		Carbs:    round(e.carbs),
		Fat:      round(e.fat),
	}
}

// round clamps absurd magnitudes so the conversion stays defined; the
// bounds check rejects them afterwards.
func round(v float64) int {
	const limit = 1e9
	switch {
	case math.IsNaN(v):
		return 0
	case v > limit:
		return limit
	case v < -limit:
		return -limit
	}
	return int(math.Round(v))
}
