package nutrition

import (
	"encoding/json"
	"testing"
)

func TestParse_Structured(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *Record
	}{
		{
			name: "plain object with rounding",
			raw:  `{"name":"Chicken","calories":350.6,"protein":30.2,"carbs":0,"fat":20}`,
			want: &Record{Name: "Chicken", Calories: 351, Protein: 30, Carbs: 0, Fat: 20},
		},
		{
			name: "object wrapped in prose and fences",
			raw:  "Sure! Here is the estimate:\n```json\n{\"name\": \"  Pasta Bolognese \", \"calories\": 720, \"protein\": 32, \"carbs\": 85, \"fat\": 24}\n```\nEnjoy.",
			want: &Record{Name: "Pasta Bolognese", Calories: 720, Protein: 32, Carbs: 85, Fat: 24},
		},
		{
			name: "empty name gets placeholder",
			raw:  `{"name":"","calories":200,"protein":10,"carbs":20,"fat":5}`,
			want: &Record{Name: UnnamedMeal, Calories: 200, Protein: 10, Carbs: 20, Fat: 5},
		},
		{
			name: "null name gets placeholder",
			raw:  `{"name":null,"calories":200,"protein":10,"carbs":20,"fat":5}`,
			want: &Record{Name: UnnamedMeal, Calories: 200, Protein: 10, Carbs: 20, Fat: 5},
		},
		{
			name: "calories below minimum",
			raw:  `{"name":"Water","calories":3,"protein":1,"carbs":0,"fat":0}`,
			want: nil,
		},
		{
			name: "all macros zero",
			raw:  `{"name":"Air","calories":100,"protein":0,"carbs":0,"fat":0}`,
			want: nil,
		},
		{
			name: "protein above bound",
			raw:  `{"name":"Shake","calories":3000,"protein":600,"carbs":10,"fat":10}`,
			want: nil,
		},
		{
			name: "calories above bound",
			raw:  `{"name":"Feast","calories":10001,"protein":100,"carbs":100,"fat":100}`,
			want: nil,
		},
		{
			name: "negative fat",
			raw:  `{"name":"Odd","calories":100,"protein":10,"carbs":10,"fat":-4}`,
			want: nil,
		},
		{
			name: "structured rejection does not fall through to free text",
			raw:  `{"name":"Tiny","calories":2,"protein":1,"carbs":1,"fat":1} Calories: 500, protein: 20`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertRecord(t, Parse(tt.raw), tt.want)
		})
	}
}

func TestParse_FreeText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *Record
	}{
		{
			name: "english labels",
			raw:  "Calories: 420 kcal, Protein: 25 g, Carbs: 50 g, Fat: 12 g",
			want: &Record{Name: UnnamedMeal, Calories: 420, Protein: 25, Carbs: 50, Fat: 12},
		},
		{
			name: "czech labels",
			raw:  "Název: Svíčková\nKalorie: 650\nBílkoviny: 35\nSacharidy: 60\nTuky: 28",
			want: &Record{Name: "svíčková", Calories: 650, Protein: 35, Carbs: 60, Fat: 28},
		},
		{
			name: "units after numbers",
			raw:  "About 540 kcal with 30g protein, 45 g carbs and 22 g fat.",
			want: &Record{Name: UnnamedMeal, Calories: 540, Protein: 30, Carbs: 45, Fat: 22},
		},
		{
			name: "decimal comma",
			raw:  "Kalorie: 450,5\nBílkoviny: 20,4\nSacharidy: 40\nTuky: 18",
			want: &Record{Name: UnnamedMeal, Calories: 451, Protein: 20, Carbs: 40, Fat: 18},
		},
		{
			name: "missing macros default to zero",
			raw:  "name: toast\ncalories: 180\ncarbs: 30",
			want: &Record{Name: "toast", Calories: 180, Protein: 0, Carbs: 30, Fat: 0},
		},
		{
			name: "string numbers in json fall back to free text",
			raw:  `{"name":"Soup","calories":"250","protein":"10","carbs":"30","fat":"8"}`,
			want: &Record{Name: "soup", Calories: 250, Protein: 10, Carbs: 30, Fat: 8},
		},
		{
			name: "json missing a field falls back to free text",
			raw:  `{"name":"Salad","calories":150,"protein":5,"carbs":12}`,
			want: &Record{Name: "salad", Calories: 150, Protein: 5, Carbs: 12, Fat: 0},
		},
		{
			name: "undecodable braces fall back to free text",
			raw:  "{not json} calories: 300, fat: 10 {still not}",
			want: &Record{Name: UnnamedMeal, Calories: 300, Protein: 0, Carbs: 0, Fat: 10},
		},
		{
			name: "kcal unit is not read as a label",
			raw:  "Chicken with rice\n450 kcal\n30 g protein, 40 g carbs, 15 g fat",
			want: &Record{Name: UnnamedMeal, Calories: 450, Protein: 30, Carbs: 40, Fat: 15},
		},
		{
			name: "parenthesised units after labels",
			raw:  "Name: Salad\nCalories (kcal): 320\nProtein (g): 12\nCarbs (g): 20\nFat (g): 18",
			want: &Record{Name: "salad", Calories: 320, Protein: 12, Carbs: 20, Fat: 18},
		},
		{
			name: "saturated fat is not total fat",
			raw:  "Calories: 780\nProtein: 35 g\nCarbs: 60 g\nSaturated fat: 8 g\nFat: 40 g",
			want: &Record{Name: UnnamedMeal, Calories: 780, Protein: 35, Carbs: 60, Fat: 40},
		},
		{
			name: "label without a value does not borrow the next line",
			raw:  "Calories:\n25 g protein, 30 g carbs, 10 g fat\n310 kcal",
			want: &Record{Name: UnnamedMeal, Calories: 310, Protein: 25, Carbs: 30, Fat: 10},
		},
		{
			name: "calcium is not calories",
			raw:  "120 calcium, 350 kcal, 20 g protein",
			want: &Record{Name: UnnamedMeal, Calories: 350, Protein: 20, Carbs: 0, Fat: 0},
		},
		{
			name: "nothing numeric",
			raw:  "I cannot identify this meal, sorry.",
			want: nil,
		},
		{
			name: "empty reply",
			raw:  "",
			want: nil,
		},
		{
			name: "free text failing validation",
			raw:  "calories: 2, protein: 1",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertRecord(t, Parse(tt.raw), tt.want)
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	inputs := []string{
		`{"name":"Chicken","calories":350.6,"protein":30.2,"carbs":0,"fat":20}`,
		"Název: Guláš\nKalorie: 610\nBílkoviny: 38\nSacharidy: 42\nTuky: 30",
	}

	for _, raw := range inputs {
		first := Parse(raw)
		if first == nil {
			t.Fatalf("expected record for %q", raw)
		}
		encoded, err := json.Marshal(first)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		assertRecord(t, Parse(string(encoded)), first)
	}
}

func assertRecord(t *testing.T, got, want *Record) {
	t.Helper()
	if want == nil {
		if got != nil {
			t.Errorf("expected nil, got %+v", *got)
		}
		return
	}
	if got == nil {
		t.Fatalf("expected %+v, got nil", *want)
	}
	if *got != *want {
		t.Errorf("expected %+v, got %+v", *want, *got)
	}
}
