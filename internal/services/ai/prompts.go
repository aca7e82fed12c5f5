package ai

import (
	"strings"
)

const roleSection = `<ROLE>
You are a nutrition assistant. You estimate the energy and macronutrient content of a single meal as it was actually eaten.
</ROLE>`

const portionHeuristicsSection = `<PORTION_HEURISTICS>
When the amount is not stated, assume a typical single adult serving:
- Meat or fish: about 150 g
- Cooked starch (rice, pasta, potatoes): about 200 g
- Vegetables: about 150 g
- Bread: about 50-70 g (one to two slices)
- Beverage: about 250 ml
Scale the estimate when the input mentions a different amount or several servings.
</PORTION_HEURISTICS>`

const outputFormatSection = `<OUTPUT_FORMAT>
Respond with exactly one JSON object and nothing else:

{
  "name": "",
  "calories": 0,
  "protein": 0,
  "carbs": 0,
  "fat": 0
}

- "name": short name of the meal in the language of the input
- "calories": total energy in kcal
- "protein", "carbs", "fat": grams
- All numbers are plain JSON numbers without units.
</OUTPUT_FORMAT>`

const instructionsSection = `<INSTRUCTIONS>
1. Identify every component of the meal.
2. Estimate the portion of each component using the heuristics above.
3. Sum calories, protein, carbohydrates and fat over all components.
4. Return only the JSON object. No markdown, no explanation.
</INSTRUCTIONS>`

const imageContextSection = `<IMAGE_CONTEXT>
The meal is shown in the attached photo. Judge portion sizes from the plate, cutlery and packaging visible in the image. Ignore items that are clearly not part of the meal.
</IMAGE_CONTEXT>`

const audioContextSection = `<AUDIO_CONTEXT>
The meal is described in the attached voice recording. Listen for dish names, ingredients and amounts. The speaker may use any language.
</AUDIO_CONTEXT>`

func basePrompt(context string) []string {
	sections := []string{roleSection}
	if context != "" {
		sections = append(sections, context)
	}
	return append(sections, portionHeuristicsSection, outputFormatSection, instructionsSection)
}

// BuildTextPrompt builds the analysis prompt for a free-text meal description.
func BuildTextPrompt(description string) string {
	sections := basePrompt("")
	sections = append(sections, "<MEAL_DESCRIPTION>\n"+strings.TrimSpace(description)+"\n</MEAL_DESCRIPTION>")
	return strings.Join(sections, "\n\n")
}

// BuildImagePrompt builds the analysis prompt sent alongside a meal photo.
// The note is an optional caption from the user.
func BuildImagePrompt(note string) string {
	sections := basePrompt(imageContextSection)
	if note = strings.TrimSpace(note); note != "" {
		sections = append(sections, "<USER_NOTE>\n"+note+"\n</USER_NOTE>")
	}
	return strings.Join(sections, "\n\n")
}

// BuildAudioPrompt builds the analysis prompt sent alongside a voice recording.
func BuildAudioPrompt() string {
	return strings.Join(basePrompt(audioContextSection), "\n\n")
}
