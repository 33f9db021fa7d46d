package gemini

import (
	"bytes"
	"fmt"
	"text/template"
)

var extractPrompt = template.Must(template.New("extract").Parse(
	`You are an expert in extracting information from identity documents. Today's date is {{.Today}}. Extract the name and date of birth from the following document. Handle various date formats (like DD-MM-YYYY, MM/DD/YYYY, YYYY-MM-DD).

If a date of birth is present, calculate the person's current age and verify if they are at least 18 years old. Set ageVerified to true only if they are 18 or older.

If an ageText field is available, verify age based on this value instead of the date of birth.

Age Text: {{.AgeText}}

Ensure that the date of birth is formatted as YYYY-MM-DD.`))

const comparePrompt = `You are an expert in forensic facial comparison and liveness detection.

1.  **Liveness Check**: Analyze the selfie image (the first image). Determine if it is a live person or a presentation attack (e.g., a photo of a photo, a picture on a screen). Look for signs like screen glare, borders of a phone, or unnatural flatness. Provide a liveness confidence score and set 'isLive' to true if confidence is high.

2.  **Facial Comparison**: Compare the live selfie with the photo from an ID card (the second image). Act as a forensic expert. Focus on stable facial features (e.g., distance between eyes, nose shape, jawline) and be tolerant of superficial differences (e.g., lighting, hairstyle, glasses, facial hair, expression). The ID photo might be older, so account for natural aging. Provide a match confidence score as a percentage from 0 to 100.

3.  **Final Decision**: A match confidence score of 85% or higher is considered a valid match. Set 'isMatch' to true only if the confidence score meets this threshold.`

type extractPromptData struct {
	Today   string
	AgeText string
}

func renderExtractPrompt(data extractPromptData) (string, error) {
	var buf bytes.Buffer
	if err := extractPrompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render extraction prompt: %w", err)
	}
	return buf.String(), nil
}

// Response schemas in the generateContent OpenAPI subset.
var (
	identitySchema = map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"name":        map[string]any{"type": "STRING", "description": "The full name of the user."},
			"dateOfBirth": map[string]any{"type": "STRING", "description": "The date of birth of the user in ISO format (YYYY-MM-DD).", "nullable": true},
			"age":         map[string]any{"type": "NUMBER", "description": "The age of the user, if date of birth is not present.", "nullable": true},
			"ageVerified": map[string]any{"type": "BOOLEAN", "description": "Whether the user meets the minimum age requirement, which is 18."},
		},
		"required": []string{"name", "ageVerified"},
	}

	faceMatchSchema = map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"matchConfidence":    map[string]any{"type": "NUMBER", "description": "The confidence level that the selfie matches the ID photo, as a percentage (0-100)."},
			"isMatch":            map[string]any{"type": "BOOLEAN", "description": "Whether the selfie is considered a match to the ID photo based on a 85% confidence threshold."},
			"isLive":             map[string]any{"type": "BOOLEAN", "description": "Whether the selfie image appears to be a live person and not a photo of a screen or another photo."},
			"livenessConfidence": map[string]any{"type": "NUMBER", "description": "The confidence level that the selfie is from a live person, as a percentage (0-100)."},
		},
		"required": []string{"matchConfidence", "isMatch", "isLive", "livenessConfidence"},
	}
)
