package ai

import "strings"

const visionPromptBase = `You are an expert maintenance engineer in a factory.
You receive a photo of a machine or component.
Classify the visible condition and answer with a single JSON object:
{"defect_type": "<label, or normal when nothing is wrong>", "status": "OK" or "NG", "confidence": <0..1>}
Use status OK only when defect_type is normal.
`

// BuildVisionPrompt assembles the instruction sent with an image.
// A non-blank operator question is appended as extra context.
func BuildVisionPrompt(question string) string {
	var b strings.Builder
	b.WriteString(visionPromptBase)
	if q := strings.TrimSpace(question); q != "" {
		b.WriteString("\nUser additional question: ")
		b.WriteString(q)
		b.WriteString("\n")
	}
	b.WriteString("\nNow analyze the image and output ONLY the JSON.\n")
	return b.String()
}
