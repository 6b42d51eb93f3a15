package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// PhraseRequest describes the phrases to produce for a deck.
type PhraseRequest struct {
	Topic      string `json:"topic"`
	Level      string `json:"level"`
	SourceText string `json:"source_text,omitempty"`
}

// minSourceText is the length above which the source text is split instead
// of generating phrases from the topic alone.
const minSourceText = 10

const extractPrompt = `You are a linguistics expert helping a Brazilian student learn English for a specific event: %q.

I have provided a specific text below containing phrases in English and Portuguese.
Your task is to EXTRACT these pairs into a structured JSON format.

SOURCE TEXT:
"""
%s
"""

OUTPUT RULES:
1. Extract the English text and its corresponding Portuguese translation.
2. BREAK DOWN long sentences into VERY SHORT, ATOMIC segments (max 6-8 words).
   Split at every comma, conjunction (and, but, or), or preposition where logical.
   Example source: "For this bride and groom, and for their well-being as a family, let us pray to the Lord."
   Example output: "For this bride and groom," / "and for their well-being" / "as a family," / "let us pray to the Lord."
   The Portuguese translation must match the specific English segment exactly.
3. Keep the exact order of the segments as they appear in the source text.
4. Remove "R." or "V." prefixes. "R. Amen" becomes "Amen".
5. Assign a difficulty level (%s) based on complexity.
6. Add a short 'context' field explaining the grammar or situation in Portuguese.
7. Return ONLY JSON.`

const generatePrompt = `Create a list of 15 essential phrases for a Brazilian student attending the following event: %q.
The student's English level is: %s.

Focus on practical, high-value sentences they will actually need to say or understand.
Break long sentences into shorter, digestible chunks (max 8 words).
Include a mix of questions and statements.

Return the response in JSON format.`

// phraseSchema constrains the model output to a phrase array.
var phraseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"english":    {Type: genai.TypeString, Description: "The phrase segment in English"},
			"portuguese": {Type: genai.TypeString, Description: "Portuguese translation of the segment"},
			"context":    {Type: genai.TypeString, Description: "Context or grammar tip in Portuguese"},
			"difficulty": {Type: genai.TypeString, Enum: []string{"Beginner", "Intermediate", "Advanced"}},
		},
		Required: []string{"english", "portuguese", "context", "difficulty"},
	},
}

// buildPhrasePrompt picks extraction mode when a usable source text is given.
func buildPhrasePrompt(req PhraseRequest) string {
	if len(strings.TrimSpace(req.SourceText)) > minSourceText {
		return fmt.Sprintf(extractPrompt, req.Topic, req.SourceText, req.Level)
	}
	return fmt.Sprintf(generatePrompt, req.Topic, req.Level)
}

// GeneratePhrases asks Gemini for the phrase pairs of a deck.
func (g *GeminiClient) GeneratePhrases(ctx context.Context, req PhraseRequest) ([]Phrase, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		genai.Text(buildPhrasePrompt(req)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   phraseSchema,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	return parsePhrases(resp.Text(), time.Now())
}

// parsePhrases decodes the model's JSON array and assigns IDs.
func parsePhrases(text string, now time.Time) ([]Phrase, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty gemini response")
	}

	var phrases []Phrase
	if err := json.Unmarshal([]byte(text), &phrases); err != nil {
		return nil, fmt.Errorf("parse phrases JSON: %w\nraw response: %s", err, text)
	}
	for i := range phrases {
		phrases[i].English = cleanSpeechText(phrases[i].English)
		phrases[i].ID = ""
	}
	assignPhraseIDs(phrases, now)

	if err := ValidatePhrases(phrases); err != nil {
		return nil, fmt.Errorf("invalid phrases: %w", err)
	}
	return phrases, nil
}

// Synthesize returns 24 kHz mono 16-bit PCM for text spoken by voice.
func (g *GeminiClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = defaultVoice
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.ttsModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityAudio)},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("empty gemini tts response")
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData.Data, nil
		}
	}
	return nil, errors.New("gemini tts response has no audio")
}
