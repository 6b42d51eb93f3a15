package main

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultRegion   = "europe-west1"
	defaultModel    = "gemini-2.5-flash"
	defaultTTSModel = "gemini-2.5-flash-preview-tts"
	defaultVoice    = "Kore"
)

// GeminiClient wraps the Google GenAI client used for phrase extraction and
// speech synthesis.
type GeminiClient struct {
	client    *genai.Client
	modelName string
	ttsModel  string
}

// NewGeminiClient creates a client. With an API key it talks to the Gemini
// API; otherwise it uses Vertex AI with Application Default Credentials
// (set GOOGLE_APPLICATION_CREDENTIALS to the service account key file path).
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	if cfg.APIKey != "" {
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	} else {
		region := cfg.Region
		if region == "" {
			region = defaultRegion
		}
		cc.Project = cfg.ProjectID
		cc.Location = region
		cc.Backend = genai.BackendVertexAI
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	tts := cfg.TTSModel
	if tts == "" {
		tts = defaultTTSModel
	}
	return &GeminiClient{
		client:    client,
		modelName: model,
		ttsModel:  tts,
	}, nil
}
