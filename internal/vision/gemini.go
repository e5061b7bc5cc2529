package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/kozaktomas/photo-ingest/internal/constants"
)

const geminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client   *genai.Client
	prompt   string
	taxonomy Taxonomy
}

func NewGeminiProvider(ctx context.Context, apiKey string, taxonomy Taxonomy) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:   client,
		prompt:   buildAnalysisPrompt(taxonomy),
		taxonomy: taxonomy,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

func (p *GeminiProvider) AnalyzeImage(ctx context.Context, imageData []byte) (*Analysis, error) {
	// Downscale to save tokens, the model does not need full resolution
	resizedData, err := prepareImage(imageData, constants.MaxAnalysisImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: p.prompt},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range constants.AnalysisMaxRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}
		lastResponse = content

		var raw rawAnalysis
		if err := json.Unmarshal([]byte(content), &raw); err != nil {
			lastError = err

			// Feed the parse error back to the model and retry
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Remember to escape quotes inside strings with backslash.", err)}},
				},
			)
			continue
		}

		return normalizeAnalysis(&raw, p.taxonomy), nil
	}

	return nil, fmt.Errorf("failed to parse analysis JSON after %d attempts: %w (last response: %s)", constants.AnalysisMaxRetries, lastError, lastResponse)
}
