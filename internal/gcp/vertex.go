package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Text detection prompts ---
const TextDetectionSystemPrompt = "You are an OCR engine. Your task is to transcribe every word printed in a PDF document exactly as it appears, without translating, summarizing or correcting it."
const TextDetectionUserPrompt = `You will be provided with a PDF document.

Transcribe all visible text in reading order:

1.  Output one line of text per printed line, top to bottom, page by page.
2.  Include text inside tables, captions, headers and footers.
3.  Do not describe images and do not add any markdown, numbering or commentary.
4.  If a page contains no text, output nothing for that page.

Return ONLY the transcribed text.`

// VertexClient holds the pre-configured generative model used for text detection.
type VertexClient struct {
	TextDetectionModel *genai.GenerativeModel
	baseClient         *genai.Client
}

// NewVertexClient creates a new client holding the text detection model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	textModel := baseClient.GenerativeModel(modelName)
	textModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TextDetectionSystemPrompt)},
	}
	textModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "text/plain",
		Temperature:      genai.Ptr[float32](0.0), // Transcription must be deterministic.
	}
	textModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		TextDetectionModel: textModel,
		baseClient:         baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
