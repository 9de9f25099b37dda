package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/gcp"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// contentGenerator is satisfied by *genai.GenerativeModel.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexRecognizer transcribes a PDF with a Gemini model reading the object
// straight from Cloud Storage.
type VertexRecognizer struct {
	model contentGenerator
}

// NewVertexRecognizer uses the client's pre-configured text detection model.
func NewVertexRecognizer(client *gcp.VertexClient) *VertexRecognizer {
	return &VertexRecognizer{model: client.TextDetectionModel}
}

func (r *VertexRecognizer) Name() string { return "vertex" }

// Recognize asks the model for a line-by-line transcription of the document.
func (r *VertexRecognizer) Recognize(ctx context.Context, ref models.BlobRef) ([]string, error) {
	filePart := genai.FileData{
		MIMEType: "application/pdf",
		FileURI:  ref.URI(),
	}
	resp, err := r.model.GenerateContent(ctx, filePart, genai.Text(gcp.TextDetectionUserPrompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	text := extractText(resp)

	// A refusal is not going to change on retry.
	refusalPhrases := []string{
		"i am unable to",
		"i cannot fulfill",
		"i cannot transcribe",
		"i cannot provide",
		"as a large language model",
	}
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return nil, faults.Permanent("", "vertex", fmt.Sprintf("gemini response indicates refusal for %s", ref.URI()), nil)
		}
	}

	if text == "" {
		slog.Warn("No text extracted from response. Treating document as empty.", "object", ref.String())
	}
	return SplitLines(text), nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	s := strings.TrimSpace(b.String())
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
