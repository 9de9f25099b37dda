package ocr

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (m *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	m.parts = parts
	return m.resp, m.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestVertexRecognizeSendsObjectURI(t *testing.T) {
	model := &fakeModel{resp: textResponse("Invoice 42\n", "Total due\n")}
	r := &VertexRecognizer{model: model}

	lines, err := r.Recognize(context.Background(), models.BlobRef{Bucket: "up", Key: "a1.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoice 42", "Total due"}, lines)

	require.Len(t, model.parts, 2)
	file, ok := model.parts[0].(genai.FileData)
	require.True(t, ok)
	assert.Equal(t, "gs://up/a1.pdf", file.FileURI)
	assert.Equal(t, "application/pdf", file.MIMEType)
}

func TestVertexRecognizeRefusalIsPermanent(t *testing.T) {
	r := &VertexRecognizer{model: &fakeModel{resp: textResponse("I am unable to help with that.")}}
	_, err := r.Recognize(context.Background(), models.BlobRef{Bucket: "up", Key: "a1.pdf"})
	assert.True(t, faults.IsPermanent(err))
}

func TestVertexRecognizeModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	r := &VertexRecognizer{model: &fakeModel{err: boom}}
	_, err := r.Recognize(context.Background(), models.BlobRef{Bucket: "up", Key: "a1.pdf"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, faults.IsPermanent(err))
}

func TestExtractTextStripsFences(t *testing.T) {
	assert.Equal(t, "a\nb", extractText(textResponse("```text\na\nb\n```")))
	assert.Empty(t, extractText(nil))
	assert.Empty(t, extractText(&genai.GenerateContentResponse{}))
}
