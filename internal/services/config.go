package services

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/documentingest/internal/gcp"
)

// Config holds the resource names and provider settings the stage functions need.
type Config struct {
	ProjectID       string
	UploadBucket    string
	AssetBucket     string
	ThumbnailBucket string
	Collection      string
	RunsCollection  string

	OCRProvider    string
	VertexAIRegion string
	VertexAIModel  string
	OCRLanguages   []string
	OCRPageSize    int

	EventSinkURL string
	EventSource  string

	GhostscriptPath string
	FontPath        string
	ThumbnailDPI    int
}

// LoadConfig loads and validates the environment for the ingest function.
func LoadConfig() (*Config, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	uploadBucket := gcp.GetEnv("UPLOAD_BUCKET", "")
	if uploadBucket == "" {
		return nil, fmt.Errorf("UPLOAD_BUCKET environment variable must be set")
	}
	assetBucket := gcp.GetEnv("ASSET_BUCKET", "")
	if assetBucket == "" {
		return nil, fmt.Errorf("ASSET_BUCKET environment variable must be set")
	}
	sinkURL := gcp.GetEnv("EVENT_SINK_URL", "")
	if sinkURL == "" {
		return nil, fmt.Errorf("EVENT_SINK_URL environment variable must be set")
	}

	provider := strings.ToLower(gcp.GetEnv("OCR_PROVIDER", "vertex"))
	if provider != "vertex" && provider != "tesseract" {
		return nil, fmt.Errorf("OCR_PROVIDER must be vertex or tesseract, got %q", provider)
	}
	pageSize, err := gcp.GetEnvInt("OCR_PAGE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("OCR_PAGE_SIZE must be positive")
	}
	dpi, err := gcp.GetEnvInt("THUMBNAIL_DPI", 150)
	if err != nil {
		return nil, err
	}

	return &Config{
		ProjectID:       projectID,
		UploadBucket:    uploadBucket,
		AssetBucket:     assetBucket,
		ThumbnailBucket: gcp.GetEnv("THUMBNAIL_BUCKET", assetBucket),
		Collection:      gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		RunsCollection:  gcp.GetEnv("RUNS_COLLECTION", "workflowRuns"),
		OCRProvider:     provider,
		VertexAIRegion:  gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexAIModel:   gcp.GetEnv("VERTEX_AI_MODEL", "gemini-1.5-pro"),
		OCRLanguages:    splitList(gcp.GetEnv("OCR_LANGUAGES", "eng")),
		OCRPageSize:     pageSize,
		EventSinkURL:    sinkURL,
		EventSource:     gcp.GetEnv("EVENT_SOURCE", "com.documents.processing"),
		GhostscriptPath: gcp.GetEnv("GHOSTSCRIPT_PATH", "gs"),
		FontPath:        gcp.GetEnv("GS_FONTPATH", ""),
		ThumbnailDPI:    dpi,
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
