package main

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentingest/internal/gcp"
	"github.com/Lllllllleong/documentingest/internal/ocr"
	"github.com/Lllllllleong/documentingest/internal/ocr/tesseract"
	"github.com/Lllllllleong/documentingest/internal/render"
	"github.com/Lllllllleong/documentingest/internal/services"
	"github.com/Lllllllleong/documentingest/internal/workflow"
)

// ingestor is everything one function instance needs to handle upload events.
type ingestor struct {
	config *services.Config
	guard  *services.DuplicateGuard
	engine *workflow.Engine
}

// newIngestor builds the clients once per instance and wires them into the
// stage functions and the workflow engine.
func newIngestor(ctx context.Context) (*ingestor, error) {
	cfg, err := services.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	policy, err := workflow.LoadPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow policy: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	blobs := gcp.NewBlobStore(storageClient)

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	records := gcp.NewRecordStore(firestoreClient, cfg.Collection)
	archive := gcp.NewRunArchive(firestoreClient, cfg.RunsCollection)

	publisher, err := gcp.NewEventPublisher(cfg.EventSinkURL, cfg.EventSource)
	if err != nil {
		return nil, err
	}

	renderer := render.NewGhostscript(cfg.GhostscriptPath, cfg.FontPath, cfg.ThumbnailDPI)

	recognizer, err := newRecognizer(ctx, cfg, blobs, renderer)
	if err != nil {
		return nil, err
	}
	tracker := ocr.NewTracker(recognizer,
		ocr.WithPageSize(cfg.OCRPageSize),
		ocr.WithJobTimeout(policy.ParallelTimeout),
	)

	stages := &services.Stages{
		Metadata:      services.NewMetadata(blobs, cfg.AssetBucket),
		Thumbnail:     services.NewThumbnail(blobs, renderer, cfg.ThumbnailBucket),
		TextDetection: services.NewTextDetection(tracker, policy.PageDelay),
		Merge:         services.NewMerge(blobs),
		Commit:        services.NewCommit(records),
		Compensation:  services.NewCompensate(blobs, records, publisher, cfg.AssetBucket, cfg.ThumbnailBucket),
	}

	slog.Info("Ingest function initialized.",
		"uploadBucket", cfg.UploadBucket,
		"assetBucket", cfg.AssetBucket,
		"ocrProvider", recognizer.Name(),
		"pollInterval", policy.PollInterval.String(),
		"runTimeout", policy.RunTimeout.String(),
	)

	return &ingestor{
		config: cfg,
		guard:  services.NewDuplicateGuard(records, blobs),
		engine: workflow.NewEngine(stages, policy,
			workflow.WithArchiver(archive),
			workflow.WithPublisher(publisher),
		),
	}, nil
}

func newRecognizer(ctx context.Context, cfg *services.Config, blobs ocr.BlobReader, renderer ocr.PageRenderer) (ocr.Recognizer, error) {
	switch cfg.OCRProvider {
	case "tesseract":
		return tesseract.New(blobs, renderer, cfg.OCRLanguages...), nil
	default:
		vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.VertexAIModel)
		if err != nil {
			return nil, err
		}
		return ocr.NewVertexRecognizer(vertexClient), nil
	}
}
