package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/workflow"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	instance *ingestor
	once     sync.Once
	initErr  error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("IngestDocument", ingestDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// ingestDocument is the entry point for object-finalized events on the
// upload bucket.
func ingestDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		instance, initErr = newIngestor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return instance.handle(ctx, gcsEvent)
}

func (in *ingestor) handle(ctx context.Context, event models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", event.Bucket, "gcsObject", event.Name)
	if event.Bucket != in.config.UploadBucket {
		logCtx.Warn("Ignoring event from unexpected bucket.", "expected", in.config.UploadBucket)
		return nil
	}
	upload := models.UploadEvent{Bucket: event.Bucket, Key: event.Name}

	duplicate, err := in.guard.IsDuplicate(ctx, upload)
	if err != nil {
		logCtx.Error("Duplicate check failed", "error", err)
		return err
	}
	if duplicate {
		return nil
	}

	success, err := in.engine.Run(ctx, upload)
	if err != nil {
		var failure *workflow.CompensatedFailure
		if errors.As(err, &failure) {
			// Compensation already removed the run's artifacts and told the
			// owner; a redelivery would find nothing to process.
			logCtx.Error("Document ingestion failed",
				"runId", failure.RunID,
				"failedStage", failure.FailedStage,
				"error", failure.Err,
			)
			return nil
		}
		logCtx.Error("Workflow run aborted", "error", err)
		return err
	}

	logCtx.Info("Document ingested.", "runId", success.RunID, "documentKey", success.DocumentKey)
	return nil
}
