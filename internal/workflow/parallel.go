package workflow

import (
	"context"

	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/services"
	"golang.org/x/sync/errgroup"
)

// branchResults holds the outputs of the two parallel branches. Each branch
// writes only its own field.
type branchResults struct {
	thumbnail *models.Thumbnail
	textJob   *models.TextJob
}

// runParallel renders the thumbnail and waits for OCR at the same time. The
// first branch to fail cancels the other and its error is returned. An OCR job
// already running at the provider is left alone.
func (e *Engine) runParallel(ctx context.Context, meta *models.MetadataResult) (*branchResults, error) {
	var res branchResults
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Rendering gets a stage deadline; only OCR may use the whole parallel budget.
		thumb, err := call(e, gctx, services.StageThumbnail, func(ctx context.Context) (*models.Thumbnail, error) {
			return e.stages.RenderThumbnail(ctx, meta.File)
		})
		if err != nil {
			return err
		}
		res.thumbnail = thumb
		return nil
	})
	g.Go(func() error {
		job, err := e.poller.Await(gctx, meta.File)
		if err != nil {
			return err
		}
		res.textJob = job
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}
