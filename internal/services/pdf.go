package services

import (
	"bytes"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfMagic = []byte("%PDF-")

// InspectPDF validates a PDF and reads its document properties. Anything
// pdfcpu cannot read, including an encrypted file, is a permanent failure.
func InspectPDF(data []byte) (models.Metadata, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\n\r "), pdfMagic) {
		return models.Metadata{}, faults.Permanent(StageMetadata, "inspect", "content is not a PDF", nil)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return models.Metadata{}, faults.Permanent(StageMetadata, "inspect", "unreadable PDF", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return models.Metadata{}, faults.Permanent(StageMetadata, "inspect", "invalid PDF", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return models.Metadata{}, faults.Permanent(StageMetadata, "inspect", "failed to count pages", err)
	}

	// Configuration also carries CreationDate; the document's own values
	// live on the xref table.
	info := ctx.XRefTable
	return models.Metadata{
		Author:       info.Author,
		Title:        info.Title,
		Keywords:     info.Keywords,
		CreatedDate:  info.CreationDate,
		ModifiedDate: info.ModDate,
		PageCount:    info.PageCount,
	}, nil
}
