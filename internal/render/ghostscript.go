// Package render rasterizes PDF pages to PNG images with Ghostscript.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Lllllllleong/documentingest/internal/faults"
)

// Ghostscript runs the gs binary as an external process.
type Ghostscript struct {
	binary   string
	fontPath string
	dpi      int
}

// NewGhostscript configures a renderer. An empty binary defaults to "gs".
func NewGhostscript(binary, fontPath string, dpi int) *Ghostscript {
	if binary == "" {
		binary = "gs"
	}
	if dpi <= 0 {
		dpi = 150
	}
	if fontPath != "" {
		if info, err := os.Stat(fontPath); err != nil || !info.IsDir() {
			slog.Warn("Ghostscript font path is not a directory; rendering may miss glyphs.", "fontPath", fontPath, "error", err)
			fontPath = ""
		}
	}
	return &Ghostscript{binary: binary, fontPath: fontPath, dpi: dpi}
}

// Render rasterizes pages firstPage..lastPage (1-based, inclusive) and
// returns one PNG per page in page order. lastPage <= 0 renders to the end.
// A renderer crash or a run that produces no image is a permanent error.
func (g *Ghostscript) Render(ctx context.Context, pdf []byte, firstPage, lastPage int) ([][]byte, error) {
	if firstPage < 1 {
		firstPage = 1
	}
	tempDir, err := os.MkdirTemp("", "thumbnail-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inputFile := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(inputFile, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write renderer input: %w", err)
	}

	args := []string{
		"-q", "-dNOPAUSE", "-dBATCH", "-dSAFER",
		"-sDEVICE=png16m",
		fmt.Sprintf("-r%d", g.dpi),
		fmt.Sprintf("-dFirstPage=%d", firstPage),
	}
	if lastPage > 0 {
		args = append(args, fmt.Sprintf("-dLastPage=%d", lastPage))
	}
	if g.fontPath != "" {
		args = append(args, "-sFONTPATH="+g.fontPath)
	}
	args = append(args, "-sOutputFile="+filepath.Join(tempDir, "page-%03d.png"), inputFile)

	cmd := exec.CommandContext(ctx, g.binary, args...)
	output, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("ghostscript interrupted: %w", ctxErr)
	}
	if err != nil {
		return nil, faults.Permanent("", "ghostscript", strings.TrimSpace(string(output)), err)
	}

	pages, err := filepath.Glob(filepath.Join(tempDir, "page-*.png"))
	if err != nil {
		return nil, fmt.Errorf("failed to list renderer output: %w", err)
	}
	if len(pages) == 0 {
		return nil, faults.Permanent("", "ghostscript", "renderer did not produce an output file", nil)
	}
	sort.Strings(pages)

	images := make([][]byte, 0, len(pages))
	for _, p := range pages {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page %s: %w", filepath.Base(p), err)
		}
		images = append(images, data)
	}
	slog.Debug("Ghostscript rendered pages.", "pages", len(images), "firstPage", firstPage)
	return images, nil
}
