package testsupport

import (
	"bytes"
	"fmt"
	"strings"
)

// PDFInfo holds the document information dictionary of a generated PDF.
type PDFInfo struct {
	Title        string
	Author       string
	Keywords     string
	CreationDate string
	ModDate      string
}

// MinimalPDF builds a valid PDF with the given number of empty letter-size
// pages and an information dictionary.
func MinimalPDF(pages int, info PDFInfo) []byte {
	if pages < 1 {
		pages = 1
	}
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	var entries []string
	add := func(name, value string) {
		if value != "" {
			entries = append(entries, fmt.Sprintf("/%s (%s)", name, value))
		}
	}
	add("Title", info.Title)
	add("Author", info.Author)
	add("Keywords", info.Keywords)
	add("CreationDate", info.CreationDate)
	add("ModDate", info.ModDate)
	objects = append(objects, fmt.Sprintf("<< %s >>", strings.Join(entries, " ")))
	infoObj := len(objects)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d %05d n \n", off, 0)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, infoObj, xref)
	return buf.Bytes()
}
