// Package pdftest assembles small PDFs for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Build assembles a PDF from object bodies (object N is bodies[N-1]) with a
// correct classic xref table and trailer. Object 1 must be the catalog.
func Build(bodies [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(bodies))
	for i, body := range bodies {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		buf.Write(body)
		buf.WriteString("\nendobj\n")
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(bodies)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(bodies)+1, xref)
	return buf.Bytes()
}

// Stream wraps content in a stream object body
func Stream(content string) []byte {
	return []byte(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
}

// TextContent lays lines out top to bottom in 12pt Helvetica (/F1)
func TextContent(lines ...string) string {
	var b strings.Builder
	y := 720
	for _, line := range lines {
		line = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(line)
		fmt.Fprintf(&b, "BT /F1 12 Tf 72 %d Td (%s) Tj ET\n", y, line)
		y -= 16
	}
	return b.String()
}

// Pages builds a US Letter PDF with one page per content stream, each page
// sharing a Helvetica /F1 font. An empty content string yields a page with
// no /Contents.
func Pages(contents ...string) []byte {
	n := len(contents)
	fontObj := 3 + 2*n

	kids := make([]string, n)
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}

	bodies := [][]byte{
		[]byte("<< /Type /Catalog /Pages 2 0 R >>"),
		[]byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n)),
	}
	for i, c := range contents {
		page := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >>", fontObj)
		if c != "" {
			page += fmt.Sprintf(" /Contents %d 0 R", 3+n+i)
		}
		bodies = append(bodies, []byte(page+" >>"))
	}
	for _, c := range contents {
		bodies = append(bodies, Stream(c))
	}
	bodies = append(bodies, []byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"))
	return Build(bodies)
}
