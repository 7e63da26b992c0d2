// Package docx fills WordprocessingML templates: literal placeholder
// substitution in table cells and footers and inline image embedding.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	mainPart         = "word/document.xml"
	contentTypesPart = "[Content_Types].xml"
	maxPartSize      = 64 << 20
)

var (
	ErrNotDocx      = errors.New("not a word document")
	ErrPartTooLarge = errors.New("document part exceeds size limit")

	footerPartPattern = regexp.MustCompile(`^word/footer\d*\.xml$`)
	docPrIDPattern    = regexp.MustCompile(`<wp:docPr\s[^>]*?id="(\d+)"`)
)

// Document is an opened .docx package held in memory.
type Document struct {
	parts     map[string][]byte
	names     []string
	nextDocPr int
}

// Read parses a .docx archive.
func Read(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	d := &Document{parts: make(map[string][]byte, len(zr.File)), nextDocPr: 1}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.UncompressedSize64 > maxPartSize {
			return nil, fmt.Errorf("%w: %s", ErrPartTooLarge, f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		if len(content) > maxPartSize {
			return nil, fmt.Errorf("%w: %s", ErrPartTooLarge, f.Name)
		}
		d.parts[f.Name] = content
		d.names = append(d.names, f.Name)
	}

	if _, ok := d.parts[mainPart]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, mainPart)
	}
	if _, ok := d.parts[contentTypesPart]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, contentTypesPart)
	}

	for _, content := range d.parts {
		for _, m := range docPrIDPattern.FindAllSubmatch(content, -1) {
			if id, err := strconv.Atoi(string(m[1])); err == nil && id >= d.nextDocPr {
				d.nextDocPr = id + 1
			}
		}
	}
	return d, nil
}

// ReadFrom reads the whole archive from r.
func ReadFrom(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Read(data)
}

// FooterParts lists the footer part names in sorted order.
func (d *Document) FooterParts() []string {
	var footers []string
	for _, name := range d.names {
		if footerPartPattern.MatchString(name) {
			footers = append(footers, name)
		}
	}
	sort.Strings(footers)
	return footers
}

// Part returns the raw bytes of a package part.
func (d *Document) Part(name string) ([]byte, bool) {
	content, ok := d.parts[name]
	return content, ok
}

// ReplaceInTableCells substitutes placeholders in every paragraph that sits
// inside a table cell of the main document. It returns the number of
// rewritten paragraphs.
func (d *Document) ReplaceInTableCells(replacements map[string]string) int {
	return d.replace(mainPart, true, replacements)
}

// ReplaceInFooters substitutes placeholders in every footer paragraph.
func (d *Document) ReplaceInFooters(replacements map[string]string) int {
	total := 0
	for _, part := range d.FooterParts() {
		total += d.replace(part, false, replacements)
	}
	return total
}

func (d *Document) replace(part string, cellsOnly bool, replacements map[string]string) int {
	replacer := newReplacer(replacements)
	out, n := rewriteParagraphs(d.parts[part], cellsOnly, func(p paragraph) ([]byte, bool) {
		text := replacer.Replace(p.text)
		if text == p.text {
			return nil, false
		}
		return p.render(text, ""), true
	})
	d.parts[part] = out
	return n
}

// PlaceImageInTableCells clears placeholder from table cell paragraphs and,
// when img is non-nil, appends it inline to each of those paragraphs.
func (d *Document) PlaceImageInTableCells(placeholder string, img *Image) (int, error) {
	return d.placeImage(mainPart, true, placeholder, img)
}

// PlaceImageInFooters does the same for footer paragraphs.
func (d *Document) PlaceImageInFooters(placeholder string, img *Image) (int, error) {
	total := 0
	for _, part := range d.FooterParts() {
		n, err := d.placeImage(part, false, placeholder, img)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (d *Document) placeImage(part string, cellsOnly bool, placeholder string, img *Image) (int, error) {
	var (
		relID  string
		addErr error
	)
	out, n := rewriteParagraphs(d.parts[part], cellsOnly, func(p paragraph) ([]byte, bool) {
		if addErr != nil || !strings.Contains(p.text, placeholder) {
			return nil, false
		}
		drawing := ""
		if img != nil {
			if relID == "" {
				relID, addErr = d.addImage(part, img)
				if addErr != nil {
					return nil, false
				}
			}
			w, h := img.size()
			drawing = d.drawingRun(relID, w, h)
		}
		return p.render(strings.ReplaceAll(p.text, placeholder, ""), drawing), true
	})
	if addErr != nil {
		return 0, addErr
	}
	d.parts[part] = out
	return n, nil
}

// Text returns the plain text of a part, one line per paragraph.
func (d *Document) Text(part string) string {
	var lines []string
	rewriteParagraphs(d.parts[part], false, func(p paragraph) ([]byte, bool) {
		lines = append(lines, p.text)
		return nil, false
	})
	return strings.Join(lines, "\n")
}

// WriteTo serialises the package, keeping the original part order.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, name := range d.names {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return cw.n, fmt.Errorf("failed to create part %s: %w", name, err)
		}
		if _, err := fw.Write(d.parts[name]); err != nil {
			return cw.n, fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finalise document: %w", err)
	}
	return cw.n, nil
}

// Bytes serialises the package into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) setPart(name string, content []byte) {
	if _, ok := d.parts[name]; !ok {
		d.names = append(d.names, name)
	}
	d.parts[name] = content
}

func newReplacer(replacements map[string]string) *strings.Replacer {
	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, replacements[k])
	}
	return strings.NewReplacer(pairs...)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
