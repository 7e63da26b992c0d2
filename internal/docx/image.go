package docx

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// EMUPerInch is the number of English Metric Units in one inch.
const EMUPerInch = 914400

const (
	relTypeImage = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relsHeader   = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
)

var (
	relIDPattern     = regexp.MustCompile(`Id="rId(\d+)"`)
	typesOpenPattern = regexp.MustCompile(`<Types(?:\s[^>]*)?>`)
)

// Image is a picture to embed inline. Width and height are in EMU and default
// to one inch each.
type Image struct {
	Data   []byte
	Ext    string
	Width  int64
	Height int64
}

func (img *Image) size() (int64, int64) {
	w, h := img.Width, img.Height
	if w <= 0 {
		w = EMUPerInch
	}
	if h <= 0 {
		h = EMUPerInch
	}
	return w, h
}

func (img *Image) ext() string {
	ext := strings.ToLower(strings.TrimPrefix(img.Ext, "."))
	if ext == "jpg" {
		return "jpeg"
	}
	if ext == "" {
		return "png"
	}
	return ext
}

// relsPartFor maps "word/footer1.xml" to "word/_rels/footer1.xml.rels".
func relsPartFor(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// addImage stores the media part, registers its content type and adds an
// image relationship to part. It returns the relationship id.
func (d *Document) addImage(part string, img *Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("empty image data")
	}
	ext := img.ext()

	var media string
	for i := 1; ; i++ {
		media = fmt.Sprintf("word/media/wbms_image%d.%s", i, ext)
		if _, taken := d.parts[media]; !taken {
			break
		}
	}
	d.setPart(media, img.Data)
	d.ensureContentType(ext)

	relsPart := relsPartFor(part)
	rels, ok := d.parts[relsPart]
	if !ok {
		rels = []byte(relsHeader)
	}
	next := 1
	for _, m := range relIDPattern.FindAllSubmatch(rels, -1) {
		if n, err := strconv.Atoi(string(m[1])); err == nil && n >= next {
			next = n + 1
		}
	}
	relID := "rId" + strconv.Itoa(next)
	target := strings.TrimPrefix(media, path.Dir(part)+"/")
	rel := fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"/>`, relID, relTypeImage, target)

	s := string(rels)
	idx := strings.LastIndex(s, "</Relationships>")
	if idx < 0 {
		return "", fmt.Errorf("malformed relationships part %s", relsPart)
	}
	d.setPart(relsPart, []byte(s[:idx]+rel+s[idx:]))
	return relID, nil
}

func (d *Document) ensureContentType(ext string) {
	types := string(d.parts[contentTypesPart])
	if strings.Contains(strings.ToLower(types), `extension="`+ext+`"`) {
		return
	}
	loc := typesOpenPattern.FindStringIndex(types)
	if loc == nil {
		return
	}
	entry := fmt.Sprintf(`<Default Extension="%s" ContentType="%s"/>`, ext, imageContentType(ext))
	d.parts[contentTypesPart] = []byte(types[:loc[1]] + entry + types[loc[1]:])
}

func imageContentType(ext string) string {
	switch ext {
	case "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	case "svg":
		return "image/svg+xml"
	default:
		return "image/" + ext
	}
}

func (d *Document) drawingRun(relID string, cx, cy int64) string {
	id := d.nextDocPr
	d.nextDocPr++
	return fmt.Sprintf(`<w:r><w:rPr><w:noProof/></w:rPr><w:drawing>`+
		`<wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[2]d" cy="%[3]d"/><wp:effectExtent l="0" t="0" r="0" b="0"/>`+
		`<wp:docPr id="%[1]d" name="Picture %[1]d"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="%[1]d" name="Picture %[1]d"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" r:embed="%[4]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[2]d" cy="%[3]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`,
		id, cx, cy, relID)
}
