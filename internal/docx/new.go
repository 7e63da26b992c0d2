package docx

import (
	"bytes"
	"strings"
)

const (
	wordNamespace = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
	relNamespace  = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

	relTypeFooter     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	relTypeOffice     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	contentTypeMain   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	contentTypeFooter = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
	contentTypeRels   = "application/vnd.openxmlformats-package.relationships+xml"
	xmlDeclaration    = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`
	relsOpen          = xmlDeclaration + "\n" + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`
	defaultFooterPart = "word/footer1.xml"
	documentRelsPart  = "word/_rels/document.xml.rels"
	packageRelsPart   = "_rels/.rels"
)

// Cell is one table cell of a generated page; each line becomes a paragraph.
type Cell []string

// New builds a single-section document: a one-row table with the given
// cells followed by a default footer with one paragraph per footer line.
func New(cells []Cell, footer []string) *Document {
	var body strings.Builder
	body.WriteString(xmlDeclaration)
	body.WriteString(`<w:document ` + wordNamespace + ` ` + relNamespace + `><w:body>`)
	if len(cells) > 0 {
		body.WriteString(`<w:tbl><w:tr>`)
		for _, cell := range cells {
			body.WriteString(`<w:tc>`)
			if len(cell) == 0 {
				body.WriteString(`<w:p/>`)
			}
			for _, line := range cell {
				writeParagraph(&body, line)
			}
			body.WriteString(`</w:tc>`)
		}
		body.WriteString(`</w:tr></w:tbl>`)
	}
	body.WriteString(`<w:p/>`)
	if len(footer) > 0 {
		body.WriteString(`<w:sectPr><w:footerReference w:type="default" r:id="rId1"/></w:sectPr>`)
	}
	body.WriteString(`</w:body></w:document>`)

	d := &Document{parts: map[string][]byte{}, nextDocPr: 1}
	types := xmlDeclaration +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="` + contentTypeRels + `"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/` + mainPart + `" ContentType="` + contentTypeMain + `"/>`
	if len(footer) > 0 {
		types += `<Override PartName="/` + defaultFooterPart + `" ContentType="` + contentTypeFooter + `"/>`
	}
	types += `</Types>`

	d.setPart(contentTypesPart, []byte(types))
	d.setPart(packageRelsPart, []byte(relsOpen+
		`<Relationship Id="rId1" Type="`+relTypeOffice+`" Target="`+mainPart+`"/></Relationships>`))
	d.setPart(mainPart, []byte(body.String()))

	if len(footer) > 0 {
		var f strings.Builder
		f.WriteString(xmlDeclaration)
		f.WriteString(`<w:ftr ` + wordNamespace + `>`)
		for _, line := range footer {
			writeParagraph(&f, line)
		}
		f.WriteString(`</w:ftr>`)
		d.setPart(defaultFooterPart, []byte(f.String()))
		d.setPart(documentRelsPart, []byte(relsOpen+
			`<Relationship Id="rId1" Type="`+relTypeFooter+`" Target="footer1.xml"/></Relationships>`))
	}
	return d
}

func writeParagraph(b *strings.Builder, text string) {
	var run bytes.Buffer
	writeRunText(&run, text)
	b.WriteString(`<w:p><w:r>`)
	b.Write(run.Bytes())
	b.WriteString(`</w:r></w:p>`)
}
