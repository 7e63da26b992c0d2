package docx

import (
	"bytes"
	"encoding/xml"
	"html"
	"regexp"
	"strings"
)

var (
	// w:p and w:tc open/close tags; w:pPr, w:tcPr and friends do not match.
	blockTagPattern = regexp.MustCompile(`<(/?)w:(tc|p)(?:\s[^>]*?)?(/?)>`)
	paraOpenPattern = regexp.MustCompile(`^<w:p(?:\s[^>]*?)?>`)
	pPrPattern      = regexp.MustCompile(`(?s)<w:pPr(?:\s[^>]*?)?/>|<w:pPr(?:\s[^>]*?)?>.*?</w:pPr>`)
	runOpenPattern  = regexp.MustCompile(`<w:r(?:\s[^>]*?)?>`)
	rPrPattern      = regexp.MustCompile(`(?s)^\s*(<w:rPr(?:\s[^>]*?)?/>|<w:rPr(?:\s[^>]*?)?>.*?</w:rPr>)`)
	textPattern     = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>|<w:(tab|br|cr)(?:\s[^>]*?)?/>`)
)

// paragraph is a parsed w:p element. Only what a rewrite keeps is retained:
// the opening tag, paragraph properties and the first run's properties.
type paragraph struct {
	open string
	pPr  string
	rPr  string
	text string
}

func parseParagraph(raw []byte) paragraph {
	s := string(raw)
	p := paragraph{open: "<w:p>"}
	if m := paraOpenPattern.FindString(s); m != "" {
		p.open = m
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, p.open), "</w:p>")

	if loc := pPrPattern.FindStringIndex(body); loc != nil {
		p.pPr = body[loc[0]:loc[1]]
		body = body[:loc[0]] + body[loc[1]:]
	}
	if loc := runOpenPattern.FindStringIndex(body); loc != nil {
		if m := rPrPattern.FindStringSubmatch(body[loc[1]:]); m != nil {
			p.rPr = m[1]
		}
	}

	var text strings.Builder
	for _, m := range textPattern.FindAllStringSubmatch(body, -1) {
		switch m[2] {
		case "tab":
			text.WriteByte('\t')
		case "br", "cr":
			text.WriteByte('\n')
		default:
			text.WriteString(html.UnescapeString(m[1]))
		}
	}
	p.text = text.String()
	return p
}

// render rebuilds the paragraph as a single text run followed by extra runs.
func (p paragraph) render(text, extra string) []byte {
	var b bytes.Buffer
	b.WriteString(p.open)
	b.WriteString(p.pPr)
	if text != "" {
		b.WriteString("<w:r>")
		b.WriteString(p.rPr)
		writeRunText(&b, text)
		b.WriteString("</w:r>")
	}
	b.WriteString(extra)
	b.WriteString("</w:p>")
	return b.Bytes()
}

func writeRunText(b *bytes.Buffer, text string) {
	start := 0
	flush := func(end int) {
		if end > start {
			b.WriteString(`<w:t xml:space="preserve">`)
			xml.EscapeText(b, []byte(text[start:end]))
			b.WriteString("</w:t>")
		}
	}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\t':
			flush(i)
			b.WriteString("<w:tab/>")
			start = i + 1
		case '\n':
			flush(i)
			b.WriteString("<w:br/>")
			start = i + 1
		}
	}
	flush(len(text))
}

// rewriteParagraphs walks the top-level paragraphs of a part. fn returns the
// replacement bytes and true to substitute a paragraph. With cellsOnly set,
// only paragraphs inside a w:tc are visited.
func rewriteParagraphs(data []byte, cellsOnly bool, fn func(paragraph) ([]byte, bool)) ([]byte, int) {
	var (
		out     bytes.Buffer
		last    int
		changed int
		tcDepth int
		pDepth  int
		pStart  int
		inCell  bool
	)
	for _, m := range blockTagPattern.FindAllSubmatchIndex(data, -1) {
		closing := m[3] > m[2]
		selfClosing := m[7] > m[6]
		if selfClosing {
			continue
		}
		name := string(data[m[4]:m[5]])

		if name == "tc" {
			if closing {
				tcDepth--
			} else {
				tcDepth++
			}
			continue
		}

		if !closing {
			if pDepth == 0 {
				pStart = m[0]
				inCell = tcDepth > 0
			}
			pDepth++
			continue
		}
		if pDepth == 0 {
			continue
		}
		pDepth--
		if pDepth > 0 || (cellsOnly && !inCell) {
			continue
		}

		end := m[1]
		replacement, ok := fn(parseParagraph(data[pStart:end]))
		if !ok {
			continue
		}
		out.Write(data[last:pStart])
		out.Write(replacement)
		last = end
		changed++
	}
	if changed == 0 {
		return data, 0
	}
	out.Write(data[last:])
	return out.Bytes(), changed
}
