package docx

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`</Types>`

	testDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/>` +
		`</Relationships>`

	testDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Outside {PATIENT_NAME}</w:t></w:r></w:p>` +
		`<w:tbl><w:tr>` +
		`<w:tc><w:tcPr><w:tcW w:w="2000"/></w:tcPr>` +
		`<w:p w:rsidR="00A1"><w:pPr><w:jc w:val="left"/></w:pPr>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>Name: {PATIENT_</w:t></w:r><w:r><w:t>NAME}</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>{AGE}</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">{SEX}</w:t></w:r></w:p>` +
		`</w:tc>` +
		`<w:tc><w:p><w:r><w:t>{PATIENT_IMAGE}</w:t></w:r></w:p><w:p/></w:tc>` +
		`</w:tr></w:tbl>` +
		`</w:body></w:document>`

	testFooter = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:ftr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:p><w:r><w:t>{DOCTOR_NAME}</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>{SIGNATURE}</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Code: {UNIQUE_CODE}</w:t></w:r></w:p>` +
		`</w:ftr>`
)

func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{contentTypesPart, "word/_rels/document.xml.rels", mainPart, "word/footer1.xml"} {
		content, ok := parts[name]
		if !ok {
			continue
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testTemplate(t *testing.T) *Document {
	t.Helper()
	doc, err := Read(buildDocx(t, map[string]string{
		contentTypesPart:               testContentTypes,
		"word/_rels/document.xml.rels": testDocumentRels,
		mainPart:                       testDocument,
		"word/footer1.xml":             testFooter,
	}))
	require.NoError(t, err)
	return doc
}

func TestReadRejectsNonDocx(t *testing.T) {
	_, err := Read([]byte("plain text"))
	assert.ErrorIs(t, err, ErrNotDocx)

	_, err = Read(buildDocx(t, map[string]string{contentTypesPart: testContentTypes}))
	assert.ErrorIs(t, err, ErrNotDocx)
}

func TestReplaceInTableCells(t *testing.T) {
	doc := testTemplate(t)

	n := doc.ReplaceInTableCells(map[string]string{
		"{PATIENT_NAME}": "Juan D. Cruz & Sons",
		"{AGE}":          "42",
		"{SEX}":          "Male",
	})
	assert.Equal(t, 2, n)

	text := doc.Text(mainPart)
	assert.Contains(t, text, "Outside {PATIENT_NAME}")
	assert.Contains(t, text, "Name: Juan D. Cruz & Sons")
	assert.Contains(t, text, "42\tMale")
	assert.Contains(t, text, "{PATIENT_IMAGE}")

	raw, _ := doc.Part(mainPart)
	assert.Contains(t, string(raw),
		`<w:p w:rsidR="00A1"><w:pPr><w:jc w:val="left"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Name: Juan D. Cruz &amp; Sons</w:t></w:r></w:p>`)
	assert.Contains(t, string(raw), `<w:t xml:space="preserve">42</w:t><w:tab/><w:t xml:space="preserve">Male</w:t>`)
	assert.Contains(t, string(raw), `<w:tcW w:w="2000"/>`)
}

func TestReplaceLeavesUnmatchedPartUntouched(t *testing.T) {
	doc := testTemplate(t)
	before, _ := doc.Part(mainPart)

	assert.Zero(t, doc.ReplaceInTableCells(map[string]string{"{NOPE}": "x"}))
	after, _ := doc.Part(mainPart)
	assert.Equal(t, before, after)
}

func TestPlaceImageInTableCells(t *testing.T) {
	doc := testTemplate(t)

	n, err := doc.PlaceImageInTableCells("{PATIENT_IMAGE}", &Image{Data: []byte("png-bytes"), Ext: "PNG"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	raw, _ := doc.Part(mainPart)
	assert.NotContains(t, string(raw), "{PATIENT_IMAGE}")
	assert.Contains(t, string(raw), `r:embed="rId2"`)
	assert.Contains(t, string(raw), `<wp:extent cx="914400" cy="914400"/>`)

	media, ok := doc.Part("word/media/wbms_image1.png")
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(media))

	rels, _ := doc.Part("word/_rels/document.xml.rels")
	assert.Contains(t, string(rels), `<Relationship Id="rId2" Type="`+relTypeImage+`" Target="media/wbms_image1.png"/>`)

	types, _ := doc.Part(contentTypesPart)
	assert.Contains(t, string(types), `<Default Extension="png" ContentType="image/png"/>`)
}

func TestPlaceImageWithoutImageClearsPlaceholder(t *testing.T) {
	doc := testTemplate(t)

	n, err := doc.PlaceImageInFooters("{SIGNATURE}", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	raw, _ := doc.Part("word/footer1.xml")
	assert.NotContains(t, string(raw), "{SIGNATURE}")
	assert.NotContains(t, string(raw), "w:drawing")
	_, ok := doc.Part("word/_rels/footer1.xml.rels")
	assert.False(t, ok)
}

func TestFooterSubstitutionAndSignature(t *testing.T) {
	doc := testTemplate(t)

	assert.Equal(t, 2, doc.ReplaceInFooters(map[string]string{
		"{DOCTOR_NAME}": "Maria S. Reyes",
		"{UNIQUE_CODE}": "CHMC-1A2B3C4D",
	}))
	n, err := doc.PlaceImageInFooters("{SIGNATURE}", &Image{Data: []byte("jpg-bytes"), Ext: "jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, "Maria S. Reyes\n\nCode: CHMC-1A2B3C4D", doc.Text("word/footer1.xml"))

	rels, ok := doc.Part("word/_rels/footer1.xml.rels")
	require.True(t, ok)
	assert.Contains(t, string(rels), `Id="rId1"`)
	assert.Contains(t, string(rels), `Target="media/wbms_image1.jpeg"`)

	types, _ := doc.Part(contentTypesPart)
	assert.Contains(t, string(types), `ContentType="image/jpeg"`)
}

func TestWriteRoundTrip(t *testing.T) {
	doc := testTemplate(t)
	doc.ReplaceInTableCells(map[string]string{"{PATIENT_NAME}": "Ana  Lim"})
	_, err := doc.PlaceImageInTableCells("{PATIENT_IMAGE}", &Image{Data: []byte("img"), Ext: "png"})
	require.NoError(t, err)

	data, err := doc.Bytes()
	require.NoError(t, err)

	reopened, err := Read(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Text(mainPart), reopened.Text(mainPart))
	assert.True(t, strings.HasPrefix(reopened.names[0], "[Content_Types]"))
	_, ok := reopened.Part("word/media/wbms_image1.png")
	assert.True(t, ok)
}

func TestDocPrIDsAreUnique(t *testing.T) {
	doc := testTemplate(t)
	img := &Image{Data: []byte("a"), Ext: "png"}

	_, err := doc.PlaceImageInTableCells("{PATIENT_IMAGE}", img)
	require.NoError(t, err)
	_, err = doc.PlaceImageInFooters("{SIGNATURE}", img)
	require.NoError(t, err)

	main, _ := doc.Part(mainPart)
	footer, _ := doc.Part("word/footer1.xml")
	assert.Contains(t, string(main), `<wp:docPr id="1" `)
	assert.Contains(t, string(footer), `<wp:docPr id="2" `)
}

func TestNewBuildsReadablePackage(t *testing.T) {
	doc := New([]Cell{{"Name: {PATIENT_NAME}", "A & B"}, {}}, []string{"{DOCTOR_NAME}"})
	data, err := doc.Bytes()
	require.NoError(t, err)

	reopened, err := Read(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"word/footer1.xml"}, reopened.FooterParts())
	assert.Equal(t, 1, reopened.ReplaceInTableCells(map[string]string{"{PATIENT_NAME}": "Ana  Lim"}))
	assert.Contains(t, reopened.Text(mainPart), "Name: Ana  Lim\nA & B")
	assert.Equal(t, 1, reopened.ReplaceInFooters(map[string]string{"{DOCTOR_NAME}": "Maria S. Reyes"}))

	rels, ok := reopened.Part("word/_rels/document.xml.rels")
	require.True(t, ok)
	assert.Contains(t, string(rels), `Target="footer1.xml"`)
	assert.True(t, strings.HasSuffix(string(rels), "</Relationships>"))
}
