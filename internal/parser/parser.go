package parser

import (
	"archive/zip"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Content is the plain text of a document. Lossy is set when invalid UTF-8
// had to be replaced while decoding.
type Content struct {
	Text  string
	Lossy bool
}

var (
	docxRunRe       = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	slideNumberRe   = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	supportedFormat = map[string]bool{
		".txt": true, ".md": true, ".pdf": true, ".docx": true,
		".pptx": true, ".xlsx": true, ".xlsm": true, ".xltx": true,
	}
)

// IsSupported reports whether ReadDocument understands the file's extension.
func IsSupported(filePath string) bool {
	return supportedFormat[strings.ToLower(filepath.Ext(filePath))]
}

// ReadDocument extracts the plain text of a document, dispatching on the
// file extension.
func ReadDocument(filePath string) (Content, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".txt":
		return parseText(filePath)
	case ".md":
		return parseMarkdown(filePath)
	case ".pdf":
		return wrap(parsePDF(filePath))
	case ".docx":
		return wrap(parseDOCX(filePath))
	case ".pptx":
		return wrap(parsePPTX(filePath))
	case ".xlsx":
		return wrap(parseXLSX(filePath))
	case ".xlsm", ".xltx":
		return wrap(parseExcelize(filePath))
	default:
		return Content{}, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func wrap(s string, err error) (Content, error) {
	if err != nil {
		return Content{}, err
	}
	return Content{Text: s}, nil
}

// DecodeText converts raw bytes to text, replacing invalid UTF-8 sequences
// with U+FFFD instead of failing.
func DecodeText(data []byte) Content {
	data = trimBOM(data)
	if utf8.Valid(data) {
		return Content{Text: string(data)}
	}
	return Content{Text: strings.ToValidUTF8(string(data), "\uFFFD"), Lossy: true}
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

func parseText(filePath string) (Content, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Content{}, err
	}
	return DecodeText(data), nil
}

func parseMarkdown(filePath string) (Content, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Content{}, err
	}
	c := DecodeText(data)
	c.Text = MarkdownToText([]byte(c.Text))
	return c, nil
}

// MarkdownToText renders markdown source to plain text, keeping one line per
// block and dropping markup.
func MarkdownToText(src []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func parsePDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n\n"), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	return docxText(r.Editable().GetContent()), nil
}

// docxText pulls run text out of word/document.xml, one line per paragraph.
func docxText(xmlContent string) string {
	var paragraphs []string
	for _, p := range strings.Split(xmlContent, "</w:p>") {
		var line strings.Builder
		for _, m := range docxRunRe.FindAllStringSubmatch(p, -1) {
			line.WriteString(html.UnescapeString(m[1]))
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			paragraphs = append(paragraphs, s)
		}
	}
	return strings.Join(paragraphs, "\n")
}

func parsePPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range f.File {
		m := slideNumberRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, text: extractTextFromXML(string(data))})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var parts []string
	for _, s := range slides {
		if t := strings.TrimSpace(s.text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			text.WriteString(html.UnescapeString(part[:endIdx]) + " ")
		}
	}
	return text.String()
}

func parseXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			text.WriteString(strings.Join(cells, "\t") + "\n")
		}
	}
	return text.String(), nil
}

func parseExcelize(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t") + "\n")
		}
	}
	return text.String(), nil
}
