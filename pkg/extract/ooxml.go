package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	wordNS    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	drawingNS = "http://schemas.openxmlformats.org/drawingml/2006/main"
)

var slideEntry = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (e *Extractor) readDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		if text, ok := e.plainTextFallback(path); ok {
			return text, nil
		}
		return "", corrupted("docx", path, err)
	}
	defer archive.Close()

	data, err := readZipEntry(&archive.Reader, "word/document.xml")
	if err != nil {
		return "", corrupted("docx", path, err)
	}

	paragraphs, cells, err := collectDocx(data)
	if err != nil {
		return "", corrupted("docx", path, err)
	}

	parts := append(paragraphs, cells...)
	return strings.Join(parts, "\n"), nil
}

// plainTextFallback rescues .docx uploads that are really plain text.
func (e *Extractor) plainTextFallback(path string) (string, bool) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil || !strings.HasPrefix(mtype.String(), "text/") {
		return "", false
	}
	text, err := e.readText(path)
	if err != nil {
		return "", false
	}
	e.logger.Warn().Str("path", path).Str("mime", mtype.String()).Msg("docx is not a zip package, read as plain text")
	return text, true
}

// collectDocx returns body paragraphs and table cells, each in document order.
func collectDocx(data []byte) ([]string, []string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var (
		paragraphs []string
		cells      []string
		cellParts  []string
		stack      []*strings.Builder
		tblDepth   int
		inText     bool
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("decode document.xml: %w", err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Space != wordNS {
				continue
			}
			switch el.Name.Local {
			case "tbl":
				tblDepth++
			case "tc":
				if tblDepth == 1 {
					cellParts = cellParts[:0]
				}
			case "p":
				stack = append(stack, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteString("\t")
				}
			case "br", "cr":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteString("\n")
				}
			}
		case xml.CharData:
			if inText && len(stack) > 0 {
				stack[len(stack)-1].Write(el)
			}
		case xml.EndElement:
			if el.Name.Space != wordNS {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if len(stack) == 0 {
					continue
				}
				text := strings.TrimSpace(stack[len(stack)-1].String())
				stack = stack[:len(stack)-1]
				if text == "" {
					continue
				}
				if tblDepth == 0 {
					paragraphs = append(paragraphs, text)
				} else {
					cellParts = append(cellParts, text)
				}
			case "tc":
				if tblDepth == 1 && len(cellParts) > 0 {
					cells = append(cells, strings.Join(cellParts, "\n"))
					cellParts = cellParts[:0]
				}
			case "tbl":
				if tblDepth > 0 {
					tblDepth--
				}
			}
		}
	}

	return paragraphs, cells, nil
}

func (e *Extractor) readPptx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", corrupted("pptx", path, err)
	}
	defer archive.Close()

	type slideFile struct {
		number int
		file   *zip.File
	}
	slides := make([]slideFile, 0)
	for _, file := range archive.File {
		match := slideEntry.FindStringSubmatch(file.Name)
		if match == nil {
			continue
		}
		number, _ := strconv.Atoi(match[1])
		slides = append(slides, slideFile{number: number, file: file})
	}
	if len(slides) == 0 {
		return "", corrupted("pptx", path, fmt.Errorf("no slides in package"))
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	blocks := make([]string, 0, len(slides))
	hasText := false
	for idx, slide := range slides {
		data, err := readZipFile(slide.file)
		if err != nil {
			return "", corrupted("pptx", path, err)
		}
		lines, err := collectDrawingParagraphs(data)
		if err != nil {
			return "", corrupted("pptx", path, fmt.Errorf("slide %d: %w", slide.number, err))
		}
		if len(lines) > 0 {
			hasText = true
		}
		block := fmt.Sprintf("[Slide %d]", idx+1)
		if len(lines) > 0 {
			block += "\n" + strings.Join(lines, "\n")
		}
		blocks = append(blocks, block)
	}

	if !hasText {
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return strings.Join(blocks, "\n\n"), nil
}

// collectDrawingParagraphs returns every non-empty a:p on a slide. Shape
// text and table cells are both DrawingML paragraphs, so document order
// covers shapes first and then their tables.
func collectDrawingParagraphs(data []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var (
		lines  []string
		stack  []*strings.Builder
		inText bool
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Space != drawingNS {
				continue
			}
			switch el.Name.Local {
			case "p":
				stack = append(stack, &strings.Builder{})
			case "t":
				inText = true
			case "br":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteString("\n")
				}
			}
		case xml.CharData:
			if inText && len(stack) > 0 {
				stack[len(stack)-1].Write(el)
			}
		case xml.EndElement:
			if el.Name.Space != drawingNS {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if len(stack) == 0 {
					continue
				}
				text := strings.TrimSpace(stack[len(stack)-1].String())
				stack = stack[:len(stack)-1]
				if text != "" {
					lines = append(lines, text)
				}
			}
		}
	}
	return lines, nil
}

func readZipEntry(archive *zip.Reader, name string) ([]byte, error) {
	for _, file := range archive.File {
		if file.Name == name {
			return readZipFile(file)
		}
	}
	return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
