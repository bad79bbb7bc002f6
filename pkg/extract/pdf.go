package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

func (e *Extractor) readPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = corrupted("pdf", path, fmt.Errorf("pdf reader panic: %v", r))
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return "", corrupted("pdf", path, err)
	}
	defer file.Close()

	return e.joinPages(path, reader.NumPage(), func(number int) (string, error) {
		return pageText(reader, number)
	})
}

// joinPages reads pages 1..total in order. Unreadable pages are skipped
// with a warning; the document is corrupted only when every page fails.
func (e *Extractor) joinPages(path string, total int, read func(number int) (string, error)) (string, error) {
	if total == 0 {
		return "", corrupted("pdf", path, fmt.Errorf("document has no pages"))
	}

	pages := make([]string, 0, total)
	failed := 0
	for i := 1; i <= total; i++ {
		content, pageErr := read(i)
		if pageErr != nil {
			failed++
			e.logger.Warn().Err(pageErr).Str("path", path).Int("page", i).Msg("skipping unreadable pdf page")
			continue
		}
		if trimmed := strings.TrimSpace(content); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	if failed == total {
		return "", corrupted("pdf", path, fmt.Errorf("all %d pages failed to extract", total))
	}

	return strings.Join(pages, "\n"), nil
}

// pageText isolates panics raised by malformed content streams to one page.
func pageText(reader *pdf.Reader, number int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", number, r)
		}
	}()

	page := reader.Page(number)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
