package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

func (e *Extractor) readXlsx(path string) (string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return "", corrupted("xlsx", path, err)
	}
	defer book.Close()

	blocks := make([]string, 0)
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", corrupted("xlsx", path, fmt.Errorf("sheet %s: %w", sheet, err))
		}

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[Sheet %s]\n%s", sheet, strings.Join(lines, "\n")))
	}

	return strings.Join(blocks, "\n\n"), nil
}
