package extract

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (e *Extractor) readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", corrupted("txt", path, err)
	}
	return decodeText(data, path)
}

// decodeText reads UTF-8 and falls back once to GB18030, the superset of
// the GBK/GB2312 encodings legacy Chinese editors produce.
func decodeText(data []byte, path string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(decoded) {
		if err == nil {
			err = fmt.Errorf("not valid utf-8 or gb18030")
		}
		return "", corrupted("txt", path, err)
	}
	return string(decoded), nil
}
