package readers

import (
	"fmt"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
)

// UniversalFileReader extracts text from office documents, PDFs and markup
// through docconv.
type UniversalFileReader struct {
}

func (r *UniversalFileReader) CanRead(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".docx", ".odt", ".pdf", ".xml", ".html", ".rtf":
		return true
	}

	return false
}

func (r *UniversalFileReader) ReadText(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	return res.Body, nil
}
