package services

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor returns the plain text of a stored PDF.
type TextExtractor interface {
	ExtractText(path string) (string, error)
}

type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// ExtractText concatenates the plain text of every page. A valid PDF without
// a text layer yields "" and no error.
func (s *PDFService) ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

