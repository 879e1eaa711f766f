package assets

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// InspectPDF validates data as a PDF and returns its page count. Validation
// runs the full pdfcpu read path, so a passing file is one the viewer can
// actually render, not just one with the right magic bytes.
func InspectPDF(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()

	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	if pdfContext.PageCount < 1 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return pdfContext.PageCount, nil
}
