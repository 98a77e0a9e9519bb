package analysis

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	reportTitle  = "DeepFakeX Analysis Report"
	reportFooter = "This report was generated by DeepFakeX - AI-powered deepfake detection platform"

	// box the original image is scaled to fit into, in mm
	reportImageMaxWidth  = 170.0
	reportImageMaxHeight = 105.0
)

// renderReport produces the single-page PDF report. image may be nil, in
// which case the image section is omitted.
func renderReport(a Analysis, image io.Reader) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 25)
	pdf.CellFormat(0, 12, reportTitle, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	if image != nil {
		embedImage(pdf, a.OriginalFilePath, image)
	}

	pdf.SetFont("Helvetica", "BU", 16)
	pdf.CellFormat(0, 9, "Analysis Details", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 12)
	detailLine(pdf, fmt.Sprintf("Filename: %s", a.Filename))
	detailLine(pdf, fmt.Sprintf("Result: %s", a.Result))
	detailLine(pdf, fmt.Sprintf("Confidence: %.2f%%", a.Confidence*100))
	detailLine(pdf, fmt.Sprintf("Date: %s", a.CreatedAt.Format("2006-01-02")))

	if a.Metadata != nil {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "BU", 16)
		pdf.CellFormat(0, 9, "Image Metadata", "", 1, "L", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont("Helvetica", "", 12)
		if a.Metadata.ImageSize != nil {
			detailLine(pdf, fmt.Sprintf("Dimensions: %dx%d", a.Metadata.ImageSize.Width, a.Metadata.ImageSize.Height))
		}
		if a.Metadata.FileSize > 0 {
			detailLine(pdf, fmt.Sprintf("File Size: %.2f KB", float64(a.Metadata.FileSize)/1024))
		}
		if a.Metadata.FileType != "" {
			detailLine(pdf, fmt.Sprintf("File Type: %s", a.Metadata.FileType))
		}
	}

	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 6, reportFooter, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// embedImage scales the image to fit the report box, keeping aspect ratio.
// An undecodable image drops the section instead of failing the report.
func embedImage(pdf *fpdf.Fpdf, storedPath string, image io.Reader) {
	imageType := imageTypeFromPath(storedPath)
	if imageType == "" {
		return
	}

	info := pdf.RegisterImageOptionsReader("analysis-image", fpdf.ImageOptions{ImageType: imageType}, image)
	if pdf.Err() || info == nil || info.Width() <= 0 || info.Height() <= 0 {
		pdf.ClearError()
		return
	}

	scale := reportImageMaxWidth / info.Width()
	if h := reportImageMaxHeight / info.Height(); h < scale {
		scale = h
	}
	width := info.Width() * scale
	height := info.Height() * scale

	pageWidth, _ := pdf.GetPageSize()
	x := (pageWidth - width) / 2

	pdf.ImageOptions("analysis-image", x, 0, width, height, true, fpdf.ImageOptions{ImageType: imageType}, 0, "")
	pdf.Ln(6)
}

func detailLine(pdf *fpdf.Fpdf, text string) {
	pdf.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
}

func imageTypeFromPath(storedPath string) string {
	switch strings.ToLower(filepath.Ext(storedPath)) {
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPG"
	case ".gif":
		return "GIF"
	default:
		return ""
	}
}
