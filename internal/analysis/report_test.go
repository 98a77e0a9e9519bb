package analysis

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func sampleAnalysis() Analysis {
	return Analysis{
		ID:               uuid.New(),
		OwnerID:          uuid.New(),
		Filename:         "selfie.png",
		OriginalFilePath: "uploads/1735689600000-abc123.png",
		ThumbnailPath:    "uploads/1735689600000-abc123.png",
		Result:           ResultFake,
		Confidence:       0.8765,
		CreatedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderReportWithoutMetadata(t *testing.T) {
	report, err := renderReport(sampleAnalysis(), nil)
	if err != nil {
		t.Fatalf("renderReport returned error: %v", err)
	}
	if !bytes.HasPrefix(report, []byte("%PDF")) {
		t.Fatalf("expected a PDF document, got %q", report[:min(8, len(report))])
	}
}

func TestRenderReportWithMetadata(t *testing.T) {
	a := sampleAnalysis()
	a.Metadata = &Metadata{
		ImageSize: &ImageSize{Width: 1920, Height: 1080},
		FileSize:  345678,
		FileType:  "image/png",
	}

	report, err := renderReport(a, nil)
	if err != nil {
		t.Fatalf("renderReport returned error: %v", err)
	}
	if !bytes.HasPrefix(report, []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}
}

func TestRenderReportToleratesUndecodableImage(t *testing.T) {
	// A stored path with a known extension but garbage bytes must drop the
	// image section, not fail the report.
	report, err := renderReport(sampleAnalysis(), strings.NewReader("definitely not a png"))
	if err != nil {
		t.Fatalf("renderReport returned error: %v", err)
	}
	if !bytes.HasPrefix(report, []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}
}

func TestReportOmitsMissingImage(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, newFakeStash(), &fakeDetector{}, nil)
	caller := Caller{UserID: uuid.New()}

	created, err := service.Save(context.Background(), caller, SaveInput{
		Filename:         "gone.jpg",
		Result:           ResultReal,
		Confidence:       0.2,
		OriginalFilePath: "uploads/never-stored.jpg",
	})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	report, err := service.Report(context.Background(), caller, created.ID)
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if !bytes.HasPrefix(report, []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}
}
