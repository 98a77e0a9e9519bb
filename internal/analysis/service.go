package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/deepfakex/server/internal/inference"
	"github.com/deepfakex/server/internal/stash"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type recordStore interface {
	Create(ctx context.Context, a Analysis) (Analysis, error)
	FindByID(ctx context.Context, id uuid.UUID) (Analysis, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Analysis, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type fileStash interface {
	Store(ctx context.Context, r io.Reader, size int64, originalName, contentType string) (string, error)
	Open(ctx context.Context, storedPath string) (io.ReadCloser, error)
	Exists(ctx context.Context, storedPath string) bool
	Delete(ctx context.Context, storedPath string) error
}

type detector interface {
	Detect(ctx context.Context, image io.Reader, filename string) (inference.Verdict, error)
}

// Service orchestrates analysis operations: ownership checks, the inference
// relay, record persistence, and report rendering.
type Service struct {
	repo     recordStore
	stash    fileStash
	detector detector
	log      *zap.Logger
}

// NewService constructs an analysis service.
func NewService(repo recordStore, fileStore fileStash, det detector, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		stash:    fileStore,
		detector: det,
		log:      log,
	}
}

// SaveInput carries caller-supplied fields for explicit record creation, used
// when detection happened out-of-band. File paths, when set, reference
// already-stashed files.
type SaveInput struct {
	Filename         string
	Result           Result
	Confidence       float64
	ProcessingTime   float64
	Metadata         *Metadata
	OriginalFilePath string
	ThumbnailPath    string
}

func (in SaveInput) validate() error {
	if strings.TrimSpace(in.Filename) == "" {
		return fmt.Errorf("%w: filename is required", ErrValidation)
	}
	if !in.Result.Valid() {
		return fmt.Errorf("%w: result must be Real or Fake", ErrValidation)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrValidation)
	}
	if in.ProcessingTime < 0 {
		return fmt.Errorf("%w: processing time must not be negative", ErrValidation)
	}
	return nil
}

// Save creates a record owned by the caller. Nothing is persisted when the
// input violates the schema invariants.
func (s *Service) Save(ctx context.Context, caller Caller, input SaveInput) (Analysis, error) {
	if err := input.validate(); err != nil {
		return Analysis{}, err
	}

	return s.repo.Create(ctx, Analysis{
		ID:               uuid.New(),
		OwnerID:          caller.UserID,
		Filename:         input.Filename,
		OriginalFilePath: input.OriginalFilePath,
		ThumbnailPath:    input.ThumbnailPath,
		Result:           input.Result,
		Confidence:       input.Confidence,
		ProcessingTime:   input.ProcessingTime,
		Metadata:         input.Metadata,
	})
}

// DetectAndSave stashes the uploaded image, relays it to the inference
// endpoint, and persists the verdict. When the relay fails the stashed file
// is left in place and no record is created.
func (s *Service) DetectAndSave(ctx context.Context, caller Caller, fileHeader *multipart.FileHeader) (Analysis, inference.Verdict, error) {
	if fileHeader == nil {
		return Analysis{}, inference.Verdict{}, fmt.Errorf("%w: missing image file", ErrValidation)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if err := stash.ValidateUpload(fileHeader.Size, contentType); err != nil {
		return Analysis{}, inference.Verdict{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	upload, err := fileHeader.Open()
	if err != nil {
		return Analysis{}, inference.Verdict{}, fmt.Errorf("open upload: %w", err)
	}
	defer upload.Close()

	// The gate above caps uploads at 10 MiB, so buffering the image keeps
	// the stash write and the relay call independent of each other.
	image, err := io.ReadAll(upload)
	if err != nil {
		return Analysis{}, inference.Verdict{}, fmt.Errorf("read upload: %w", err)
	}

	storedPath, err := s.stash.Store(ctx, bytes.NewReader(image), int64(len(image)), fileHeader.Filename, contentType)
	if err != nil {
		return Analysis{}, inference.Verdict{}, err
	}

	verdict, err := s.detector.Detect(ctx, bytes.NewReader(image), fileHeader.Filename)
	if err != nil {
		// The stashed file intentionally stays behind.
		s.log.Warn("inference failed, stashed file left in place",
			zap.String("path", storedPath), zap.Error(err))
		return Analysis{}, inference.Verdict{}, err
	}

	result := Result(verdict.Prediction)
	if !result.Valid() {
		return Analysis{}, inference.Verdict{}, fmt.Errorf("%w: unexpected prediction %q", inference.ErrInference, verdict.Prediction)
	}

	created, err := s.repo.Create(ctx, Analysis{
		ID:               uuid.New(),
		OwnerID:          caller.UserID,
		Filename:         fileHeader.Filename,
		OriginalFilePath: storedPath,
		ThumbnailPath:    storedPath,
		Result:           result,
		Confidence:       verdict.Confidence,
		Metadata: &Metadata{
			ImageSize:         &ImageSize{},
			FileSize:          int64(len(image)),
			FileType:          contentType,
			AdditionalDetails: verdict.Raw,
		},
	})
	if err != nil {
		return Analysis{}, inference.Verdict{}, err
	}

	return created, verdict, nil
}

// History returns the caller's records newest first, projected for list views.
func (s *Service) History(ctx context.Context, caller Caller) ([]Summary, error) {
	records, err := s.repo.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(records))
	for _, a := range records {
		summaries = append(summaries, Summary{
			ID:              a.ID,
			Filename:        a.Filename,
			Result:          a.Result,
			Confidence:      a.Confidence,
			OriginalFileURL: a.OriginalFileURL(),
			ThumbnailURL:    a.ThumbnailURL(),
			CreatedAt:       a.CreatedAt,
		})
	}
	return summaries, nil
}

// Detail fetches one record, enforcing the ownership rule.
func (s *Service) Detail(ctx context.Context, caller Caller, id uuid.UUID) (Analysis, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Analysis{}, err
	}
	if !caller.mayAccess(a) {
		return Analysis{}, ErrForbidden
	}
	return a, nil
}

// Delete removes both stashed files and the record. File deletion is
// best-effort: a missing file is tolerated and a failed deletion never blocks
// removal of the record.
func (s *Service) Delete(ctx context.Context, caller Caller, id uuid.UUID) error {
	a, err := s.Detail(ctx, caller, id)
	if err != nil {
		return err
	}

	s.removeStashed(ctx, a.OriginalFilePath)
	if a.ThumbnailPath != a.OriginalFilePath {
		s.removeStashed(ctx, a.ThumbnailPath)
	}

	return s.repo.Delete(ctx, a.ID)
}

// Report renders the analysis as a single-page PDF. A missing image file
// drops the image section rather than failing the report.
func (s *Service) Report(ctx context.Context, caller Caller, id uuid.UUID) ([]byte, error) {
	a, err := s.Detail(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	var image io.Reader
	if a.OriginalFilePath != "" && s.stash.Exists(ctx, a.OriginalFilePath) {
		rc, err := s.stash.Open(ctx, a.OriginalFilePath)
		if err == nil {
			defer rc.Close()
			image = rc
		} else {
			s.log.Warn("stashed image unreadable, omitting from report",
				zap.String("path", a.OriginalFilePath), zap.Error(err))
		}
	}

	return renderReport(a, image)
}

func (s *Service) removeStashed(ctx context.Context, storedPath string) {
	if storedPath == "" {
		return
	}
	if err := s.stash.Delete(ctx, storedPath); err != nil {
		s.log.Warn("failed to delete stashed file", zap.String("path", storedPath), zap.Error(err))
	}
}
