package analysis

import (
	"encoding/json"
	"path"
	"time"

	"github.com/google/uuid"
)

// Result is the verdict produced by the detection model.
type Result string

const (
	ResultReal Result = "Real"
	ResultFake Result = "Fake"
)

// Valid reports whether the result belongs to the fixed verdict set.
func (r Result) Valid() bool {
	return r == ResultReal || r == ResultFake
}

// ImageSize holds pixel dimensions when known.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Metadata is the optional structured bag attached to an analysis.
// AdditionalDetails holds the raw inference response, shape unknown.
type Metadata struct {
	ImageSize         *ImageSize     `json:"image_size,omitempty"`
	FileSize          int64          `json:"file_size,omitempty"`
	FileType          string         `json:"file_type,omitempty"`
	AdditionalDetails map[string]any `json:"additional_details,omitempty"`
}

// Analysis is one detection verdict tied to one user and its stored files.
type Analysis struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          uuid.UUID `json:"owner_id"`
	Filename         string    `json:"filename"`
	OriginalFilePath string    `json:"original_file_path"`
	ThumbnailPath    string    `json:"thumbnail_path"`
	Result           Result    `json:"result"`
	Confidence       float64   `json:"confidence"`
	ProcessingTime   float64   `json:"processing_time"`
	Metadata         *Metadata `json:"metadata,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// OriginalFileURL is the public URL of the original image, recomputed from
// the stored path; never persisted.
func (a Analysis) OriginalFileURL() string {
	return uploadURL(a.OriginalFilePath)
}

// ThumbnailURL is the public URL of the thumbnail, recomputed from the stored
// path; never persisted.
func (a Analysis) ThumbnailURL() string {
	return uploadURL(a.ThumbnailPath)
}

// MarshalJSON includes the derived URLs alongside the stored fields.
func (a Analysis) MarshalJSON() ([]byte, error) {
	type alias Analysis
	return json.Marshal(struct {
		alias
		OriginalFileURL string `json:"original_file_url"`
		ThumbnailURL    string `json:"thumbnail_url"`
	}{
		alias:           alias(a),
		OriginalFileURL: a.OriginalFileURL(),
		ThumbnailURL:    a.ThumbnailURL(),
	})
}

// Summary is the fixed projection returned by history listings. Full
// metadata is withheld from list views.
type Summary struct {
	ID              uuid.UUID `json:"id"`
	Filename        string    `json:"filename"`
	Result          Result    `json:"result"`
	Confidence      float64   `json:"confidence"`
	OriginalFileURL string    `json:"original_file_url"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// Caller is the resolved identity every operation is authorized against.
type Caller struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// mayAccess applies the ownership rule: owner or admin.
func (c Caller) mayAccess(a Analysis) bool {
	return c.IsAdmin || c.UserID == a.OwnerID
}

func uploadURL(storedPath string) string {
	if storedPath == "" {
		return ""
	}
	return "/uploads/" + path.Base(storedPath)
}
