package analysis

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/deepfakex/server/internal/auth"
	"github.com/deepfakex/server/internal/inference"
	"github.com/deepfakex/server/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes mounts the analysis and detection-proxy endpoints under the
// provided (authenticated) router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}

	analysisGroup := group.Group("/analysis")
	{
		analysisGroup.POST("", handler.saveAnalysis)
		analysisGroup.GET("/history", handler.history)
		analysisGroup.GET("/:id", handler.detail)
		analysisGroup.DELETE("/:id", handler.deleteAnalysis)
		analysisGroup.GET("/:id/download", handler.downloadReport)
	}

	group.POST("/proxy/detect", handler.detect)
}

type httpHandler struct {
	service *Service
}

type saveRequest struct {
	Filename         string    `json:"filename" binding:"required"`
	Result           string    `json:"result" binding:"required"`
	Confidence       *float64  `json:"confidence" binding:"required"`
	ProcessingTime   float64   `json:"processing_time"`
	Metadata         *Metadata `json:"metadata"`
	OriginalFilePath string    `json:"original_file_path"`
	ThumbnailPath    string    `json:"thumbnail_path"`
}

func (h *httpHandler) saveAnalysis(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Save(c.Request.Context(), caller, SaveInput{
		Filename:         req.Filename,
		Result:           Result(req.Result),
		Confidence:       *req.Confidence,
		ProcessingTime:   req.ProcessingTime,
		Metadata:         req.Metadata,
		OriginalFilePath: req.OriginalFilePath,
		ThumbnailPath:    req.ThumbnailPath,
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "Server error saving analysis")
		return
	}

	respondData(c, http.StatusCreated, created)
}

func (h *httpHandler) history(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	summaries, err := h.service.History(c.Request.Context(), caller)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Server error retrieving analysis history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(summaries),
		"data":    summaries,
	})
}

func (h *httpHandler) detail(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid analysis id")
		return
	}

	a, err := h.service.Detail(c.Request.Context(), caller, id)
	if err != nil {
		respondAnalysisError(c, err, "Server error retrieving analysis")
		return
	}

	respondData(c, http.StatusOK, a)
}

func (h *httpHandler) deleteAnalysis(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid analysis id")
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, id); err != nil {
		respondAnalysisError(c, err, "Server error deleting analysis")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Analysis deleted successfully",
	})
}

func (h *httpHandler) downloadReport(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid analysis id")
		return
	}

	report, err := h.service.Report(c.Request.Context(), caller, id)
	if err != nil {
		respondAnalysisError(c, err, "Server error generating report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=deepfake-analysis-%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", report)
}

func (h *httpHandler) detect(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Please upload an image file")
		return
	}

	created, verdict, err := h.service.DetectAndSave(c.Request.Context(), caller, fileHeader)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.IncDetection(string(created.Result))

	data := make(map[string]any, len(verdict.Raw)+1)
	for key, value := range verdict.Raw {
		data[key] = value
	}
	data["analysis_id"] = created.ID

	respondData(c, http.StatusOK, data)
}

func requireCaller(c *gin.Context) (Caller, bool) {
	userID, user, ok := auth.RequireUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return Caller{}, false
	}
	return Caller{UserID: userID, IsAdmin: user.IsAdmin}, true
}

func respondAnalysisError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrAnalysisNotFound):
		respondError(c, http.StatusNotFound, "Analysis not found")
	case errors.Is(err, ErrForbidden):
		respondError(c, http.StatusForbidden, "Not authorized to access this analysis")
	case errors.Is(err, inference.ErrInference):
		respondError(c, http.StatusInternalServerError, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}
