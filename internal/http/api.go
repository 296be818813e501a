package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ayload-server/internal/domain"
	"ayload-server/internal/jobs"
	"ayload-server/internal/media"
	"ayload-server/internal/repository"
)

// Handler wires HTTP routes to the resolver and the job manager.
type Handler struct {
	resolver *media.Resolver
	manager  jobs.Manager
	history  repository.HistoryRepository
	logger   *logrus.Logger
}

func NewHandler(resolver *media.Resolver, manager jobs.Manager, history repository.HistoryRepository, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		resolver: resolver,
		manager:  manager,
		history:  history,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), securityHeaders(), corsMiddleware())

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	api := router.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/video-info", h.videoInfo)
		api.POST("/download", h.createDownload)
		api.GET("/download/:id/status", h.downloadStatus)
		api.GET("/download/:id/file", h.downloadFile)
		api.GET("/history", h.listHistory)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "AyLoad backend is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) videoInfo(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL parameter is required"})
		return
	}

	info, err := h.resolver.Resolve(c.Request.Context(), url)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, videoInfoToResponse(info))
}

type createDownloadRequest struct {
	URL     string         `json:"url"`
	Format  string         `json:"format"`
	Quality string         `json:"quality"`
	Options map[string]any `json:"options"`
}

func (h *Handler) createDownload(c *gin.Context) {
	var req createDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID, err := h.manager.Create(c.Request.Context(), req.URL, req.Format, req.Quality, req.Options)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "URL and format are required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"downloadId": jobID,
		"status":     "started",
		"message":    "Download started successfully",
	})
}

func (h *Handler) downloadStatus(c *gin.Context) {
	job, ok := h.manager.Status(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Download not found"})
		return
	}
	c.JSON(http.StatusOK, jobToResponse(job))
}

func (h *Handler) downloadFile(c *gin.Context) {
	path, err := h.manager.FilePath(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "File not ready for download"})
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

func (h *Handler) listHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history not configured"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	entries, err := h.history.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]HistoryEntryResponse, len(entries))
	for i := range entries {
		resp[i] = historyToResponse(entries[i])
	}
	c.JSON(http.StatusOK, resp)
}

type VideoInfoResponse struct {
	Title     string                  `json:"title"`
	Thumbnail string                  `json:"thumbnail"`
	Duration  string                  `json:"duration"`
	Formats   []StreamVariantResponse `json:"formats"`
}

type StreamVariantResponse struct {
	Format  string `json:"format"`
	Quality string `json:"quality"`
	Size    string `json:"size"`
	Type    string `json:"type"`
}

type JobResponse struct {
	ID             string          `json:"id"`
	URL            string          `json:"url"`
	Format         string          `json:"format"`
	Quality        string          `json:"quality"`
	Status         domain.JobState `json:"status"`
	Progress       int             `json:"progress"`
	TotalSize      *int64          `json:"totalSize,omitempty"`
	FilePath       *string         `json:"filePath"`
	Error          *string         `json:"error"`
	RemoteLocation *string         `json:"remoteLocation,omitempty"`
	StartTime      string          `json:"startTime"`
}

type HistoryEntryResponse struct {
	ID         string          `json:"id"`
	URL        string          `json:"url"`
	Format     string          `json:"format"`
	Quality    string          `json:"quality"`
	Status     domain.JobState `json:"status"`
	OutputPath string          `json:"outputPath,omitempty"`
	Error      string          `json:"error,omitempty"`
	FinishedAt string          `json:"finishedAt"`
}

func videoInfoToResponse(info *domain.VideoInfo) VideoInfoResponse {
	resp := VideoInfoResponse{
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Duration:  info.Duration,
		Formats:   make([]StreamVariantResponse, len(info.Formats)),
	}
	for i, v := range info.Formats {
		resp.Formats[i] = StreamVariantResponse{
			Format:  v.Format,
			Quality: v.Quality,
			Size:    v.Size,
			Type:    v.Type,
		}
	}
	return resp
}

func jobToResponse(job domain.Job) JobResponse {
	resp := JobResponse{
		ID:        job.ID,
		URL:       job.URL,
		Format:    job.Format,
		Quality:   job.Quality,
		Status:    job.State,
		Progress:  job.Progress,
		StartTime: job.CreatedAt.Format(time.RFC3339),
	}
	if job.TotalBytes > 0 {
		v := job.TotalBytes
		resp.TotalSize = &v
	}
	if job.OutputPath != "" {
		v := job.OutputPath
		resp.FilePath = &v
	}
	if job.ErrorDetail != "" {
		v := job.ErrorDetail
		resp.Error = &v
	}
	if job.RemoteLocation != "" {
		v := job.RemoteLocation
		resp.RemoteLocation = &v
	}
	return resp
}

func historyToResponse(entry domain.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:         entry.ID,
		URL:        entry.URL,
		Format:     entry.Format,
		Quality:    entry.Quality,
		Status:     entry.State,
		OutputPath: entry.OutputPath,
		Error:      entry.ErrorDetail,
		FinishedAt: entry.FinishedAt.Format(time.RFC3339),
	}
}
