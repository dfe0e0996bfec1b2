package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gallery-server/internal/config"
	domain "gallery-server/internal/domain/media"
	"gallery-server/internal/interfaces/httpserver/requests"
	"gallery-server/internal/interfaces/httpserver/responses"
	"gallery-server/internal/utils/platformerrors"
)

const passwordHeader = "X-Gallery-Password"

// Pinger reports database reachability for the health endpoint. *sql.DB
// satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// GalleryHandler exposes the gallery endpoints.
type GalleryHandler struct {
	cfg     *config.Config
	service *domain.Service
	db      Pinger
	log     zerolog.Logger
}

func NewGalleryHandler(cfg *config.Config, service *domain.Service, db Pinger, log zerolog.Logger) *GalleryHandler {
	return &GalleryHandler{
		cfg:     cfg,
		service: service,
		db:      db,
		log:     log.With().Str("component", "gallery-handler").Logger(),
	}
}

// Upload accepts a multipart batch: one or more "files" parts, a "password"
// field, and an optional "metadata" field holding a JSON object (shared) or
// array (positional).
func (h *GalleryHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid multipart form", "gallery-route-upload-001")
		return
	}

	password := c.Request.FormValue("password")
	if password == "" {
		password = c.GetHeader(passwordHeader)
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		fileHeaders = form.File["file"]
	}

	files := make([]domain.UploadFile, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		part, err := header.Open()
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "failed to read uploaded file", "gallery-route-upload-002")
			return
		}
		// Cap what a single part can pull into memory. An oversized part is
		// truncated to limit+1 bytes, which the size check then rejects
		// without the whole body ever being buffered.
		data, err := io.ReadAll(io.LimitReader(part, h.cfg.MaxUploadBytes+1))
		part.Close()
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "failed to read uploaded file", "gallery-route-upload-002")
			return
		}
		files = append(files, domain.UploadFile{OriginalName: header.Filename, Data: data})
	}

	meta, err := domain.ParseMetadataSpec(c.Request.FormValue("metadata"), len(files))
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "gallery-route-upload-003")
		return
	}

	result, err := h.service.Upload(c.Request.Context(), password, files, meta)
	if err != nil {
		responses.HandleError(c, err, "upload failed")
		return
	}

	c.JSON(http.StatusOK, responses.BuildUploadResponse(result))
}

// List returns every record, newest upload first. Listing is not gated by
// the password.
func (h *GalleryHandler) List(c *gin.Context) {
	records, err := h.service.List(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to list media")
		return
	}
	c.JSON(http.StatusOK, responses.BuildListResponse(records))
}

// Delete removes one record and its artifacts. The password travels in the
// JSON body or the X-Gallery-Password header.
func (h *GalleryHandler) Delete(c *gin.Context) {
	filename := c.Param("filename")

	var req requests.DeleteRequest
	_ = c.ShouldBindJSON(&req)
	password := req.Password
	if password == "" {
		password = c.GetHeader(passwordHeader)
	}

	if err := h.service.Delete(c.Request.Context(), password, filename); err != nil {
		responses.HandleError(c, err, "delete failed")
		return
	}

	c.JSON(http.StatusOK, responses.DeleteResponse{Success: true, Message: "file deleted", Filename: filename})
}

// Update mutates descriptive fields of one record.
func (h *GalleryHandler) Update(c *gin.Context) {
	filename := c.Param("filename")

	var req requests.UpdateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "gallery-route-update-001")
		return
	}

	password := req.Password
	if password == "" {
		password = c.GetHeader(passwordHeader)
	}

	rec, err := h.service.Update(c.Request.Context(), password, filename, req.ToDomain())
	if err != nil {
		responses.HandleError(c, err, "update failed")
		return
	}

	c.JSON(http.StatusOK, responses.UpdateResponse{File: rec})
}

// Health reports liveness, the active storage target, and database
// reachability.
func (h *GalleryHandler) Health(c *gin.Context) {
	dbStatus := "ok"
	if h.db == nil {
		dbStatus = "not connected"
	} else if err := h.db.PingContext(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("database ping failed")
		dbStatus = "unreachable"
	}

	code := http.StatusOK
	status := "healthy"
	if dbStatus != "ok" {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}
	c.JSON(code, gin.H{
		"status":      status,
		"database":    dbStatus,
		"storageType": h.service.StorageTarget(),
	})
}

// Test is a connectivity probe used by deployment checks.
func (h *GalleryHandler) Test(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.cfg.ServiceName,
		"status":  "ok",
	})
}
