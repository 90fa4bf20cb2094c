package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
	"github.com/lightgrid/lightgrid-services-uploads/logging"
	"github.com/lightgrid/lightgrid-services-uploads/models"
	"github.com/lightgrid/lightgrid-services-uploads/services"
)

// identityHeader carries the authenticated caller id, set by the upstream
// auth gateway. This service trusts it; authentication itself lives
// outside this subsystem.
const identityHeader = "X-User-Email"

const chunkHashHeader = "X-Chunk-Hash"

// maxChunkBody caps a single chunk request body. Deployment chunk sizes
// stay well under this; anything larger is a hostile or broken client.
const maxChunkBody = 64 << 20

type HTTPHandler struct {
	uploads services.UploadService
	files   services.FileService
	ready   func() bool

	logger logging.Logger
}

func NewHTTPHandler(uploads services.UploadService, files services.FileService, ready func() bool, l logging.Logger) *HTTPHandler {
	return &HTTPHandler{
		uploads: uploads,
		files:   files,
		ready:   ready,
		logger:  l,
	}
}

func (h *HTTPHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.healthz)

	v1 := r.Group("/v1", h.requireIdentity)
	{
		v1.POST("/uploads", h.initiateUpload)
		v1.PUT("/uploads/:uploadId/chunks/:index", h.submitChunk)
		v1.POST("/uploads/:uploadId/complete", h.completeUpload)
		v1.DELETE("/uploads/:uploadId", h.abortUpload)
		v1.GET("/uploads/:uploadId/status", h.uploadStatus)

		v1.GET("/files", h.listFiles)
		v1.GET("/files/:fileId/download", h.downloadURL)
	}
}

func (h *HTTPHandler) healthz(c *gin.Context) {
	if h.ready != nil && !h.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_serving"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "serving"})
}

func (h *HTTPHandler) requireIdentity(c *gin.Context) {
	if c.GetHeader(identityHeader) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "UNAUTHENTICATED",
			Message: "missing caller identity",
		})
		return
	}
	c.Next()
}

func (h *HTTPHandler) callerID(c *gin.Context) string {
	return c.GetHeader(identityHeader)
}

func (h *HTTPHandler) initiateUpload(c *gin.Context) {
	var req models.InitiateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperrors.Wrap(apperrors.KindValidationFailed, "malformed request body", err))
		return
	}

	resp, err := h.uploads.Initiate(c.Request.Context(), h.callerID(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *HTTPHandler) submitChunk(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.writeError(c, apperrors.Newf(apperrors.KindInvalidChunkIndex, "chunk index %q is not a number", c.Param("index")))
		return
	}

	declaredHash := c.GetHeader(chunkHashHeader)
	if declaredHash == "" {
		h.writeError(c, apperrors.Newf(apperrors.KindValidationFailed, "missing %s header", chunkHashHeader))
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxChunkBody)
	data, err := io.ReadAll(body)
	if err != nil {
		h.writeError(c, apperrors.Wrap(apperrors.KindValidationFailed, "could not read chunk body", err))
		return
	}

	resp, err := h.uploads.SubmitChunk(c.Request.Context(), h.callerID(c), c.Param("uploadId"), index, declaredHash, data)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) completeUpload(c *gin.Context) {
	resp, err := h.uploads.Complete(c.Request.Context(), h.callerID(c), c.Param("uploadId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) abortUpload(c *gin.Context) {
	resp, err := h.uploads.Abort(c.Request.Context(), h.callerID(c), c.Param("uploadId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) uploadStatus(c *gin.Context) {
	resp, err := h.uploads.Status(c.Request.Context(), h.callerID(c), c.Param("uploadId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) listFiles(c *gin.Context) {
	resp, err := h.files.GetFiles(c.Request.Context(), h.callerID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) downloadURL(c *gin.Context) {
	resp, err := h.files.DownloadURL(c.Request.Context(), h.callerID(c), c.Param("fileId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		h.logger.Error("unclassified handler error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   string(apperrors.KindInternal),
			Message: "internal error",
		})
		return
	}

	status := apperrors.HTTPStatus(appErr.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "kind", string(appErr.Kind), "error", err)
	}

	c.JSON(status, models.ErrorResponse{
		Error:   string(appErr.Kind),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}
