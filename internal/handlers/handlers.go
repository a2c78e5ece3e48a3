package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/deepeye-api/internal/diagnosis"
	"github.com/Brownie44l1/deepeye-api/internal/logging"
	"github.com/Brownie44l1/deepeye-api/internal/model"
	"github.com/Brownie44l1/deepeye-api/internal/predict"
	"github.com/Brownie44l1/deepeye-api/internal/preprocess"
)

const serviceName = "DeepEye Disease Detection API"

// Messages returned in the "detail" field of error responses.
const (
	msgNotAnImage     = "Please upload an image file"
	msgInvalidImage   = "Invalid image format"
	msgNoModels       = "No models available"
	msgPredictFailed  = "Internal server error during prediction"
	msgEnsembleFailed = "Internal server error during ensemble prediction"
	msgInternalError  = "Internal server error"
	msgUploadTooLarge = "Uploaded image is too large"
)

const (
	uploadField      = "file"
	uploadFieldAlias = "image"
	modelParam       = "model"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusResponse is the body of GET /.
type StatusResponse struct {
	Message      string          `json:"message"`
	Status       string          `json:"status"`
	ModelsLoaded map[string]bool `json:"models_loaded"`
}

type Handler struct {
	service        predict.Service
	registry       *model.Registry
	maxUploadBytes int64
	reporter       logging.Reporter
	log            logrus.FieldLogger
}

func NewHandler(service predict.Service, registry *model.Registry, maxUploadBytes int64, reporter logging.Reporter, log logrus.FieldLogger) *Handler {
	return &Handler{
		service:        service,
		registry:       registry,
		maxUploadBytes: maxUploadBytes,
		reporter:       reporter,
		log:            log,
	}
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Message:      serviceName,
		Status:       "running",
		ModelsLoaded: h.registry.Status(),
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Predict classifies the upload with one model, chosen by the "model" query
// or form value.
func (h *Handler) Predict(c *gin.Context) {
	data, ok := h.readImage(c)
	if !ok {
		return
	}

	selector := c.Query(modelParam)
	if selector == "" {
		selector = c.PostForm(modelParam)
	}

	result, err := h.service.Predict(c.Request.Context(), data, selector)
	h.respond(c, result, err, msgPredictFailed)
}

// Ensemble classifies the upload with every loaded model and averages the scores.
func (h *Handler) Ensemble(c *gin.Context) {
	data, ok := h.readImage(c)
	if !ok {
		return
	}

	result, err := h.service.Ensemble(c.Request.Context(), data)
	h.respond(c, result, err, msgEnsembleFailed)
}

// readImage validates the multipart upload and returns its bytes. On failure
// it writes the error response and returns false.
func (h *Handler) readImage(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	header, err := formFile(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return nil, false
		}
		abort(c, http.StatusBadRequest, msgNotAnImage)
		return nil, false
	}

	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		abort(c, http.StatusBadRequest, msgNotAnImage)
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		logging.FromContext(c, h.log).WithError(err).Error("failed to open upload")
		abort(c, http.StatusBadRequest, msgNotAnImage)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logging.FromContext(c, h.log).WithError(err).Error("failed to read upload")
		abort(c, http.StatusBadRequest, msgNotAnImage)
		return nil, false
	}

	logging.FromContext(c, h.log).WithFields(logrus.Fields{
		"filename":     header.Filename,
		"size":         header.Size,
		"content_type": contentType,
	}).Debug("received upload")
	return data, true
}

func formFile(c *gin.Context) (*multipart.FileHeader, error) {
	header, err := c.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return c.FormFile(uploadFieldAlias)
	}
	return header, err
}

// respond maps pipeline errors onto HTTP status codes. Internal details are
// logged, never returned.
func (h *Handler) respond(c *gin.Context, result *diagnosis.Result, err error, internalMsg string) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, preprocess.ErrInvalidImage):
		logging.FromContext(c, h.log).WithError(err).Warn("rejected image")
		abort(c, http.StatusBadRequest, msgInvalidImage)
	case errors.Is(err, model.ErrNoModels):
		abort(c, http.StatusServiceUnavailable, msgNoModels)
	default:
		logging.FromContext(c, h.log).WithError(err).Error("prediction error")
		h.reporter.Report(err, map[string]string{"path": c.FullPath()})
		abort(c, http.StatusInternalServerError, internalMsg)
	}
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}

// Recovery answers panics with the generic internal error body.
func Recovery(log logrus.FieldLogger, reporter logging.Reporter) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logging.FromContext(c, log).WithFields(logrus.Fields{
			"panic": recovered,
			"stack": string(debug.Stack()),
		}).Error("handler panicked")
		if err, ok := recovered.(error); ok {
			reporter.Report(err, map[string]string{"path": c.FullPath()})
		}
		abort(c, http.StatusInternalServerError, msgInternalError)
	})
}
