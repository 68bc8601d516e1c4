package handlers

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/bodyfit/internal/analysis"
	"github.com/example/bodyfit/internal/auth"
)

// MaxUploadSize bounds the size of an uploaded image.
const MaxUploadSize = 10 << 20

// multipart framing and text fields on top of the image itself
const formOverhead = 1 << 20

// Analyzer is the service behind the HTTP handlers.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Outcome, error)
	GetResult(ctx context.Context, userID, requestID string) (*analysis.Record, error)
}

// Handler serves the analysis endpoints.
type Handler struct {
	analyzer  Analyzer
	uploadDir string
	logger    *zap.Logger
	saveFile  func(c *gin.Context, file *multipart.FileHeader, dst string) error
}

// NewHandler stores uploads under uploadDir until the analysis finishes.
func NewHandler(analyzer Analyzer, uploadDir string, logger *zap.Logger) *Handler {
	return &Handler{
		analyzer:  analyzer,
		uploadDir: uploadDir,
		logger:    logger.Named("handlers"),
		saveFile:  (*gin.Context).SaveUploadedFile,
	}
}

type manualRequest struct {
	BodyShape string `json:"body_shape" form:"body_shape"`
	SkinTone  string `json:"skin_tone" form:"skin_tone"`
	Gender    string `json:"gender" form:"gender"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router. Extra handlers,
// such as rate limiting, run after authentication on the analyze routes.
func RegisterRoutes(router *gin.Engine, h *Handler, authMiddleware gin.HandlerFunc, analyzeMiddleware ...gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	analyze := router.Group("/analyze", authMiddleware)
	analyze.Use(analyzeMiddleware...)
	analyze.POST("/auto", h.analyzeAuto)
	analyze.POST("/manual", h.analyzeManual)
	analyze.POST("/hybrid", h.analyzeHybrid)

	router.GET("/analysis/:id", authMiddleware, h.getResult)
}

func (h *Handler) analyzeAuto(c *gin.Context) {
	imagePath, ok := h.saveUpload(c)
	if !ok {
		return
	}
	h.run(c, analysis.Request{
		Mode:      analysis.ModeAutomatic,
		ImagePath: imagePath,
		UserID:    userID(c),
	})
}

func (h *Handler) analyzeManual(c *gin.Context) {
	var body manualRequest
	if err := c.ShouldBind(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.run(c, analysis.Request{
		Mode:      analysis.ModeManual,
		UserID:    userID(c),
		BodyShape: body.BodyShape,
		SkinTone:  body.SkinTone,
		Gender:    body.Gender,
	})
}

func (h *Handler) analyzeHybrid(c *gin.Context) {
	imagePath, ok := h.saveUpload(c)
	if !ok {
		return
	}
	h.run(c, analysis.Request{
		Mode:      analysis.ModeHybrid,
		ImagePath: imagePath,
		UserID:    userID(c),
		BodyShape: c.PostForm("body_shape"),
		Gender:    c.PostForm("gender"),
	})
}

func (h *Handler) run(c *gin.Context, req analysis.Request) {
	outcome, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("analysis failed", zap.String("mode", string(req.Mode)), zap.String("user_id", req.UserID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": errorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) getResult(c *gin.Context) {
	requestID := c.Param("id")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	user := userID(c)
	if user == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": analysis.ErrAuthenticationRequired.Error()})
		return
	}

	record, err := h.analyzer.GetResult(c.Request.Context(), user, requestID)
	if errors.Is(err, analysis.ErrResultNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("failed to load analysis", zap.String("request_id", requestID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, record)
}

// saveUpload stores the "image" part on disk. A missing part yields an empty
// path so the pipeline reports it; other problems are answered here.
func (h *Handler) saveUpload(c *gin.Context) (string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+formOverhead)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return "", false
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return "", true
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
			return "", false
		}
	}

	if file.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return "", false
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "image must be an image/* upload"})
		return "", false
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := h.saveFile(c, file, path); err != nil {
		h.logger.Error("failed to store upload", zap.String("path", path), zap.Error(err))
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			h.logger.Warn("failed to remove partial upload", zap.String("path", path), zap.Error(rmErr))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return "", false
	}
	return path, true
}

func userID(c *gin.Context) string {
	id, _ := auth.GetUserID(c.Request.Context())
	return id
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrFileNotFound), errors.Is(err, analysis.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Processing failed"
}
