package certificate

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursecert/certificate-backend/internal/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the certificate endpoints. Rendering and verification
// are public; protect guards issuing, archives and exports.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, protect gin.HandlerFunc) {
	certs := r.Group("/certificates")
	{
		certs.GET("/render", h.RenderCertificate)
		certs.GET("/:id/verify", h.VerifyCertificate)

		protected := certs.Group("", protect)
		protected.POST("/issue", h.IssueCertificate)
		protected.GET("/export", h.ExportCertificates)
		protected.GET("/:id/archive", h.GetArchiveURL)
	}
}

type renderQuery struct {
	Student string `form:"student" binding:"required"`
	Course  string `form:"course" binding:"required"`
	Mode    string `form:"mode"`
}

type issuePayload struct {
	Student string `json:"student" binding:"required"`
	Course  string `json:"course" binding:"required"`
	Email   string `json:"email"`
	Mode    string `json:"mode"`
}

func (h *Handler) RenderCertificate(c *gin.Context) {
	var q renderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.service.Render(c.Request.Context(), RenderRequest{
		Student: q.Student,
		Course:  q.Course,
		Mode:    ParseOutputMode(q.Mode),
	})
	if err != nil {
		h.logger.Error("Failed to render certificate", zap.Error(err), zap.String("course", q.Course))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	writeDocument(c, doc)
}

func (h *Handler) IssueCertificate(c *gin.Context) {
	var payload issuePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issued, doc, err := h.service.Issue(c.Request.Context(), IssueRequest{
		Student:  payload.Student,
		Course:   payload.Course,
		Email:    payload.Email,
		Mode:     ParseOutputMode(payload.Mode),
		IssuedBy: auth.UserID(c),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to issue certificate", zap.Error(err), zap.String("course", payload.Course))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "pdf" {
		c.Header("X-Certificate-ID", issued.ID.String())
		c.Header("X-Verification-Code", issued.VerificationCode)
		writeDocument(c, doc)
		return
	}
	c.JSON(http.StatusCreated, issued)
}

func (h *Handler) VerifyCertificate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	issued, err := h.service.Verify(c.Request.Context(), id, c.Query("code"))
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "valid": false})
	case errors.Is(err, ErrInvalidCode):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "valid": false})
	case err != nil:
		h.logger.Error("Failed to verify certificate", zap.Error(err), zap.String("certificate_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"valid": true, "certificate": issued})
	}
}

func (h *Handler) GetArchiveURL(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	url, err := h.service.ArchiveURL(c.Request.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotArchived):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("Failed to presign certificate archive", zap.Error(err), zap.String("certificate_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

func (h *Handler) ExportCertificates(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.ExportIssued(c.Request.Context(), &buf); err != nil {
		h.logger.Error("Failed to export certificates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("certificates_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func writeDocument(c *gin.Context, doc *Document) {
	c.Header("Content-Disposition", doc.ContentDisposition())
	c.Header("Cache-Control", "private, max-age=0, must-revalidate")
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return uuid.Nil, false
	}
	return id, true
}
