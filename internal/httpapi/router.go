// Package httpapi exposes the attendance core over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"classattend/internal/apperr"
	"classattend/internal/attendance"
	"classattend/internal/audit"
	"classattend/internal/auth"
	"classattend/internal/biometric"
	"classattend/internal/directory"
	"classattend/internal/geo"
	"classattend/internal/httpmiddleware"
	"classattend/internal/identify"
	"classattend/internal/logger"
	"classattend/internal/window"
)

// HealthFunc reports the reachability of each backing service.
type HealthFunc func(ctx context.Context) map[string]bool

// ClassLookup resolves classes for endpoints that don't go through the
// recorder.
type ClassLookup interface {
	GetClass(ctx context.Context, classID string) (*directory.Class, error)
}

// Deps wires the handler. Health may be nil.
type Deps struct {
	Records   *attendance.Service
	Windows   *window.Controller
	Matcher   *biometric.Matcher
	Registry  *biometric.Registry
	Identify  *identify.Service
	Proximity geo.Validator
	Classes   ClassLookup
	History   audit.Log
	Health    HealthFunc
	Log       *logrus.Logger
}

// Options configure the router.
type Options struct {
	JWTSigningKey   string
	JWTIssuer       string
	RateLimitPerMin int
}

// Handler serves the API.
type Handler struct {
	Deps
}

// NewRouter builds the gin engine with middleware, probes and the /v1 API.
func NewRouter(deps Deps, opts Options) *gin.Engine {
	h := &Handler{Deps: deps}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Logger(deps.Log, "/healthz", "/metrics"))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.health)

	v1 := r.Group("/v1", auth.Authenticate(opts.JWTSigningKey, opts.JWTIssuer))
	if opts.RateLimitPerMin > 0 {
		v1.Use(httpmiddleware.NewRateLimiter(opts.RateLimitPerMin, opts.RateLimitPerMin).GinMiddleware())
	}

	student := auth.RequireRole(auth.RoleStudent)
	teacher := auth.RequireRole(auth.RoleTeacher)
	staff := auth.RequireRole(auth.RoleTeacher, auth.RoleAdmin)

	v1.POST("/verify", student, h.verify)
	v1.POST("/identify", staff, h.identify)
	v1.POST("/embeddings", student, h.enrollEmbedding)
	v1.DELETE("/embeddings/:id", h.deactivateEmbedding)

	classes := v1.Group("/classes/:classId")
	classes.POST("/location-check", h.locationCheck)
	classes.GET("/window", h.windowState)
	classes.POST("/window/open", teacher, h.openWindow)
	classes.POST("/window/close", teacher, h.closeWindow)
	classes.GET("/attendance", staff, h.classAttendance)
	classes.GET("/attendance/history", staff, h.attendanceHistory)
	classes.POST("/attendance/bulk", teacher, h.bulkMark)
	classes.PUT("/attendance/:studentId", teacher, h.manualMark)

	v1.POST("/classrooms/:classroomId/classes/:classId/attendance/self", student, h.selfMark)
	return r
}

func (h *Handler) health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	if h.Health != nil {
		for name, ok := range h.Health(c.Request.Context()) {
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
	}
	c.JSON(status, body)
}

// fail maps err to a response. Unclassified errors are logged with a trace
// id and reported opaquely.
func (h *Handler) fail(c *gin.Context, err error) {
	var vf *attendance.VerificationFailure
	if errors.As(err, &vf) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   vf.Error(),
			"kind":    apperr.KindVerification,
			"details": vf,
		})
		return
	}

	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		traceID := logger.ErrorWithTraceID(h.Log, logger.Fields{
			"request_id": httpmiddleware.RequestIDFrom(c),
			"path":       c.FullPath(),
			"error":      err.Error(),
		}, "request failed")
		c.JSON(status, gin.H{"error": "internal error", "trace_id": traceID})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": apperr.KindOf(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperr.KindValidation})
}

func principal(c *gin.Context) auth.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}

// authorizeClassStaff lets admins through and requires teachers to teach
// the class.
func (h *Handler) authorizeClassStaff(c *gin.Context, classID string) error {
	p := principal(c)
	if p.Role == auth.RoleAdmin {
		_, err := h.Classes.GetClass(c.Request.Context(), classID)
		return err
	}
	_, err := h.Records.ClassForTeacher(c.Request.Context(), classID, p.UserID)
	return err
}
