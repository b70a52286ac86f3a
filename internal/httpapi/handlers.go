package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classattend/internal/attendance"
	"classattend/internal/biometric"
	"classattend/internal/geo"
)

type embeddingRequest struct {
	Embedding biometric.Embedding `json:"embedding" binding:"required"`
}

func (h *Handler) verify(c *gin.Context) {
	var req embeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Embedding.Validate(h.Registry.Dim()); err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.Matcher.Verify(c.Request.Context(), principal(c).UserID, req.Embedding)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"verified":             res.Verified,
		"similarity":           res.Similarity,
		"matched_embedding_id": res.MatchedEmbeddingID,
		"threshold":            h.Matcher.Thresholds().Verify,
	})
}

func (h *Handler) identify(c *gin.Context) {
	var req embeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Identify.Identify(c.Request.Context(), req.Embedding)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) enrollEmbedding(c *gin.Context) {
	var req embeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	emb, err := h.Registry.Enroll(c.Request.Context(), principal(c).UserID, req.Embedding)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, emb)
}

func (h *Handler) deactivateEmbedding(c *gin.Context) {
	if err := h.Registry.Deactivate(c.Request.Context(), principal(c).UserID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) locationCheck(c *gin.Context) {
	var req geo.Coordinates
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	class, err := h.Classes.GetClass(c.Request.Context(), c.Param("classId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Proximity.Validate(&req, class.Location))
}

func (h *Handler) windowState(c *gin.Context) {
	classID := c.Param("classId")
	state, err := h.Windows.Get(c.Request.Context(), classID)
	if err != nil {
		h.fail(c, err)
		return
	}
	open, err := h.Windows.IsOpen(c.Request.Context(), classID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"class_id": classID, "is_open": open, "window": state})
}

func (h *Handler) openWindow(c *gin.Context) {
	var req struct {
		DurationMinutes *int `json:"duration_minutes" binding:"omitempty,min=1"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	classID := c.Param("classId")
	p := principal(c)
	if _, err := h.Records.ClassForTeacher(c.Request.Context(), classID, p.UserID); err != nil {
		h.fail(c, err)
		return
	}
	state, err := h.Windows.Open(c.Request.Context(), classID, p.UserID, req.DurationMinutes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"opened_at": state.OpenedAt, "closes_at": state.ClosesAt})
}

func (h *Handler) closeWindow(c *gin.Context) {
	classID := c.Param("classId")
	if _, err := h.Records.ClassForTeacher(c.Request.Context(), classID, principal(c).UserID); err != nil {
		h.fail(c, err)
		return
	}
	closedAt, err := h.Windows.Close(c.Request.Context(), classID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed_at": closedAt})
}

func (h *Handler) selfMark(c *gin.Context) {
	var req struct {
		Embedding biometric.Embedding `json:"embedding"`
		Location  *geo.Fix            `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.Records.MarkSelf(c.Request.Context(), attendance.SelfMark{
		ClassroomID: c.Param("classroomId"),
		ClassID:     c.Param("classId"),
		StudentID:   principal(c).UserID,
		Embedding:   req.Embedding,
		Location:    req.Location,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) manualMark(c *gin.Context) {
	var req struct {
		Status attendance.Status `json:"status" binding:"required"`
		Notes  string            `json:"notes" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.Records.MarkManual(c.Request.Context(), attendance.ManualMark{
		ClassID:      c.Param("classId"),
		StudentID:    c.Param("studentId"),
		Status:       req.Status,
		Notes:        req.Notes,
		InstructorID: principal(c).UserID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) bulkMark(c *gin.Context) {
	// Entries are decoded one at a time so a malformed one can't sink the batch.
	var req struct {
		Entries []json.RawMessage `json:"entries" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Records.BulkMarkJSON(c.Request.Context(), c.Param("classId"), principal(c).UserID, req.Entries)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) classAttendance(c *gin.Context) {
	classID := c.Param("classId")
	if err := h.authorizeClassStaff(c, classID); err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.Records.ClassAttendance(c.Request.Context(), classID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) attendanceHistory(c *gin.Context) {
	classID := c.Param("classId")
	if err := h.authorizeClassStaff(c, classID); err != nil {
		h.fail(c, err)
		return
	}
	changes, err := h.History.ListByClass(c.Request.Context(), classID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"class_id": classID, "changes": changes, "as_of": time.Now().UTC()})
}
