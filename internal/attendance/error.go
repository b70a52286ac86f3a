package attendance

import (
	"fmt"
	"strings"

	"classattend/internal/apperr"
)

var (
	ErrStudentNotInClassroom = apperr.Forbidden("student is not assigned to this classroom")
	ErrNotClassTeacher       = apperr.Forbidden("only the class teacher can mark attendance")
	ErrClassNotInClassroom   = apperr.NotFound("class not found in this classroom")
	ErrNoEvidence            = apperr.Validation("an embedding or a location is required")
	ErrIncompleteLocation    = apperr.Validation("location requires both latitude and longitude")
	ErrInvalidStatus         = apperr.Validation("status must be one of present, late, absent, excused")
	ErrVerificationFailed    = apperr.Unprocessable("attendance could not be verified")
)

// VerificationFailure is returned when neither the face nor the location
// check passed. It carries what was measured for the caller.
type VerificationFailure struct {
	FaceAttempted     bool     `json:"face_attempted"`
	Similarity        *float64 `json:"similarity,omitempty"`
	LocationAttempted bool     `json:"location_attempted"`
	DistanceMeters    *float64 `json:"distance_meters,omitempty"`
	RadiusMeters      *float64 `json:"radius_meters,omitempty"`
}

func (e *VerificationFailure) Error() string {
	var parts []string
	if e.FaceAttempted {
		if e.Similarity != nil {
			parts = append(parts, fmt.Sprintf("face similarity %.3f", *e.Similarity))
		} else {
			parts = append(parts, "face not matched")
		}
	}
	if e.LocationAttempted {
		if e.DistanceMeters != nil && e.RadiusMeters != nil {
			parts = append(parts, fmt.Sprintf("distance %.1fm exceeds %.1fm", *e.DistanceMeters, *e.RadiusMeters))
		} else {
			parts = append(parts, "location not verifiable")
		}
	}
	if len(parts) == 0 {
		return ErrVerificationFailed.Error()
	}
	return ErrVerificationFailed.Error() + ": " + strings.Join(parts, ", ")
}

func (e *VerificationFailure) Unwrap() error {
	return ErrVerificationFailed
}
