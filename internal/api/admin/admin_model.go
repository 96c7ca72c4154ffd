package admin

import "github.com/bideshstudy/admission-api/internal/types"

// CreateAdminRequest is the super-admin request to provision an admin.
type CreateAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StudentDetail is the admin view of one student: account, profile, and
// uploaded certificates in a single payload.
type StudentDetail struct {
	User       types.PublicUser    `json:"user"`
	Profile    *types.Profile      `json:"profile,omitempty"`
	Academic   *types.AcademicInfo `json:"academic,omitempty"`
	Completion int                 `json:"completion_percentage"`
}

// StudentPage is one page of the student listing, newest first.
type StudentPage struct {
	Students   []StudentDetail `json:"students"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}
