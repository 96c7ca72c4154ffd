package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bideshstudy/admission-api/internal/api"
	"github.com/bideshstudy/admission-api/internal/api/auth"
	"github.com/bideshstudy/admission-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	AdminLogin(w http.ResponseWriter, r *http.Request)
	CreateAdmin(w http.ResponseWriter, r *http.Request)
	GetAllStudents(w http.ResponseWriter, r *http.Request)
	GetStudentByID(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	adminService AdminService
	logger       *slog.Logger
}

func NewHandlerImpl(adminService AdminService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		adminService: adminService,
		logger:       logger,
	}
}

// AdminLogin godoc
// @Summary      Admin Login
// @Description  Authenticates admin and super-admin accounts only.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        body body auth.LoginRequest true "Credentials"
// @Success      200 {object} types.Response "Token issued"
// @Failure      401 {object} types.Response "Invalid credentials"
// @Failure      403 {object} types.Response "Account is not an admin"
// @Router       /admin/login [post]
func (h *HandlerImpl) AdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "AdminLogin"))

	var req auth.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	var v api.ValidationErrors
	v = v.CheckEmail(req.Email)
	if req.Password == "" {
		v = append(v, "password is required")
	}
	if !v.OK() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Validation failed: "+v.Error())
		return
	}

	result, err := h.adminService.AdminLogin(ctx, api.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidCredentials):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "Access denied. Admin credentials required.")
		default:
			l.ErrorContext(ctx, "Admin login failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Login successful",
		Data:    result,
	})
}

// CreateAdmin godoc
// @Summary      Create Admin Account
// @Description  Super admin only. The new account is verified immediately.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body CreateAdminRequest true "New admin credentials"
// @Success      201 {object} types.Response{data=types.PublicUser}
// @Failure      400 {object} types.Response "Validation failed or duplicate email"
// @Failure      403 {object} types.Response "Caller is not a super admin"
// @Router       /admin/create [post]
func (h *HandlerImpl) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateAdmin"))

	var req CreateAdminRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	var v api.ValidationErrors
	v = v.CheckEmail(req.Email)
	v = v.CheckPassword("password", req.Password)
	if !v.OK() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Validation failed: "+v.Error())
		return
	}

	created, err := h.adminService.CreateAdmin(ctx, api.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "User already exists with this email")
			return
		}
		l.ErrorContext(ctx, "Failed to create admin", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, types.Response{
		Success: true,
		Message: "Admin account created successfully",
		Data:    created,
	})
}

// GetAllStudents godoc
// @Summary      List Students
// @Description  Paginated listing, newest registrations first, with profile
// @Description  and certificates attached.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number (default 1)"
// @Param        limit query int false "Page size (default 10, max 100)"
// @Success      200 {object} types.Response{data=StudentPage}
// @Router       /admin/students [get]
func (h *HandlerImpl) GetAllStudents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetAllStudents"))

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.adminService.GetAllStudents(ctx, page, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list students", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Data:    result,
	})
}

// GetStudentByID godoc
// @Summary      Get Student Detail
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        studentID path string true "Student ID"
// @Success      200 {object} types.Response{data=StudentDetail}
// @Failure      404 {object} types.Response "Student not found"
// @Router       /admin/students/{studentID} [get]
func (h *HandlerImpl) GetStudentByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetStudentByID"))

	studentID := chi.URLParam(r, "studentID")
	if studentID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Student ID is required")
		return
	}

	detail, err := h.adminService.GetStudentByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Student not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch student", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Data:    detail,
	})
}
