package profile

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bideshstudy/admission-api/app/observability/metrics"
	"github.com/bideshstudy/admission-api/internal/api"
	"github.com/bideshstudy/admission-api/internal/api/auth"
	"github.com/bideshstudy/admission-api/internal/types"
)

const maxImageBytes = 10 << 20

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetProfile(w http.ResponseWriter, r *http.Request)
	UpdateProfile(w http.ResponseWriter, r *http.Request)
	GetCompletionPercentage(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	profileService ProfileService
	logger         *slog.Logger
}

func NewHandlerImpl(profileService ProfileService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		profileService: profileService,
		logger:         logger,
	}
}

// GetProfile godoc
// @Summary      Get Profile
// @Tags         Profile
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} types.Response{data=types.Profile}
// @Router       /profile [get]
func (h *HandlerImpl) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetProfile"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	p, err := h.profileService.GetProfile(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch profile", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Data:    p,
	})
}

// UpdateProfile godoc
// @Summary      Update Profile
// @Description  Multipart form; text fields are optional and an optional
// @Description  "image" file replaces the profile photo.
// @Tags         Profile
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} types.Response{data=types.Profile}
// @Failure      400 {object} types.Response "Bad form data"
// @Router       /profile [put]
func (h *HandlerImpl) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateProfile"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid multipart form data")
		return
	}

	params := types.UpdateProfileParams{
		Name:    formField(r, "name"),
		Phone:   formField(r, "phone"),
		Address: formField(r, "address"),
		Email:   formField(r, "email"),
	}

	if params.Email != nil && *params.Email != "" {
		var v api.ValidationErrors
		if v = v.CheckEmail(*params.Email); !v.OK() {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Validation failed: "+v.Error())
			return
		}
	}

	var image *ImageUpload
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		image = &ImageUpload{
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile):
		// Text-only update.
	default:
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid image upload")
		return
	}

	start := time.Now()
	p, err := h.profileService.UpdateProfile(ctx, userID, params, image)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update profile", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	if image != nil {
		if m := metrics.Get(); m != nil {
			m.UploadDurationSeconds.Record(ctx, time.Since(start).Seconds())
		}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Profile updated successfully",
		Data:    p,
	})
}

// GetCompletionPercentage godoc
// @Summary      Get Application Completion Percentage
// @Tags         Profile
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} types.Response
// @Router       /profile/percentage [get]
func (h *HandlerImpl) GetCompletionPercentage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetCompletionPercentage"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	pct, err := h.profileService.CompletionPercentage(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to compute completion percentage", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Data:    map[string]int{"percentage": pct},
	})
}

// formField returns a pointer for fields present in the form, nil for absent
// ones, so PUT can distinguish "clear" from "leave unchanged".
func formField(r *http.Request, name string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}
