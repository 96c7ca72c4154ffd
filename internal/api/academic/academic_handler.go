package academic

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bideshstudy/admission-api/app/observability/metrics"
	"github.com/bideshstudy/admission-api/internal/api"
	"github.com/bideshstudy/admission-api/internal/api/auth"
	"github.com/bideshstudy/admission-api/internal/types"
)

const maxCertificateBytes = 20 << 20

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetAcademicInfo(w http.ResponseWriter, r *http.Request)
	UploadCertificate(w http.ResponseWriter, r *http.Request)
	DeleteCertificate(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	academicService AcademicService
	logger          *slog.Logger
}

func NewHandlerImpl(academicService AcademicService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		academicService: academicService,
		logger:          logger,
	}
}

// GetAcademicInfo godoc
// @Summary      Get Academic Certificates
// @Tags         Academic
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} types.Response{data=types.AcademicInfo}
// @Router       /academic [get]
func (h *HandlerImpl) GetAcademicInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetAcademicInfo"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	info, err := h.academicService.GetAcademicInfo(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch academic info", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Data:    info,
	})
}

// UploadCertificate godoc
// @Summary      Upload Academic Certificate
// @Description  Multipart form with a "certificate" file and a
// @Description  "certificateType" field naming the slot (bsc, msc, hsc, ssc,
// @Description  ielts). Re-uploading a slot replaces the previous document.
// @Tags         Academic
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} types.Response{data=types.Certificate}
// @Failure      400 {object} types.Response "Missing file or unknown slot"
// @Router       /academic/upload [post]
func (h *HandlerImpl) UploadCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UploadCertificate"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxCertificateBytes); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid multipart form data")
		return
	}

	certType := types.CertificateType(r.FormValue("certificateType"))
	if !certType.Valid() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid certificate type. Must be one of: bsc, msc, hsc, ssc, ielts")
		return
	}

	file, header, err := r.FormFile("certificate")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "No certificate file uploaded")
			return
		}
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid certificate upload")
		return
	}
	defer file.Close()

	start := time.Now()
	cert, err := h.academicService.UploadCertificate(ctx, userID, CertificateUpload{
		Type:        certType,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to upload certificate", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to upload certificate")
		return
	}
	if m := metrics.Get(); m != nil {
		m.UploadDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Certificate uploaded successfully",
		Data:    cert,
	})
}

// DeleteCertificate godoc
// @Summary      Delete Academic Certificate
// @Tags         Academic
// @Produce      json
// @Security     BearerAuth
// @Param        certificateType path string true "Certificate slot"
// @Success      200 {object} types.Response
// @Failure      404 {object} types.Response "Slot is empty"
// @Router       /academic/{certificateType} [delete]
func (h *HandlerImpl) DeleteCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteCertificate"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	certType := types.CertificateType(chi.URLParam(r, "certificateType"))
	if !certType.Valid() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid certificate type. Must be one of: bsc, msc, hsc, ssc, ielts")
		return
	}

	if err := h.academicService.DeleteCertificate(ctx, userID, certType); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Certificate not found")
			return
		}
		l.ErrorContext(ctx, "Failed to delete certificate", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete certificate")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Certificate deleted successfully",
	})
}
