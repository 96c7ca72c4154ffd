package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"

	"github.com/bideshstudy/admission-api/app/observability/metrics"
	"github.com/bideshstudy/admission-api/internal/api"
	"github.com/bideshstudy/admission-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	VerifyOTP(w http.ResponseWriter, r *http.Request)
	ResendOTP(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	ForgotPassword(w http.ResponseWriter, r *http.Request)
	VerifyPasswordResetOTP(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

func countMetric(r *http.Request, counter func(*metrics.AppMetrics) metric.Int64Counter) {
	if m := metrics.Get(); m != nil {
		counter(m).Add(r.Context(), 1)
	}
}

// authError maps flow errors to HTTP responses. Unexpected errors become a
// generic 500 so storage details never leak to the caller.
func authError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error) {
	switch {
	case errors.Is(err, types.ErrConflict):
		api.ErrorResponse(w, r, http.StatusBadRequest, "User already exists with this email")
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, types.ErrAlreadyVerified):
		api.ErrorResponse(w, r, http.StatusBadRequest, "Email already verified")
	case errors.Is(err, types.ErrNoChallenge):
		api.ErrorResponse(w, r, http.StatusBadRequest, "No OTP pending for this account")
	case errors.Is(err, types.ErrInvalidOTP):
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid OTP")
	case errors.Is(err, types.ErrOTPExpired):
		api.ErrorResponse(w, r, http.StatusBadRequest, "OTP has expired. Please request a new one.")
	case errors.Is(err, types.ErrInvalidCredentials):
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, types.ErrEmailNotVerified):
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Please verify your email first")
	case errors.Is(err, types.ErrMailDelivery):
		if m := metrics.Get(); m != nil {
			m.MailSendErrorsTotal.Add(r.Context(), 1)
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to send OTP email")
	default:
		l.ErrorContext(r.Context(), "Unexpected auth flow error", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// Register godoc
// @Summary      Register Student
// @Description  Creates a pending account and emails a verification OTP.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body RegisterRequest true "Registration parameters"
// @Success      201 {object} types.Response "Registered, OTP sent"
// @Failure      400 {object} types.Response "Validation failed or duplicate email"
// @Failure      500 {object} types.Response "OTP delivery failed"
// @Router       /auth/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))
	defer countMetric(r, func(m *metrics.AppMetrics) metric.Int64Counter { return m.RegisterRequestsTotal })

	var req RegisterRequest
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

	if err := h.authService.Register(ctx, api.NormalizeEmail(req.Email), req.Password); err != nil {
		authError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, types.Response{
		Success: true,
		Message: "Registration successful. Please check your email for OTP verification.",
	})
}

// VerifyOTP godoc
// @Summary      Verify Email OTP
// @Description  Confirms the verification OTP; success returns a session token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body VerifyOTPRequest true "Email and OTP"
// @Success      200 {object} types.Response "Verified; token issued"
// @Failure      400 {object} types.Response "Invalid or expired OTP"
// @Failure      404 {object} types.Response "User not found"
// @Router       /auth/verify-otp [post]
func (h *HandlerImpl) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "VerifyOTP"))
	defer countMetric(r, func(m *metrics.AppMetrics) metric.Int64Counter { return m.OTPVerificationsTotal })

	var req VerifyOTPRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	var v api.ValidationErrors
	v = v.CheckEmail(req.Email)
	v = v.CheckOTP(req.OTP)
	if !v.OK() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Validation failed: "+v.Error())
		return
	}

	result, err := h.authService.VerifyOTP(ctx, api.NormalizeEmail(req.Email), req.OTP)
	if err != nil {
		authError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Email verified successfully",
		Data:    result,
	})
}

// ResendOTP godoc
// @Summary      Resend Verification OTP
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ResendOTPRequest true "Email"
// @Success      200 {object} types.Response "New OTP sent"
// @Failure      400 {object} types.Response "Already verified"
// @Failure      404 {object} types.Response "User not found"
// @Router       /auth/resend-otp [post]
func (h *HandlerImpl) ResendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ResendOTP"))
	defer countMetric(r, func(m *metrics.AppMetrics) metric.Int64Counter { return m.OTPResendsTotal })

	var req ResendOTPRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	var v api.ValidationErrors
	if v = v.CheckEmail(req.Email); !v.OK() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Validation failed: "+v.Error())
		return
	}

	if err := h.authService.ResendOTP(ctx, api.NormalizeEmail(req.Email)); err != nil {
		authError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "OTP has been resent to your email. Please check your inbox.",
	})
}

// Login godoc
// @Summary      Login
// @Description  Authenticates a verified user and returns a session token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Credentials"
// @Success      200 {object} types.Response "Token issued"
// @Failure      401 {object} types.Response "Invalid credentials or unverified email"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))
	defer countMetric(r, func(m *metrics.AppMetrics) metric.Int64Counter { return m.LoginRequestsTotal })

	var req LoginRequest
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

	result, err := h.authService.Login(ctx, api.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		authError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Login successful",
		Data:    result,
	})
}

// ForgotPassword godoc
// @Summary      Request Password Reset OTP
// @Description  Sends a reset OTP. The response is identical whether or not
// @Description  the address is registered.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ForgotPasswordRequest true "Email"
// @Success      200 {object} types.Response "Acknowledged"
// @Failure      400 {object} types.Response "Email not verified"
// @Router       /auth/forgot-password [post]
func (h *HandlerImpl) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ForgotPassword"))

	var req ForgotPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	var v api.ValidationErrors
	if v = v.CheckEmail(req.Email); !v.OK() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Validation failed: "+v.Error())
		return
	}

	err := h.authService.ForgotPassword(ctx, api.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, types.ErrEmailNotVerified) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Please verify your email first before resetting password")
			return
		}
		authError(w, r, l, err)
		return
	}

	// Same body for existing and unknown addresses.
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "If an account exists with this email, a password reset OTP has been sent.",
	})
}

// VerifyPasswordResetOTP godoc
// @Summary      Check Password Reset OTP
// @Description  Non-destructive check; the code remains valid for the final
// @Description  reset step.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body VerifyOTPRequest true "Email and OTP"
// @Success      200 {object} types.Response "OTP valid"
// @Failure      400 {object} types.Response "Invalid or expired OTP"
// @Failure      404 {object} types.Response "User not found"
// @Router       /auth/verify-password-reset-otp [post]
func (h *HandlerImpl) VerifyPasswordResetOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "VerifyPasswordResetOTP"))

	var req VerifyOTPRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	var v api.ValidationErrors
	v = v.CheckEmail(req.Email)
	v = v.CheckOTP(req.OTP)
	if !v.OK() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Validation failed: "+v.Error())
		return
	}

	if err := h.authService.VerifyPasswordResetOTP(ctx, api.NormalizeEmail(req.Email), req.OTP); err != nil {
		authError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "OTP verified successfully. You can now reset your password.",
	})
}

// ResetPassword godoc
// @Summary      Reset Password
// @Description  Re-validates the reset OTP and installs the new password.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ResetPasswordRequest true "Email, OTP, new password"
// @Success      200 {object} types.Response "Password reset"
// @Failure      400 {object} types.Response "Invalid or expired OTP"
// @Failure      404 {object} types.Response "User not found"
// @Router       /auth/reset-password [post]
func (h *HandlerImpl) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ResetPassword"))
	defer countMetric(r, func(m *metrics.AppMetrics) metric.Int64Counter { return m.PasswordResetsTotal })

	var req ResetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	var v api.ValidationErrors
	v = v.CheckEmail(req.Email)
	v = v.CheckOTP(req.OTP)
	v = v.CheckPassword("new password", req.NewPassword)
	if !v.OK() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Validation failed: "+v.Error())
		return
	}

	if err := h.authService.ResetPassword(ctx, api.NormalizeEmail(req.Email), req.OTP, req.NewPassword); err != nil {
		authError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Password has been reset successfully. You can now login with your new password.",
	})
}
