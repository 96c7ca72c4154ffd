package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bideshstudy/admission-api/internal/api/academic"
	"github.com/bideshstudy/admission-api/internal/api/admin"
	"github.com/bideshstudy/admission-api/internal/api/auth"
	"github.com/bideshstudy/admission-api/internal/api/profile"
	"github.com/bideshstudy/admission-api/internal/types"
)

// Config carries the handlers and middleware the router wires together.
// Server-wide middleware (request ID, logger, recoverer, rate limit) is
// applied before mounting this router in main.go.
type Config struct {
	AuthHandler     auth.Handler
	ProfileHandler  profile.Handler
	AcademicHandler academic.Handler
	AdminHandler    admin.Handler

	Authenticate func(http.Handler) http.Handler
	RequireRole  func(allowed ...types.Role) func(http.Handler) http.Handler

	AllowedOrigins []string
}

// SetupRouter builds the full /api/v1 route tree.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/verify-otp", cfg.AuthHandler.VerifyOTP)
			r.Post("/auth/resend-otp", cfg.AuthHandler.ResendOTP)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/forgot-password", cfg.AuthHandler.ForgotPassword)
			r.Post("/auth/verify-password-reset-otp", cfg.AuthHandler.VerifyPasswordResetOTP)
			r.Post("/auth/reset-password", cfg.AuthHandler.ResetPassword)

			r.Post("/admin/login", cfg.AdminHandler.AdminLogin)
		})

		// Routes for any authenticated account.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)

			r.Get("/profile", cfg.ProfileHandler.GetProfile)
			r.Put("/profile", cfg.ProfileHandler.UpdateProfile)
			r.Get("/profile/percentage", cfg.ProfileHandler.GetCompletionPercentage)

			r.Get("/academic", cfg.AcademicHandler.GetAcademicInfo)
			r.Post("/academic/upload", cfg.AcademicHandler.UploadCertificate)
			r.Delete("/academic/{certificateType}", cfg.AcademicHandler.DeleteCertificate)
		})

		// Admin panel: listing needs admin or super admin, provisioning a
		// new admin needs super admin.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)
			r.Use(cfg.RequireRole(types.RoleAdmin, types.RoleSuperAdmin))

			r.Get("/admin/students", cfg.AdminHandler.GetAllStudents)
			r.Get("/admin/students/{studentID}", cfg.AdminHandler.GetStudentByID)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)
			r.Use(cfg.RequireRole(types.RoleSuperAdmin))

			r.Post("/admin/create", cfg.AdminHandler.CreateAdmin)
		})
	})

	return r
}
