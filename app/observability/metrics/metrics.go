package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RegisterRequestsTotal   metric.Int64Counter
	LoginRequestsTotal      metric.Int64Counter
	OTPVerificationsTotal   metric.Int64Counter
	OTPResendsTotal         metric.Int64Counter
	PasswordResetsTotal     metric.Int64Counter
	MailSendErrorsTotal     metric.Int64Counter
	AuthFlowDurationSeconds metric.Float64Histogram
	UploadDurationSeconds   metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments exactly once,
// using the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("admission-api")
		var err error
		m := &AppMetrics{}

		m.RegisterRequestsTotal, err = meter.Int64Counter(
			"register_requests_total",
			metric.WithDescription("Total number of registration requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create register_requests_total: %v", err)
		}

		m.LoginRequestsTotal, err = meter.Int64Counter(
			"login_requests_total",
			metric.WithDescription("Total number of login requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_requests_total: %v", err)
		}

		m.OTPVerificationsTotal, err = meter.Int64Counter(
			"otp_verifications_total",
			metric.WithDescription("Total number of OTP verification attempts"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create otp_verifications_total: %v", err)
		}

		m.OTPResendsTotal, err = meter.Int64Counter(
			"otp_resends_total",
			metric.WithDescription("Total number of OTP resend requests"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create otp_resends_total: %v", err)
		}

		m.PasswordResetsTotal, err = meter.Int64Counter(
			"password_resets_total",
			metric.WithDescription("Total number of completed password resets"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create password_resets_total: %v", err)
		}

		m.MailSendErrorsTotal, err = meter.Int64Counter(
			"mail_send_errors_total",
			metric.WithDescription("Total number of failed OTP email deliveries"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create mail_send_errors_total: %v", err)
		}

		m.AuthFlowDurationSeconds, err = meter.Float64Histogram(
			"auth_flow_duration_seconds",
			metric.WithDescription("Duration of auth flow operations in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_flow_duration_seconds: %v", err)
		}

		m.UploadDurationSeconds, err = meter.Float64Histogram(
			"upload_duration_seconds",
			metric.WithDescription("Duration of certificate/image uploads in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create upload_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the initialized metrics, or nil when InitAppMetrics has not run.
func Get() *AppMetrics {
	return appMetrics
}
