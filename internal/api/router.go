package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinova/clinic-scheduling/internal/scheduling"
	"github.com/clinova/clinic-scheduling/pkg/logging"
)

type RouterConfig struct {
	Service SchedulingService
	Repo    scheduling.Repository
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  *logging.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Scheduling core
	r.Get("/available-slots", availableSlotsHandler(cfg.Service))
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/no-show", markNoShowHandler(cfg.Service))

	// Availability administration
	r.Get("/availability", listWindowsHandler(cfg.Repo))
	r.Post("/availability", createWindowHandler(cfg.Service))
	r.Delete("/availability/{id}", deleteWindowHandler(cfg.Repo))

	// Directory administration, no scheduling logic
	r.Get("/clinics", listClinicsHandler(cfg.Repo))
	r.Post("/clinics", createClinicHandler(cfg.Repo))
	r.Get("/clinics/{id}", getClinicHandler(cfg.Repo))
	r.Get("/doctors", listDoctorsHandler(cfg.Repo))
	r.Post("/doctors", createDoctorHandler(cfg.Repo))
	r.Get("/patients", listPatientsHandler(cfg.Repo))
	r.Post("/patients", createPatientHandler(cfg.Repo))
	r.Get("/visit-types", listVisitTypesHandler(cfg.Repo))
	r.Post("/visit-types", createVisitTypeHandler(cfg.Repo))

	return r
}
