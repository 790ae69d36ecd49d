package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinova/clinic-scheduling/internal/scheduling"
)

type BookAppointmentRequest struct {
	DoctorID      string `json:"doctor_id"`
	ClinicID      string `json:"clinic_id"`
	VisitTypeID   string `json:"visit_type_id"`
	PatientID     string `json:"patient_id"`
	ScheduledTime string `json:"scheduled_time"`
	Notes         string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID            uuid.UUID `json:"id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	ClinicID      uuid.UUID `json:"clinic_id"`
	VisitTypeID   uuid.UUID `json:"visit_type_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		DoctorID:      a.DoctorID,
		ClinicID:      a.ClinicID,
		VisitTypeID:   a.VisitTypeID,
		PatientID:     a.PatientID,
		ScheduledTime: a.ScheduledTime,
		EndTime:       a.EndTime,
		Status:        string(a.Status),
		Notes:         a.Notes,
	}
}

type AvailableSlotsResponse struct {
	Doctor         string   `json:"doctor"`
	Clinic         string   `json:"clinic"`
	VisitType      string   `json:"visit_type"`
	Date           string   `json:"date"`
	AvailableSlots []string `json:"available_slots"`
}

type CreateWindowRequest struct {
	DoctorID  string `json:"doctor_id"`
	ClinicID  string `json:"clinic_id"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type WindowResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	ClinicID  uuid.UUID `json:"clinic_id"`
	Weekday   int       `json:"weekday"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

func toWindowResponse(w *scheduling.AvailabilityWindow) WindowResponse {
	return WindowResponse{
		ID:        w.ID,
		DoctorID:  w.DoctorID,
		ClinicID:  w.ClinicID,
		Weekday:   int(w.Weekday),
		StartTime: w.StartsAt.String(),
		EndTime:   w.EndsAt.String(),
	}
}

type CreateClinicRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	OpensAt  string `json:"opens_at"`
	ClosesAt string `json:"closes_at"`
}

type ClinicResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	OpensAt  string    `json:"opens_at"`
	ClosesAt string    `json:"closes_at"`
}

func toClinicResponse(c *scheduling.Clinic) ClinicResponse {
	return ClinicResponse{
		ID:       c.ID,
		Name:     c.Name,
		Address:  c.Address,
		Phone:    c.Phone,
		Email:    c.Email,
		OpensAt:  c.OpensAt.String(),
		ClosesAt: c.ClosesAt.String(),
	}
}

type CreateDoctorRequest struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"license_number"`
}

type DoctorResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	LicenseNumber  string    `json:"license_number"`
}

type CreatePatientRequest struct {
	Name        string  `json:"name"`
	Email       *string `json:"email,omitempty"`
	Phone       string  `json:"phone"`
	DateOfBirth string  `json:"date_of_birth"`
}

type PatientResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
	Phone string    `json:"phone"`
}

type CreateVisitTypeRequest struct {
	ClinicID        string `json:"clinic_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

type VisitTypeResponse struct {
	ID              uuid.UUID `json:"id"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
