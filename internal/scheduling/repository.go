package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClinicNotFound      = errors.New("clinic not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrVisitTypeNotFound   = errors.New("visit type not found")
	ErrWindowNotFound      = errors.New("availability window not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is the ledger's conflict outcome: the requested
	// interval overlaps a scheduled appointment for the same doctor.
	ErrSlotTaken = errors.New("requested time overlaps an existing appointment")

	ErrInvalidWindow = errors.New("window start must be before window end")
)

// Directory resolves the administrative entities the scheduling core
// reads but does not own. Writes here carry no scheduling logic.
type Directory interface {
	GetClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetVisitTypeByID(ctx context.Context, id uuid.UUID) (*VisitType, error)

	ListClinics(ctx context.Context) ([]Clinic, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	ListPatients(ctx context.Context, limit, offset int) ([]Patient, error)
	ListVisitTypes(ctx context.Context, clinicID uuid.UUID) ([]VisitType, error)

	CreateClinic(ctx context.Context, c Clinic) (*Clinic, error)
	CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error)
	CreatePatient(ctx context.Context, p Patient) (*Patient, error)
	CreateVisitType(ctx context.Context, v VisitType) (*VisitType, error)
}

// AvailabilityStore holds the weekly recurring open intervals per
// (doctor, clinic). Read path of the slot calculator.
type AvailabilityStore interface {
	// WindowsFor returns the doctor's windows at the clinic on the given
	// weekday, ordered by start time. No availability is an empty slice,
	// not an error.
	WindowsFor(ctx context.Context, doctorID, clinicID uuid.UUID, weekday time.Weekday) ([]AvailabilityWindow, error)

	ListWindowsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityWindow, error)
	CreateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, id uuid.UUID) error
}

// AppointmentLedger is the single source of truth for occupancy and the
// serialization point for conflicting writes.
type AppointmentLedger interface {
	// OccupiedIntervals returns the [start, end) intervals of all
	// scheduled appointments for the doctor at the clinic on the given
	// date, ordered by start.
	OccupiedIntervals(ctx context.Context, doctorID, clinicID uuid.UUID, date time.Time) ([]Interval, error)

	// HasOverlap reports whether any scheduled appointment for the
	// doctor, at any clinic, intersects [start, end).
	HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (bool, error)

	// Commit re-checks the overlap and inserts in one transaction,
	// returning ErrSlotTaken on conflict. Callers serialize commits per
	// doctor; Commit itself never trusts an earlier read.
	Commit(ctx context.Context, draft AppointmentDraft) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateAppointmentStatus transitions status only when the current
	// status matches from, returning ErrAppointmentNotFound otherwise.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// FindFinishedScheduled returns scheduled appointments whose end
	// time has passed, for the sweep worker.
	FindFinishedScheduled(ctx context.Context, now time.Time) ([]Appointment, error)

	// InsertEvent appends one audit record. Callers treat failures as
	// non-fatal.
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Directory
	AvailabilityStore
	AppointmentLedger
}
