package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinova/clinic-scheduling/internal/redis"
	"github.com/clinova/clinic-scheduling/pkg/logging"
)

var (
	// ErrOutsideAvailability is a validation failure: the requested
	// interval does not fit inside any availability window for the
	// doctor at the clinic on that weekday.
	ErrOutsideAvailability = errors.New("requested time is outside the doctor's availability")

	// ErrDoctorBusy means the per-doctor commit lock could not be
	// acquired. The caller retries; the service never does.
	ErrDoctorBusy = errors.New("another booking for this doctor is in progress, please retry")

	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
	EventAppointmentSwept     = "APPOINTMENT_SWEPT"
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	slots  *SlotCalculator
	logger *logging.Logger
}

func NewService(repo Repository, locker redisclient.Locker, slots *SlotCalculator, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		locker: locker,
		slots:  slots,
		logger: logger,
	}
}

// SlotListing is the slot query result, with display names resolved so
// the transport layer does not go back to the directory.
type SlotListing struct {
	Doctor    *Doctor
	Clinic    *Clinic
	VisitType *VisitType
	Date      time.Time
	Slots     []time.Time
}

// AvailableSlots resolves the visit type duration and lists bookable
// start times for the doctor at the clinic on the given date.
func (s *Service) AvailableSlots(ctx context.Context, doctorID, clinicID, visitTypeID uuid.UUID, date time.Time) (*SlotListing, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	clinic, err := s.repo.GetClinicByID(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("load clinic: %w", err)
	}
	visitType, err := s.repo.GetVisitTypeByID(ctx, visitTypeID)
	if err != nil {
		return nil, fmt.Errorf("load visit type: %w", err)
	}

	slots, err := s.slots.AvailableSlots(ctx, doctorID, clinicID, visitType.Duration(), date)
	if err != nil {
		return nil, err
	}

	return &SlotListing{
		Doctor:    doctor,
		Clinic:    clinic,
		VisitType: visitType,
		Date:      date,
		Slots:     slots,
	}, nil
}

type BookingRequest struct {
	DoctorID    uuid.UUID
	ClinicID    uuid.UUID
	VisitTypeID uuid.UUID
	PatientID   uuid.UUID
	Start       time.Time
	Notes       string
}

// Book validates the requested start against the doctor's availability,
// then commits under the per-doctor lock. An earlier AvailableSlots
// result is never taken as proof the slot is still free: the ledger
// commit re-checks the overlap inside the critical section.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetDoctorByID(ctx, req.DoctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if _, err := s.repo.GetClinicByID(ctx, req.ClinicID); err != nil {
		return nil, fmt.Errorf("load clinic: %w", err)
	}
	visitType, err := s.repo.GetVisitTypeByID(ctx, req.VisitTypeID)
	if err != nil {
		return nil, fmt.Errorf("load visit type: %w", err)
	}

	interval := Interval{Start: req.Start, End: req.Start.Add(visitType.Duration())}

	windows, err := s.repo.WindowsFor(ctx, req.DoctorID, req.ClinicID, req.Start.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load availability windows: %w", err)
	}
	if !anyWindowContains(windows, interval) {
		return nil, ErrOutsideAvailability
	}

	// Advisory fast-fail before taking the lock. The authoritative
	// check happens again inside Commit.
	taken, err := s.repo.HasOverlap(ctx, req.DoctorID, interval.Start, interval.End)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if taken {
		return nil, ErrSlotTaken
	}

	draft := AppointmentDraft{
		DoctorID:    req.DoctorID,
		ClinicID:    req.ClinicID,
		VisitTypeID: req.VisitTypeID,
		PatientID:   req.PatientID,
		Start:       interval.Start,
		End:         interval.End,
		Notes:       req.Notes,
	}

	var created *Appointment
	err = s.locker.WithDoctorLock(ctx, req.DoctorID, func(lockCtx context.Context) error {
		appt, err := s.repo.Commit(lockCtx, draft)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDoctorBusy
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"doctor_id", req.DoctorID,
		"clinic_id", req.ClinicID,
		"start", created.ScheduledTime,
		"end", created.EndTime,
	)
	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"doctor_id": req.DoctorID,
		"clinic_id": req.ClinicID,
		"start":     created.ScheduledTime,
		"end":       created.EndTime,
	})

	return created, nil
}

func anyWindowContains(windows []AvailabilityWindow, iv Interval) bool {
	for _, w := range windows {
		if w.Contains(iv) {
			return true
		}
	}
	return false
}

// Cancel transitions the appointment to cancelled. Cancelling an
// already cancelled appointment is a no-op success, and completed
// appointments may still be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race against another status change; re-read and
			// treat an already cancelled appointment as success.
			current, getErr := s.repo.GetAppointmentByID(ctx, id)
			if getErr == nil && current.Status == StatusCancelled {
				return current, nil
			}
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logger.Info("appointment cancelled", "appointment_id", id, "doctor_id", updated.DoctorID)
	s.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{
		"previous_status": string(appt.Status),
	})
	return updated, nil
}

// Complete marks a scheduled appointment as completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transitionFromScheduled(ctx, id, StatusCompleted)
}

// MarkNoShow marks a scheduled appointment as a no-show.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transitionFromScheduled(ctx, id, StatusNoShow)
}

func (s *Service) transitionFromScheduled(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusScheduled, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	eventType := EventAppointmentCompleted
	if to == StatusNoShow {
		eventType = EventAppointmentNoShow
	}
	s.logEvent(ctx, id, eventType, map[string]any{})

	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	appointments, err := s.repo.ListAppointmentsByDoctor(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appointments, nil
}

// CreateAvailabilityWindow validates and stores a recurring window.
// Overlap between windows of the same doctor/clinic/day is an
// administrative data-entry concern, not enforced here.
func (s *Service) CreateAvailabilityWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	if w.StartsAt >= w.EndsAt {
		return nil, ErrInvalidWindow
	}
	if _, err := s.repo.GetDoctorByID(ctx, w.DoctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if _, err := s.repo.GetClinicByID(ctx, w.ClinicID); err != nil {
		return nil, fmt.Errorf("load clinic: %w", err)
	}

	created, err := s.repo.CreateWindow(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("create availability window: %w", err)
	}
	return created, nil
}

// SweepFinished marks scheduled appointments whose end time has passed
// as completed. Intended to be called by the sweep worker periodically.
func (s *Service) SweepFinished(ctx context.Context) (int, error) {
	now := time.Now()
	finished, err := s.repo.FindFinishedScheduled(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find finished appointments: %w", err)
	}

	swept := 0
	for _, appt := range finished {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCompleted)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			s.logger.Error("failed to complete finished appointment", "appointment_id", appt.ID, "error", err)
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentSwept, map[string]any{
			"end_time": appt.EndTime,
		})
		swept++
	}

	return swept, nil
}

// logEvent appends an audit record. Event failures never fail the
// operation that produced them.
func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal event payload", "event_type", eventType, "error", err)
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &appointmentID,
		Payload:       data,
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error("failed to insert event log", "event_type", eventType, "error", err)
	}
}
