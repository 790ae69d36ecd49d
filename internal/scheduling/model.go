package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

type Clinic struct {
	ID        uuid.UUID
	Name      string
	Address   string
	Phone     string
	Email     string
	OpensAt   MinuteOfDay
	ClosesAt  MinuteOfDay
	CreatedAt time.Time
}

type Doctor struct {
	ID             uuid.UUID
	Name           string
	Specialization string
	LicenseNumber  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Patient struct {
	ID          uuid.UUID
	Name        string
	Email       *string
	Phone       string
	DateOfBirth time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VisitType duration is immutable once an appointment references it:
// appointment end times are persisted at creation and never recomputed.
type VisitType struct {
	ID              uuid.UUID
	ClinicID        uuid.UUID
	Name            string
	DurationMinutes int
}

func (v VisitType) Duration() time.Duration {
	return time.Duration(v.DurationMinutes) * time.Minute
}

// MinuteOfDay is a wall-clock time with no date attached, stored as
// minutes since midnight. 540 is 09:00, 1439 is 23:59.
type MinuteOfDay int

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// On anchors the wall-clock minute to the given calendar date.
func (m MinuteOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(m)/60, int(m)%60, 0, 0, date.Location())
}

// ParseMinuteOfDay parses "HH:MM" in 24-hour form.
func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return MinuteOfDay(t.Hour()*60 + t.Minute()), nil
}

// AvailabilityWindow is one recurring open interval for a (doctor, clinic)
// pair on a fixed weekday. A doctor may hold independent windows at
// multiple clinics.
type AvailabilityWindow struct {
	ID       uuid.UUID
	DoctorID uuid.UUID
	ClinicID uuid.UUID
	Weekday  time.Weekday
	StartsAt MinuteOfDay
	EndsAt   MinuteOfDay
}

// Contains reports whether the whole interval fits inside the window on
// the interval's own date.
func (w AvailabilityWindow) Contains(iv Interval) bool {
	start := w.StartsAt.On(iv.Start)
	end := w.EndsAt.On(iv.Start)
	return !iv.Start.Before(start) && !iv.End.After(end)
}

type Appointment struct {
	ID            uuid.UUID
	DoctorID      uuid.UUID
	ClinicID      uuid.UUID
	VisitTypeID   uuid.UUID
	PatientID     uuid.UUID
	ScheduledTime time.Time
	EndTime       time.Time
	Status        AppointmentStatus
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a Appointment) Interval() Interval {
	return Interval{Start: a.ScheduledTime, End: a.EndTime}
}

// EventLog is one append-only audit record. Payload is raw JSON.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// AppointmentDraft carries everything the ledger needs to commit a new
// appointment. End is derived from the visit type duration before the
// draft reaches the ledger.
type AppointmentDraft struct {
	DoctorID    uuid.UUID
	ClinicID    uuid.UUID
	VisitTypeID uuid.UUID
	PatientID   uuid.UUID
	Start       time.Time
	End         time.Time
	Notes       string
}
