package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository. Commit performs its
// check-then-insert atomically under the repo mutex, mirroring the
// transactional behavior of the Postgres implementation.
type fakeRepo struct {
	mu           sync.Mutex
	clinics      map[uuid.UUID]Clinic
	doctors      map[uuid.UUID]Doctor
	patients     map[uuid.UUID]Patient
	visitTypes   map[uuid.UUID]VisitType
	windows      map[uuid.UUID]AvailabilityWindow
	appointments map[uuid.UUID]Appointment
	events       []EventLog
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		clinics:      make(map[uuid.UUID]Clinic),
		doctors:      make(map[uuid.UUID]Doctor),
		patients:     make(map[uuid.UUID]Patient),
		visitTypes:   make(map[uuid.UUID]VisitType),
		windows:      make(map[uuid.UUID]AvailabilityWindow),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

// Directory

func (r *fakeRepo) GetClinicByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clinics[id]
	if !ok {
		return nil, ErrClinicNotFound
	}
	return &c, nil
}

func (r *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *fakeRepo) GetVisitTypeByID(_ context.Context, id uuid.UUID) (*VisitType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visitTypes[id]
	if !ok {
		return nil, ErrVisitTypeNotFound
	}
	return &v, nil
}

func (r *fakeRepo) ListClinics(_ context.Context) ([]Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Clinic, 0, len(r.clinics))
	for _, c := range r.clinics {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) ListDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeRepo) ListPatients(_ context.Context, limit, offset int) ([]Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) ListVisitTypes(_ context.Context, clinicID uuid.UUID) ([]VisitType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []VisitType
	for _, v := range r.visitTypes {
		if v.ClinicID == clinicID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateClinic(_ context.Context, c Clinic) (*Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	r.clinics[c.ID] = c
	return &c, nil
}

func (r *fakeRepo) CreateDoctor(_ context.Context, d Doctor) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = uuid.New()
	r.doctors[d.ID] = d
	return &d, nil
}

func (r *fakeRepo) CreatePatient(_ context.Context, p Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	r.patients[p.ID] = p
	return &p, nil
}

func (r *fakeRepo) CreateVisitType(_ context.Context, v VisitType) (*VisitType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = uuid.New()
	r.visitTypes[v.ID] = v
	return &v, nil
}

// AvailabilityStore

func (r *fakeRepo) WindowsFor(_ context.Context, doctorID, clinicID uuid.UUID, weekday time.Weekday) ([]AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AvailabilityWindow
	for _, w := range r.windows {
		if w.DoctorID == doctorID && w.ClinicID == clinicID && w.Weekday == weekday {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt < out[j].StartsAt })
	return out, nil
}

func (r *fakeRepo) ListWindowsForDoctor(_ context.Context, doctorID uuid.UUID) ([]AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AvailabilityWindow
	for _, w := range r.windows {
		if w.DoctorID == doctorID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateWindow(_ context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = uuid.New()
	r.windows[w.ID] = w
	return &w, nil
}

func (r *fakeRepo) DeleteWindow(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.windows[id]; !ok {
		return ErrWindowNotFound
	}
	delete(r.windows, id)
	return nil
}

// AppointmentLedger

func (r *fakeRepo) OccupiedIntervals(_ context.Context, doctorID, clinicID uuid.UUID, date time.Time) ([]Interval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var out []Interval
	for _, a := range r.appointments {
		if a.DoctorID != doctorID || a.ClinicID != clinicID || a.Status != StatusScheduled {
			continue
		}
		if a.ScheduledTime.Before(dayStart) || !a.ScheduledTime.Before(dayEnd) {
			continue
		}
		out = append(out, a.Interval())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *fakeRepo) HasOverlap(_ context.Context, doctorID uuid.UUID, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasOverlapLocked(doctorID, start, end), nil
}

func (r *fakeRepo) hasOverlapLocked(doctorID uuid.UUID, start, end time.Time) bool {
	iv := Interval{Start: start, End: end}
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Status == StatusScheduled && iv.Overlaps(a.Interval()) {
			return true
		}
	}
	return false
}

func (r *fakeRepo) Commit(_ context.Context, draft AppointmentDraft) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasOverlapLocked(draft.DoctorID, draft.Start, draft.End) {
		return nil, ErrSlotTaken
	}

	now := time.Now()
	appt := Appointment{
		ID:            uuid.New(),
		DoctorID:      draft.DoctorID,
		ClinicID:      draft.ClinicID,
		VisitTypeID:   draft.VisitTypeID,
		PatientID:     draft.PatientID,
		ScheduledTime: draft.Start,
		EndTime:       draft.End,
		Status:        StatusScheduled,
		Notes:         draft.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.appointments[appt.ID] = appt
	return &appt, nil
}

func (r *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *fakeRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *fakeRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.After(out[j].ScheduledTime) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && !a.ScheduledTime.Before(from) && a.ScheduledTime.Before(to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	return out, nil
}

func (r *fakeRepo) FindFinishedScheduled(_ context.Context, now time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.Status == StatusScheduled && a.EndTime.Before(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *fakeRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

// mutexLocker is an in-process stand-in for the Redis doctor lock.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *mutexLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[doctorID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[doctorID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}
