package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinova/clinic-scheduling/internal/scheduling"
)

// stubService records calls and returns canned results.
type stubService struct {
	listing    *scheduling.SlotListing
	appt       *scheduling.Appointment
	err        error
	lastBooked scheduling.BookingRequest
}

func (s *stubService) AvailableSlots(_ context.Context, _, _, _ uuid.UUID, _ time.Time) (*scheduling.SlotListing, error) {
	return s.listing, s.err
}

func (s *stubService) Book(_ context.Context, req scheduling.BookingRequest) (*scheduling.Appointment, error) {
	s.lastBooked = req
	return s.appt, s.err
}

func (s *stubService) Cancel(_ context.Context, _ uuid.UUID) (*scheduling.Appointment, error) {
	return s.appt, s.err
}

func (s *stubService) Complete(_ context.Context, _ uuid.UUID) (*scheduling.Appointment, error) {
	return s.appt, s.err
}

func (s *stubService) MarkNoShow(_ context.Context, _ uuid.UUID) (*scheduling.Appointment, error) {
	return s.appt, s.err
}

func (s *stubService) GetAppointment(_ context.Context, _ uuid.UUID) (*scheduling.Appointment, error) {
	return s.appt, s.err
}

func (s *stubService) ListAppointmentsByPatient(_ context.Context, _ uuid.UUID, _, _ int) ([]scheduling.Appointment, error) {
	if s.appt == nil {
		return nil, s.err
	}
	return []scheduling.Appointment{*s.appt}, s.err
}

func (s *stubService) ListAppointmentsByDoctor(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]scheduling.Appointment, error) {
	if s.appt == nil {
		return nil, s.err
	}
	return []scheduling.Appointment{*s.appt}, s.err
}

func (s *stubService) CreateAvailabilityWindow(_ context.Context, w scheduling.AvailabilityWindow) (*scheduling.AvailabilityWindow, error) {
	if s.err != nil {
		return nil, s.err
	}
	w.ID = uuid.New()
	return &w, nil
}

// newTestRouter wires only the scheduling routes so URL params resolve
// the same way they do in the full router.
func newTestRouter(svc SchedulingService) http.Handler {
	r := chi.NewRouter()
	r.Get("/available-slots", availableSlotsHandler(svc))
	r.Post("/appointments", bookAppointmentHandler(svc))
	r.Get("/appointments", listAppointmentsHandler(svc))
	r.Get("/appointments/{id}", getAppointmentHandler(svc))
	r.Delete("/appointments/{id}", cancelAppointmentHandler(svc))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(svc))
	r.Post("/appointments/{id}/no-show", markNoShowHandler(svc))
	r.Post("/availability", createWindowHandler(svc))
	return r
}

func sampleAppointment() *scheduling.Appointment {
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	return &scheduling.Appointment{
		ID:            uuid.New(),
		DoctorID:      uuid.New(),
		ClinicID:      uuid.New(),
		VisitTypeID:   uuid.New(),
		PatientID:     uuid.New(),
		ScheduledTime: start,
		EndTime:       start.Add(30 * time.Minute),
		Status:        scheduling.StatusScheduled,
	}
}

func TestAvailableSlotsHandler(t *testing.T) {
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local)
	svc := &stubService{
		listing: &scheduling.SlotListing{
			Doctor:    &scheduling.Doctor{Name: "Dr. Smith"},
			Clinic:    &scheduling.Clinic{Name: "Main Clinic"},
			VisitType: &scheduling.VisitType{Name: "Consultation"},
			Date:      date,
			Slots:     []time.Time{date.Add(9 * time.Hour), date.Add(9*time.Hour + 15*time.Minute)},
		},
	}

	url := "/available-slots?doctor_id=" + uuid.NewString() +
		"&clinic_id=" + uuid.NewString() +
		"&visit_type_id=" + uuid.NewString() +
		"&date=2025-03-03"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()

	availableSlotsHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AvailableSlotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Dr. Smith", resp.Doctor)
	assert.Equal(t, "2025-03-03", resp.Date)
	assert.Equal(t, []string{"09:00", "09:15"}, resp.AvailableSlots)
}

func TestAvailableSlotsHandlerRejectsBadDate(t *testing.T) {
	url := "/available-slots?doctor_id=" + uuid.NewString() +
		"&clinic_id=" + uuid.NewString() +
		"&visit_type_id=" + uuid.NewString() +
		"&date=03/03/2025"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()

	availableSlotsHandler(&stubService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_date")
}

func TestBookAppointmentHandler(t *testing.T) {
	appt := sampleAppointment()
	svc := &stubService{appt: appt}

	body := `{
		"doctor_id": "` + appt.DoctorID.String() + `",
		"clinic_id": "` + appt.ClinicID.String() + `",
		"visit_type_id": "` + appt.VisitTypeID.String() + `",
		"patient_id": "` + appt.PatientID.String() + `",
		"scheduled_time": "2025-03-03T10:00:00Z",
		"notes": "first visit"
	}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()

	bookAppointmentHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, appt.DoctorID, svc.lastBooked.DoctorID)
	assert.Equal(t, "first visit", svc.lastBooked.Notes)
	assert.True(t, svc.lastBooked.Start.Equal(appt.ScheduledTime))

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, appt.ID, resp.ID)
	assert.Equal(t, "scheduled", resp.Status)
}

func TestBookAppointmentHandlerConflict(t *testing.T) {
	svc := &stubService{err: scheduling.ErrSlotTaken}

	body := `{
		"doctor_id": "` + uuid.NewString() + `",
		"clinic_id": "` + uuid.NewString() + `",
		"visit_type_id": "` + uuid.NewString() + `",
		"patient_id": "` + uuid.NewString() + `",
		"scheduled_time": "2025-03-03T10:00:00Z"
	}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()

	bookAppointmentHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "slot_unavailable")
}

func TestBookAppointmentHandlerOutsideAvailability(t *testing.T) {
	svc := &stubService{err: scheduling.ErrOutsideAvailability}

	body := `{
		"doctor_id": "` + uuid.NewString() + `",
		"clinic_id": "` + uuid.NewString() + `",
		"visit_type_id": "` + uuid.NewString() + `",
		"patient_id": "` + uuid.NewString() + `",
		"scheduled_time": "2025-03-03T23:00:00Z"
	}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()

	bookAppointmentHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "outside_availability")
}

func TestBookAppointmentHandlerRejectsBadTimestamp(t *testing.T) {
	body := `{
		"doctor_id": "` + uuid.NewString() + `",
		"clinic_id": "` + uuid.NewString() + `",
		"visit_type_id": "` + uuid.NewString() + `",
		"patient_id": "` + uuid.NewString() + `",
		"scheduled_time": "next tuesday"
	}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()

	bookAppointmentHandler(&stubService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_scheduled_time")
}

func TestCancelViaRouter(t *testing.T) {
	appt := sampleAppointment()
	appt.Status = scheduling.StatusCancelled
	svc := &stubService{appt: appt}

	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/appointments/"+appt.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cancelled", resp.Status)
}

func TestGetAppointmentNotFound(t *testing.T) {
	svc := &stubService{err: scheduling.ErrAppointmentNotFound}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "appointment_not_found")
}

func TestMarkNoShowInvalidTransition(t *testing.T) {
	svc := &stubService{err: scheduling.ErrInvalidStatusTransition}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/appointments/"+uuid.NewString()+"/no-show", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_status_transition")
}

func TestListAppointmentsRequiresFilter(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_filter")
}

func TestCreateWindowHandlerValidation(t *testing.T) {
	body := `{
		"doctor_id": "` + uuid.NewString() + `",
		"clinic_id": "` + uuid.NewString() + `",
		"weekday": 9,
		"start_time": "09:00",
		"end_time": "12:00"
	}`
	req := httptest.NewRequest(http.MethodPost, "/availability", strings.NewReader(body))
	rec := httptest.NewRecorder()

	createWindowHandler(&stubService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_weekday")
}
