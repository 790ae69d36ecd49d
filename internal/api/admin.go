package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clinova/clinic-scheduling/internal/scheduling"
)

// Thin administrative data-access handlers. No scheduling logic lives
// here; anything touching slots or bookings goes through the service.

func listClinicsHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinics, err := repo.ListClinics(r.Context())
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		out := make([]ClinicResponse, 0, len(clinics))
		for i := range clinics {
			out = append(out, toClinicResponse(&clinics[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getClinicHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		clinic, err := repo.GetClinicByID(r.Context(), id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toClinicResponse(clinic))
	}
}

func createClinicHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateClinicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "missing_name", "name is required")
			return
		}
		opens, err := scheduling.ParseMinuteOfDay(req.OpensAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_opens_at", "opens_at must be formatted HH:MM")
			return
		}
		closes, err := scheduling.ParseMinuteOfDay(req.ClosesAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_closes_at", "closes_at must be formatted HH:MM")
			return
		}

		clinic, err := repo.CreateClinic(r.Context(), scheduling.Clinic{
			Name:     req.Name,
			Address:  req.Address,
			Phone:    req.Phone,
			Email:    req.Email,
			OpensAt:  opens,
			ClosesAt: closes,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toClinicResponse(clinic))
	}
}

func listDoctorsHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := repo.ListDoctors(r.Context())
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		out := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			out = append(out, DoctorResponse{
				ID:             d.ID,
				Name:           d.Name,
				Specialization: d.Specialization,
				LicenseNumber:  d.LicenseNumber,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createDoctorHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" || req.LicenseNumber == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "name and license_number are required")
			return
		}

		doctor, err := repo.CreateDoctor(r.Context(), scheduling.Doctor{
			Name:           req.Name,
			Specialization: req.Specialization,
			LicenseNumber:  req.LicenseNumber,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, DoctorResponse{
			ID:             doctor.ID,
			Name:           doctor.Name,
			Specialization: doctor.Specialization,
			LicenseNumber:  doctor.LicenseNumber,
		})
	}
}

func listPatientsHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := intParam(q.Get("limit"))
		if limit <= 0 || limit > 100 {
			limit = 50
		}
		patients, err := repo.ListPatients(r.Context(), limit, intParam(q.Get("offset")))
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		out := make([]PatientResponse, 0, len(patients))
		for _, p := range patients {
			out = append(out, PatientResponse{
				ID:    p.ID,
				Name:  p.Name,
				Email: p.Email,
				Phone: p.Phone,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createPatientHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "missing_name", "name is required")
			return
		}
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date_of_birth", "date_of_birth must be formatted YYYY-MM-DD")
			return
		}

		patient, err := repo.CreatePatient(r.Context(), scheduling.Patient{
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			DateOfBirth: dob,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, PatientResponse{
			ID:    patient.ID,
			Name:  patient.Name,
			Email: patient.Email,
			Phone: patient.Phone,
		})
	}
}

func listVisitTypesHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(r.URL.Query().Get("clinic_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}
		visitTypes, err := repo.ListVisitTypes(r.Context(), clinicID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		out := make([]VisitTypeResponse, 0, len(visitTypes))
		for _, v := range visitTypes {
			out = append(out, VisitTypeResponse{
				ID:              v.ID,
				ClinicID:        v.ClinicID,
				Name:            v.Name,
				DurationMinutes: v.DurationMinutes,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createVisitTypeHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateVisitTypeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}
		if req.DurationMinutes < 15 || req.DurationMinutes > 480 {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration_minutes must be between 15 and 480")
			return
		}

		visitType, err := repo.CreateVisitType(r.Context(), scheduling.VisitType{
			ClinicID:        clinicID,
			Name:            req.Name,
			DurationMinutes: req.DurationMinutes,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, VisitTypeResponse{
			ID:              visitType.ID,
			ClinicID:        visitType.ClinicID,
			Name:            visitType.Name,
			DurationMinutes: visitType.DurationMinutes,
		})
	}
}

func listWindowsHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		windows, err := repo.ListWindowsForDoctor(r.Context(), doctorID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		out := make([]WindowResponse, 0, len(windows))
		for i := range windows {
			out = append(out, toWindowResponse(&windows[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteWindowHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		if err := repo.DeleteWindow(r.Context(), id); err != nil {
			handleSchedulingError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
