package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/clinic-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	seedCtx := context.Background()

	clinics, err := seedClinics(seedCtx, pool, 5)
	if err != nil {
		log.Fatalf("seed clinics: %v", err)
	}
	if err := seedVisitTypes(seedCtx, pool, clinics); err != nil {
		log.Fatalf("seed visit types: %v", err)
	}
	doctors, err := seedDoctors(seedCtx, pool, 25)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedAvailability(seedCtx, pool, doctors, clinics); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedPatients(seedCtx, pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clinics", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO clinics (id, name, address, phone, email, opens_at, closes_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		`, id, gofakeit.Company()+" Clinic", gofakeit.Address().Address, gofakeit.Phone(), gofakeit.Email(), 8*60, 18*60)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("clinics seeded")
	return ids, nil
}

func seedVisitTypes(ctx context.Context, pool *pgxpool.Pool, clinics []uuid.UUID) error {
	visitTypes := []struct {
		name     string
		duration int
	}{
		{"Consultation", 30},
		{"Follow-up", 15},
		{"Procedure", 60},
		{"Annual Physical", 45},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, clinicID := range clinics {
		for _, vt := range visitTypes {
			_, err := tx.Exec(ctx, `
				INSERT INTO visit_types (id, clinic_id, name, duration_minutes)
				VALUES ($1, $2, $3, $4)
			`, uuid.New(), clinicID, vt.name, vt.duration)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("visit types seeded")
	return nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		license := gofakeit.LetterN(3) + gofakeit.DigitN(6)

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialization, license_number, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, "Dr. "+gofakeit.Name(), spec, license)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

// seedAvailability gives each doctor weekday windows at one or two
// clinics, morning at one and afternoon at the other when doubled.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, doctors, clinics []uuid.UUID) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctors {
		primary := clinics[gofakeit.Number(0, len(clinics)-1)]
		secondary := clinics[gofakeit.Number(0, len(clinics)-1)]
		split := secondary != primary && gofakeit.Bool()

		for weekday := 1; weekday <= 5; weekday++ { // Monday through Friday
			if split {
				if err := insertWindow(ctx, tx, doctorID, primary, weekday, 9*60, 13*60); err != nil {
					return err
				}
				if err := insertWindow(ctx, tx, doctorID, secondary, weekday, 14*60, 18*60); err != nil {
					return err
				}
			} else {
				if err := insertWindow(ctx, tx, doctorID, primary, weekday, 9*60, 17*60); err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability windows seeded")
	return nil
}

func insertWindow(ctx context.Context, tx pgx.Tx, doctorID, clinicID uuid.UUID, weekday, starts, ends int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO availability_windows (id, doctor_id, clinic_id, weekday, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), doctorID, clinicID, weekday, starts, ends)
	return err
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			dob := gofakeit.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC),
			)
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, date_of_birth, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email(), gofakeit.Phone(), dob)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
