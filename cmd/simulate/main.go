package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/clinic-scheduling/internal/db"
)

// simulate hammers the booking endpoint with workers racing for a
// deliberately small pool of slots, then verifies the no-overlap
// invariant directly against the database. Conflicts are the expected
// outcome for most requests; overlapping successes are a failure.

type simConfig struct {
	apiBaseURL  string
	postgresDSN string
	workers     int
	duration    time.Duration
	slotPool    int
}

type target struct {
	DoctorID    uuid.UUID
	ClinicID    uuid.UUID
	VisitTypeID uuid.UUID
	Start       time.Time
}

type metrics struct {
	total     int64
	success   int64
	conflict  int64
	rejected  int64
	errored   int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.conflict, 1)
	case status >= 400 && status < 500:
		atomic.AddInt64(&m.rejected, 1)
	default:
		atomic.AddInt64(&m.errored, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *metrics) percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags)

	cfg := simConfig{
		apiBaseURL:  envOr("API_BASE_URL", "http://127.0.0.1:8080"),
		postgresDSN: os.Getenv("POSTGRES_DSN"),
		workers:     envIntOr("SIM_WORKERS", 16),
		duration:    time.Duration(envIntOr("SIM_DURATION_SECONDS", 30)) * time.Second,
		slotPool:    envIntOr("SIM_SLOT_POOL", 40),
	}
	if cfg.postgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.postgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	targets, patients, err := loadPool(context.Background(), pool, cfg.slotPool)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded %d booking targets and %d patients", len(targets), len(patients))

	var m metrics
	runCtx, stopRun := context.WithTimeout(context.Background(), cfg.duration)
	defer stopRun()

	var wg sync.WaitGroup
	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			client := &http.Client{Timeout: 10 * time.Second}
			for runCtx.Err() == nil {
				t := targets[rng.Intn(len(targets))]
				p := patients[rng.Intn(len(patients))]
				attemptBooking(runCtx, client, cfg.apiBaseURL, t, p, &m)
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	fmt.Printf("\n=== booking simulation ===\n")
	fmt.Printf("total:     %d\n", atomic.LoadInt64(&m.total))
	fmt.Printf("created:   %d\n", atomic.LoadInt64(&m.success))
	fmt.Printf("conflicts: %d\n", atomic.LoadInt64(&m.conflict))
	fmt.Printf("rejected:  %d\n", atomic.LoadInt64(&m.rejected))
	fmt.Printf("errors:    %d\n", atomic.LoadInt64(&m.errored))
	fmt.Printf("p50: %s  p95: %s  p99: %s\n", m.percentile(0.50), m.percentile(0.95), m.percentile(0.99))

	overlaps, err := countOverlaps(context.Background(), pool)
	if err != nil {
		log.Fatalf("verify overlaps: %v", err)
	}
	if overlaps > 0 {
		log.Fatalf("INVARIANT VIOLATED: %d overlapping scheduled appointment pairs", overlaps)
	}
	fmt.Println("no-overlap invariant holds: 0 overlapping scheduled pairs")
}

// loadPool picks doctors with availability and builds a small set of
// concrete slot targets on the next occurrence of their weekday.
func loadPool(ctx context.Context, pool *pgxpool.Pool, slotPool int) ([]target, []uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT w.doctor_id, w.clinic_id, vt.id, w.weekday, w.starts_at
		FROM availability_windows w
		JOIN visit_types vt ON vt.clinic_id = w.clinic_id
		LIMIT $1
	`, slotPool)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var targets []target
	for rows.Next() {
		var t target
		var weekday, startsAt int
		if err := rows.Scan(&t.DoctorID, &t.ClinicID, &t.VisitTypeID, &weekday, &startsAt); err != nil {
			return nil, nil, err
		}
		t.Start = nextWeekday(time.Now(), time.Weekday(weekday)).Add(time.Duration(startsAt) * time.Minute)
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("no availability windows found, run the seed tool first")
	}

	prows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT 200`)
	if err != nil {
		return nil, nil, err
	}
	defer prows.Close()

	var patients []uuid.UUID
	for prows.Next() {
		var id uuid.UUID
		if err := prows.Scan(&id); err != nil {
			return nil, nil, err
		}
		patients = append(patients, id)
	}
	if err := prows.Err(); err != nil {
		return nil, nil, err
	}
	if len(patients) == 0 {
		return nil, nil, fmt.Errorf("no patients found, run the seed tool first")
	}

	return targets, patients, nil
}

func nextWeekday(from time.Time, weekday time.Weekday) time.Time {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	offset := (int(weekday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}

func attemptBooking(ctx context.Context, client *http.Client, baseURL string, t target, patientID uuid.UUID, m *metrics) {
	body, _ := json.Marshal(map[string]string{
		"doctor_id":      t.DoctorID.String(),
		"clinic_id":      t.ClinicID.String(),
		"visit_type_id":  t.VisitTypeID.String(),
		"patient_id":     patientID.String(),
		"scheduled_time": t.Start.Format(time.RFC3339),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			m.record(time.Since(start), http.StatusInternalServerError)
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	m.record(time.Since(start), resp.StatusCode)
}

func countOverlaps(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.doctor_id = b.doctor_id
		 AND a.id < b.id
		 AND a.status = 'scheduled'
		 AND b.status = 'scheduled'
		 AND a.scheduled_time < b.end_time
		 AND b.scheduled_time < a.end_time
	`).Scan(&n)
	return n, err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
