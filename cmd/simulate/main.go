package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

	"github.com/carebridge/appointment-scheduling/internal/db"
)

// The simulator hammers the booking endpoint with many workers aimed at a
// deliberately small set of slots, then verifies that no slot ever produced
// more than one successful booking.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	PatientLimit int
	TargetSlots  int
	PostgresDSN  string
}

type slotTarget struct {
	ProviderID uuid.UUID
	StartAt    time.Time
}

type Metrics struct {
	Total     int64
	Booked    int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Booked, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	patients, err := loadPatients(ctx, pgPool, cfg.PatientLimit)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}

	targets, err := loadTargets(ctx, pgPool, cfg.TargetSlots)
	if err != nil {
		log.Fatalf("load slot targets: %v", err)
	}

	log.Printf("loaded: %d patients, %d slot targets", len(patients), len(targets))
	if len(patients) == 0 || len(targets) == 0 {
		log.Fatal("nothing to simulate; run the seed command first")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var metrics Metrics

	runCtx, stopRun := context.WithTimeout(context.Background(), cfg.Duration)
	defer stopRun()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for runCtx.Err() == nil {
				patient := patients[rng.Intn(len(patients))]
				target := targets[rng.Intn(len(targets))]

				start := time.Now()
				status := bookOnce(runCtx, client, cfg.APIBaseURL, patient, target)
				if status == 0 {
					continue
				}
				metrics.Record(time.Since(start), status)
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	winners, err := countWinners(context.Background(), pgPool, targets)
	if err != nil {
		log.Fatalf("count winners: %v", err)
	}

	log.Printf("requests=%d booked=%d conflict=%d error=%d p50=%s p95=%s",
		metrics.Total, metrics.Booked, metrics.Conflict, metrics.Error,
		metrics.Percentile(50), metrics.Percentile(95))

	violations := 0
	for key, n := range winners {
		if n > 1 {
			violations++
			log.Printf("DOUBLE BOOKING at %s: %d booked appointments", key, n)
		}
	}
	if violations == 0 {
		log.Println("invariant held: at most one booked appointment per slot")
	} else {
		log.Fatalf("invariant violated on %d slots", violations)
	}
}

func bookOnce(ctx context.Context, client *http.Client, baseURL string, patient uuid.UUID, target slotTarget) int {
	payload, _ := json.Marshal(map[string]string{
		"patient_id":  patient.String(),
		"provider_id": target.ProviderID.String(),
		"start_at":    target.StartAt.Format(time.RFC3339),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/appointments", bytes.NewReader(payload))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	return resp.StatusCode
}

func loadPatients(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func loadTargets(ctx context.Context, pool *pgxpool.Pool, limit int) ([]slotTarget, error) {
	rows, err := pool.Query(ctx, `
		SELECT provider_id, slot_date, slot_time
		FROM availability_slots
		WHERE slot_date > now()::date
		ORDER BY slot_date, slot_time
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []slotTarget
	for rows.Next() {
		var providerID uuid.UUID
		var date time.Time
		var tod string
		if err := rows.Scan(&providerID, &date, &tod); err != nil {
			return nil, err
		}

		clock, err := time.Parse("15:04", tod)
		if err != nil {
			return nil, fmt.Errorf("bad slot time %q: %w", tod, err)
		}

		startAt := time.Date(date.Year(), date.Month(), date.Day(),
			clock.Hour(), clock.Minute(), 0, 0, time.UTC)
		targets = append(targets, slotTarget{ProviderID: providerID, StartAt: startAt})
	}
	return targets, rows.Err()
}

func countWinners(ctx context.Context, pool *pgxpool.Pool, targets []slotTarget) (map[string]int, error) {
	winners := make(map[string]int, len(targets))
	for _, t := range targets {
		var n int
		err := pool.QueryRow(ctx, `
			SELECT count(*) FROM appointments
			WHERE provider_id = $1 AND start_at = $2 AND status = 'booked'
		`, t.ProviderID, t.StartAt).Scan(&n)
		if err != nil {
			return nil, err
		}
		winners[fmt.Sprintf("%s@%s", t.ProviderID, t.StartAt.Format(time.RFC3339))] = n
	}
	return winners, nil
}

func loadSimConfig() SimConfig {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 20),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 1000),
		TargetSlots:  getInt("SIM_TARGET_SLOTS", 25),
		PostgresDSN:  dsn,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
