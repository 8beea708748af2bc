package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hackgods/frontdesk-scheduling/internal/board"
	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
	"github.com/hackgods/frontdesk-scheduling/internal/config"
	"github.com/hackgods/frontdesk-scheduling/internal/logger"
	"github.com/hackgods/frontdesk-scheduling/internal/remote"
)

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Desks       int
	AddRatio    float64
	EditRatio   float64
	ToggleRatio float64
	ReloadEvery time.Duration
	Timeouts    config.ClientConfig
}

type OperationMetrics struct {
	Total     int64
	Synced    int64
	Local     int64
	Fallback  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, outcome board.Outcome, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&om.Error, 1)
	case outcome == board.OutcomeSynced:
		atomic.AddInt64(&om.Synced, 1)
	case outcome == board.OutcomeFallback:
		atomic.AddInt64(&om.Fallback, 1)
	default:
		atomic.AddInt64(&om.Local, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Add    OperationMetrics
	Rename OperationMetrics
	Delete OperationMetrics
	Toggle OperationMetrics
	Reload atomic.Int64
	Online atomic.Int64
}

type Simulator struct {
	config  SimConfig
	log     logrus.FieldLogger
	metrics Metrics
}

func main() {
	clientCfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := SimConfig{Timeouts: clientCfg}
	var logLevel string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run several front desks against the appointments API at once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := normalize(&cfg); err != nil {
				return err
			}

			log := logger.New(logLevel, false)
			sim := &Simulator{config: cfg, log: log}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sim.Run(ctx)
			sim.PrintReport()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.APIBaseURL, "api", clientCfg.APIBaseURL, "appointments API base URL")
	flags.DurationVar(&cfg.Duration, "duration", 30*time.Second, "how long to run")
	flags.IntVar(&cfg.Desks, "desks", 4, "number of concurrent front desks")
	flags.Float64Var(&cfg.AddRatio, "add", 0.5, "share of add operations")
	flags.Float64Var(&cfg.EditRatio, "edit", 0.3, "share of rename and delete operations")
	flags.Float64Var(&cfg.ToggleRatio, "toggle", 0.2, "share of availability toggles")
	flags.DurationVar(&cfg.ReloadEvery, "reload-every", 2*time.Second, "how often each desk reloads from the API")
	flags.StringVar(&logLevel, "log-level", "warn", "log level")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func normalize(cfg *SimConfig) error {
	if cfg.Desks <= 0 {
		return fmt.Errorf("--desks must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}

	total := cfg.AddRatio + cfg.EditRatio + cfg.ToggleRatio
	if total <= 0 {
		return fmt.Errorf("operation ratios must add up to more than zero")
	}
	cfg.AddRatio /= total
	cfg.EditRatio /= total
	cfg.ToggleRatio /= total
	return nil
}

func (s *Simulator) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Duration)
	defer cancel()

	s.log.WithFields(logrus.Fields{
		"duration": s.config.Duration,
		"desks":    s.config.Desks,
	}).Warn("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Desks; i++ {
		wg.Add(1)
		go func(deskID int) {
			defer wg.Done()
			s.desk(ctx, deskID)
		}(i)
	}

	wg.Wait()
	s.log.Warn("simulation complete")
}

// desk runs one front desk with its own board and remote adapter.
func (s *Simulator) desk(ctx context.Context, deskID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(deskID)))
	faker := gofakeit.New(uint64(time.Now().UnixNano()) + uint64(deskID))
	log := s.log.WithField("desk", deskID)

	adapter := remote.New(remote.Options{
		BaseURL:        s.config.APIBaseURL,
		ProbeTimeout:   s.config.Timeouts.ProbeTimeout,
		RequestTimeout: s.config.Timeouts.RequestTimeout,
		Logger:         log,
	})
	b := board.New(adapter, log)
	s.reload(ctx, b)

	lastReload := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if time.Since(lastReload) >= s.config.ReloadEvery {
			s.reload(ctx, b)
			lastReload = time.Now()
		}

		c := b.Today()
		if rng.Intn(4) == 0 {
			c = b.Yesterday()
		}
		d := clinic.Doctors[rng.Intn(len(clinic.Doctors))]

		r := rng.Float64()
		switch {
		case r < s.config.AddRatio:
			start := time.Now()
			res, err := c.Add(ctx, d, faker.Name())
			s.metrics.Add.Record(time.Since(start), res.Outcome, err)
		case r < s.config.AddRatio+s.config.EditRatio:
			s.doEdit(ctx, c, d, rng, faker)
		default:
			rows := c.PatientList(d)
			if len(rows) == 0 {
				continue
			}
			start := time.Now()
			res, err := c.ToggleAvailability(ctx, d, rows[rng.Intn(len(rows))].PatientName)
			s.metrics.Toggle.Record(time.Since(start), res.Outcome, err)
		}
	}
}

func (s *Simulator) doEdit(ctx context.Context, c *board.Controller, d clinic.Doctor, rng *rand.Rand, faker *gofakeit.Faker) {
	visible := c.Visible(d)
	if len(visible) == 0 {
		return
	}
	target := visible[rng.Intn(len(visible))]

	start := time.Now()
	if rng.Intn(2) == 0 {
		res, err := c.Rename(ctx, d, target.ID, faker.Name())
		s.metrics.Rename.Record(time.Since(start), res.Outcome, err)
		return
	}
	res, err := c.Delete(ctx, d, target.ID)
	s.metrics.Delete.Record(time.Since(start), res.Outcome, err)
}

func (s *Simulator) reload(ctx context.Context, b *board.Board) {
	s.metrics.Reload.Add(1)
	if b.Load(ctx) {
		s.metrics.Online.Add(1)
	}
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Desks: %d\n", s.config.Desks)

	reloads := s.metrics.Reload.Load()
	if reloads > 0 {
		online := s.metrics.Online.Load()
		fmt.Printf("Reloads: %d (online %.1f%%)\n", reloads, float64(online)/float64(reloads)*100)
	}
	fmt.Println()

	printOperationReport("Add", &s.metrics.Add)
	printOperationReport("Rename", &s.metrics.Rename)
	printOperationReport("Delete", &s.metrics.Delete)
	printOperationReport("Toggle availability", &s.metrics.Toggle)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	synced := atomic.LoadInt64(&om.Synced)
	fmt.Printf("  Synced: %d (%.1f%%)\n", synced, pct(synced))
	if n := atomic.LoadInt64(&om.Fallback); n > 0 {
		fmt.Printf("  Fallback: %d (%.1f%%)\n", n, pct(n))
	}
	if n := atomic.LoadInt64(&om.Local); n > 0 {
		fmt.Printf("  Local only: %d (%.1f%%)\n", n, pct(n))
	}
	if n := atomic.LoadInt64(&om.Error); n > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", n, pct(n))
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
