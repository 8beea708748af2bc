package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hackgods/frontdesk-scheduling/internal/appointment"
	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
	"github.com/hackgods/frontdesk-scheduling/internal/config"
	"github.com/hackgods/frontdesk-scheduling/internal/db"
	"github.com/hackgods/frontdesk-scheduling/internal/logger"
	"github.com/hackgods/frontdesk-scheduling/internal/slot"
)

type seedOptions struct {
	patients int
	reset    bool
	seed     uint64
}

func main() {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed frozen placeholders and fake patients for every doctor and period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel, cfg.IsProd())
			return run(cmd.Context(), cfg, opts, log)
		},
	}

	cmd.Flags().IntVar(&opts.patients, "patients", 5, "fake patients to book per doctor and period")
	cmd.Flags().BoolVar(&opts.reset, "reset", false, "delete existing appointments and checklists first")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "faker seed, 0 picks one from the clock")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts seedOptions, log *logrus.Logger) error {
	log.Info("seed starting")

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(connectCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(connectCtx, pool); err != nil {
		return err
	}

	if opts.seed == 0 {
		opts.seed = uint64(time.Now().UnixNano())
	}
	faker := gofakeit.New(opts.seed)

	for _, p := range clinic.Periods {
		for _, d := range clinic.Doctors {
			frozen, booked, err := seedQueue(ctx, pool, d, p, opts, faker)
			if err != nil {
				return fmt.Errorf("seed %s/%s: %w", d, p, err)
			}
			log.WithFields(logrus.Fields{
				"doctor": d,
				"period": p,
				"frozen": frozen,
				"booked": booked,
			}).Info("queue seeded")
		}
	}

	log.Info("seed complete")
	return nil
}

// seedQueue fills one queue inside a single transaction.
func seedQueue(ctx context.Context, pool *pgxpool.Pool, d clinic.Doctor, p clinic.Period, opts seedOptions, faker *gofakeit.Faker) (frozen, booked int, err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	if opts.reset {
		if err := resetQueue(ctx, tx, d, p); err != nil {
			return 0, 0, err
		}
	}

	repo := appointment.NewPgRepository(tx)

	existing, err := repo.ListAppointments(ctx, d, p)
	if err != nil {
		return 0, 0, err
	}
	inUse := make(map[int]struct{}, len(existing))
	for _, a := range existing {
		inUse[a.AppointmentNo] = struct{}{}
	}

	for _, n := range clinic.Reserved(d) {
		if _, ok := inUse[n]; ok {
			continue
		}
		if _, err := repo.InsertAppointment(ctx, appointment.Appointment{
			Doctor:        d,
			Period:        p,
			PatientName:   clinic.FrozenName(n),
			AppointmentNo: n,
			Frozen:        true,
		}); err != nil {
			return 0, 0, fmt.Errorf("insert frozen #%d: %w", n, err)
		}
		inUse[n] = struct{}{}
		frozen++
	}

	reserved := clinic.ReservedSet(d)
	for i := 0; i < opts.patients; i++ {
		no := slot.Next(reserved, inUse)
		name := faker.Name()

		if _, err := repo.InsertAppointment(ctx, appointment.Appointment{
			Doctor:        d,
			Period:        p,
			PatientName:   name,
			AppointmentNo: no,
		}); err != nil {
			return 0, 0, fmt.Errorf("insert #%d: %w", no, err)
		}
		if _, err := repo.UpsertStatus(ctx, appointment.PatientStatus{
			Doctor:      d,
			Period:      p,
			PatientName: name,
			IsAvailable: faker.Bool(),
		}); err != nil {
			return 0, 0, fmt.Errorf("insert status for #%d: %w", no, err)
		}
		inUse[no] = struct{}{}
		booked++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return frozen, booked, nil
}

func resetQueue(ctx context.Context, tx pgx.Tx, d clinic.Doctor, p clinic.Period) error {
	if _, err := tx.Exec(ctx, `DELETE FROM appointments WHERE doctor = $1 AND period = $2`, string(d), string(p)); err != nil {
		return fmt.Errorf("reset appointments: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM patient_status WHERE doctor = $1 AND period = $2`, string(d), string(p)); err != nil {
		return fmt.Errorf("reset patient status: %w", err)
	}
	return nil
}
