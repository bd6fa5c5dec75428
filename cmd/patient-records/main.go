package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/patientrecords/internal/config"
	"github.com/ehr/patientrecords/internal/domain/patient"
	"github.com/ehr/patientrecords/internal/platform/csvfile"
	"github.com/ehr/patientrecords/internal/platform/db"
	"github.com/ehr/patientrecords/internal/platform/hipaa"
	"github.com/ehr/patientrecords/internal/platform/telemetry"
	"github.com/ehr/patientrecords/pkg/caldate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "patient-records",
		Short:        "Hospital patient record store",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("file", "", "Record file (overrides RECORDS_FILE, or SQLITE_PATH with --driver sqlite)")
	flags.String("driver", "", "Storage driver: csv, sqlite or postgres (overrides STORAGE_DRIVER)")
	flags.String("today", "", "Treat DD-MM-YYYY as the current day")
	flags.Int("rooms", 0, "Number of rooms in the pool (overrides ROOM_COUNT)")
	flags.Bool("redact", false, "Mask names, histories and conditions in output")
	flags.Bool("audit-summary", false, "Print the audit events recorded by this command")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(summaryCmd("departments", "Department summaries", (*patient.Service).DepartmentSummaries))
	rootCmd.AddCommand(summaryCmd("conditions", "Condition summaries", (*patient.Service).ConditionSummaries))
	rootCmd.AddCommand(roomsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(migrateCmd())

	return rootCmd
}

// app is the per-invocation wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	today   caldate.Date
	out     io.Writer
	redact  bool
	audit   *hipaa.MemoryAuditRecorder

	repo    patient.Repository
	svc     *patient.Service
	closers []func() error
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if driver, _ := flags.GetString("driver"); driver != "" {
		cfg.StorageDriver = strings.ToLower(driver)
	}
	if file, _ := flags.GetString("file"); file != "" {
		if cfg.StorageDriver == config.StorageSQLite {
			cfg.SQLitePath = file
		} else {
			cfg.RecordsFile = file
		}
	}
	if rooms, _ := flags.GetInt("rooms"); rooms != 0 {
		cfg.RoomCount = rooms
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// newApp builds configuration, logging, metrics and the storage repository.
// The service is created but not loaded.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  newLogger(cfg, cmd.ErrOrStderr()),
		metrics: telemetry.New(),
		today:   caldate.Today(),
		out:     cmd.OutOrStdout(),
		audit:   &hipaa.MemoryAuditRecorder{},
	}
	a.redact, _ = cmd.Flags().GetBool("redact")
	if raw, _ := cmd.Flags().GetString("today"); raw != "" {
		if a.today, err = caldate.Parse(raw); err != nil {
			return nil, fmt.Errorf("--today: %w", err)
		}
		if !a.today.IsSet() {
			a.today = caldate.Today()
		}
	}

	ctx := cmd.Context()
	switch cfg.StorageDriver {
	case config.StorageSQLite, config.StoragePostgres:
		repo, err := db.OpenRepository(ctx, db.Dialect(cfg.StorageDriver), cfg.StorageDSN())
		if err != nil {
			return nil, err
		}
		a.repo = repo
		a.closers = append(a.closers, repo.Close)
	default:
		a.repo = csvfile.NewRepository(cfg.RecordsFile)
	}

	auditor := hipaa.NewAuditor(a.logger, a.metrics, a.audit)
	a.svc = patient.NewService(
		patient.NewStore(cfg.RoomCount),
		a.repo,
		a.logger,
		patient.WithClock(func() caldate.Date { return a.today }),
		patient.WithAudit(auditor),
		patient.WithObserver(a.metrics),
	)
	return a, nil
}

// close releases resources and exports metrics when METRICS_FILE is set.
func (a *app) close() {
	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.logger.Error().Err(err).Msg("failed to export metrics")
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close storage")
		}
	}
}

// withService runs fn against a loaded service.
func withService(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if _, malformed, err := a.svc.Load(ctx); err != nil {
		if a.cfg.StorageDriver == config.StorageCSV {
			return fmt.Errorf("%w (run \"patient-records init\" to create it)", err)
		}
		return err
	} else if len(malformed) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped %d malformed record(s)\n", len(malformed))
	}
	err = fn(ctx, a)
	if summary, _ := cmd.Flags().GetBool("audit-summary"); summary {
		if rerr := a.renderer().auditEvents(a.audit.Events()); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}
