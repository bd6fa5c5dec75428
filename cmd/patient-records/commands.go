package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehr/patientrecords/internal/config"
	"github.com/ehr/patientrecords/internal/domain/patient"
	"github.com/ehr/patientrecords/internal/platform/backup"
	"github.com/ehr/patientrecords/internal/platform/csvfile"
	"github.com/ehr/patientrecords/internal/platform/db"
	"github.com/ehr/patientrecords/internal/platform/sandbox"
	"github.com/ehr/patientrecords/pkg/caldate"
	"github.com/ehr/patientrecords/pkg/pagination"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty record store if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			repo, ok := a.repo.(*csvfile.Repository)
			if !ok {
				// Opening a SQL repository already applied the schema.
				fmt.Fprintf(a.out, "%s store is ready.\n", a.cfg.StorageDriver)
				return nil
			}
			created, err := repo.Init(cmd.Context())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(a.out, "Created %s.\n", repo.Path())
			} else {
				fmt.Fprintf(a.out, "%s already exists.\n", repo.Path())
			}
			return nil
		},
	}
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Admit a new patient",
		Long: "Admit a new patient. Without --id the intake rules apply: the admission date " +
			"may not be in the past and the room must be free for the whole stay. With --id " +
			"the record is stored as given, subject only to the store invariants.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			in := patient.Intake{}
			in.Name, _ = flags.GetString("name")
			in.MedicalHistory, _ = flags.GetString("history")
			in.Department, _ = flags.GetString("department")
			in.Condition, _ = flags.GetString("condition")
			in.AdmissionDate, _ = flags.GetString("admitted")
			in.DischargeDate, _ = flags.GetString("discharged")
			in.RoomNumber, _ = flags.GetInt("room")
			id, _ := flags.GetInt("id")

			return withService(cmd, func(ctx context.Context, a *app) error {
				if !flags.Changed("id") {
					p, err := a.svc.Admit(ctx, in)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Admitted patient %d to room %d.\n", p.ID, p.RoomNumber)
					return nil
				}
				p, err := recordFromFlags(id, in)
				if err != nil {
					return err
				}
				if _, err := a.svc.Add(ctx, p); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added patient %d.\n", p.ID)
				return nil
			})
		},
	}
	cmd.Flags().String("name", "", "Patient name")
	cmd.Flags().String("history", "", "Medical history")
	cmd.Flags().String("department", "", "Department")
	cmd.Flags().String("condition", "", "Condition")
	cmd.Flags().String("admitted", "", "Admission date (DD-MM-YYYY)")
	cmd.Flags().String("discharged", "", "Discharge date (DD-MM-YYYY), empty if unknown")
	cmd.Flags().Int("room", 0, "Room number")
	cmd.Flags().Int("id", 0, "Store with this id, bypassing the intake rules")
	return cmd
}

func recordFromFlags(id int, in patient.Intake) (patient.Patient, error) {
	admitted, err := caldate.Parse(in.AdmissionDate)
	if err != nil {
		return patient.Patient{}, fmt.Errorf("--admitted: %w", err)
	}
	discharged, err := caldate.Parse(in.DischargeDate)
	if err != nil {
		return patient.Patient{}, fmt.Errorf("--discharged: %w", err)
	}
	return patient.Patient{
		ID:             id,
		Name:           in.Name,
		MedicalHistory: in.MedicalHistory,
		Department:     in.Department,
		Condition:      in.Condition,
		AdmissionDate:  admitted,
		DischargeDate:  discharged,
		RoomNumber:     in.RoomNumber,
	}, nil
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("patient id must be a number, got %q", raw)
	}
	return id, nil
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update ID FIELD VALUE",
		Short: "Change one field of a patient record",
		Long: "Change one field of a patient record. FIELD is a name (name, history, department, " +
			"condition, admitted, discharged, room) or its menu number 1-7. Use \"\" to clear " +
			"the discharge date.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			field, err := patient.ParseField(args[1])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[1])
			}
			return withService(cmd, func(ctx context.Context, a *app) error {
				if err := a.svc.Update(ctx, id, field, args[2]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Updated %s of patient %d.\n", field, id)
				if field == patient.FieldRoomNumber || field == patient.FieldAdmissionDate || field == patient.FieldDischargeDate {
					printOverbooked(a.out, a.svc.Store().OverbookedRooms(a.today))
				}
				return nil
			})
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a patient record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, a *app) error {
				if err := a.svc.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted patient %d.\n", id)
				return nil
			})
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one patient record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, func(_ context.Context, a *app) error {
				p, err := a.svc.Get(id)
				if err != nil {
					return err
				}
				return a.renderer().patient(p)
			})
		},
	}
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search patient records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "name TEXT",
		Short: "Case-insensitive substring search on names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(_ context.Context, a *app) error {
				return a.renderer().patients(a.svc.SearchByName(args[0]))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dates START END",
		Short: "Patients admitted between START and END inclusive",
		Long: "Patients admitted between START and END inclusive (DD-MM-YYYY).\n\n" +
			"Pass \"\" or - for an open bound. An open bound is unlimited on that side, so an\n" +
			"open END matches every admission from START onwards instead of matching nothing.\n" +
			"Records without a valid admission date never match.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseBound(args[0])
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}
			end, err := parseBound(args[1])
			if err != nil {
				return fmt.Errorf("end: %w", err)
			}
			return withService(cmd, func(_ context.Context, a *app) error {
				return a.renderer().patients(a.svc.SearchByDateRange(start, end))
			})
		},
	})

	return cmd
}

func parseBound(raw string) (caldate.Date, error) {
	if raw == "-" {
		return caldate.Unset, nil
	}
	return caldate.Parse(raw)
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patient records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			department, _ := flags.GetString("department")
			condition, _ := flags.GetString("condition")
			room, _ := flags.GetInt("room")
			limit, _ := flags.GetInt("limit")
			offset, _ := flags.GetInt("offset")

			return withService(cmd, func(_ context.Context, a *app) error {
				var records []patient.Patient
				switch {
				case flags.Changed("department"):
					records = a.svc.ListByDepartment(department)
				case flags.Changed("condition"):
					records = a.svc.ListByCondition(condition)
				case flags.Changed("room"):
					var err error
					if records, err = a.svc.ListByRoom(room); err != nil {
						return err
					}
				default:
					records = a.svc.ListAll()
				}
				params := pagination.New(limit, offset)
				page := pagination.Apply(records, params)
				if err := a.renderer().patients(page.Items); err != nil {
					return err
				}
				if page.Limit > 0 || page.Offset > 0 {
					a.renderer().pageHints(page.Summary(), params, page.Total)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("department", "", "Only patients in this department (case-insensitive)")
	cmd.Flags().String("condition", "", "Only patients with this condition (case-insensitive)")
	cmd.Flags().Int("room", 0, "Only patients ever assigned to this room")
	cmd.Flags().Int("limit", 0, "Maximum number of records to show (0 for all)")
	cmd.Flags().Int("offset", 0, "Number of records to skip")
	cmd.MarkFlagsMutuallyExclusive("department", "condition", "room")
	return cmd
}

func summaryCmd(use, short string, summaries func(*patient.Service) []patient.Summary) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(_ context.Context, a *app) error {
				return a.renderer().summaries(summaries(a.svc))
			})
		},
	}
}

func roomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms [ROOM]",
		Short: "Show room availability",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			return withService(cmd, func(_ context.Context, a *app) error {
				if len(args) == 1 {
					room, err := strconv.Atoi(args[0])
					if err != nil {
						return patient.ErrNonNumericRoom
					}
					status, err := a.svc.Room(room)
					if err != nil {
						return err
					}
					occupants, err := a.svc.ListByRoom(room)
					if err != nil {
						return err
					}
					return a.renderer().room(status, occupants, a.today)
				}
				return a.renderer().rooms(a.svc.Rooms(), all)
			})
		},
	}
	cmd.Flags().Bool("all", false, "List every room, not only occupied ones")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record and room statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(_ context.Context, a *app) error {
				return a.renderer().statistics(a.svc.Statistics())
			})
		},
	}
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage snapshots of the record store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Store a snapshot of all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, a *app) error {
				store, err := a.backupStore(ctx)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := csvfile.Encode(&buf, a.svc.ListAll()); err != nil {
					return err
				}
				snap, err := store.Put(ctx, backup.NewKey(time.Now()), buf.Bytes())
				if err != nil {
					return err
				}
				a.logger.Info().Str("key", snap.Key).Str("driver", string(store.Driver())).Int64("size", snap.Size).Msg("snapshot stored")
				fmt.Fprintln(a.out, snap.Key)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			store, err := a.backupStore(cmd.Context())
			if err != nil {
				return err
			}
			snaps, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderer().snapshots(snaps)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore KEY",
		Short: "Replace all records with a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, a *app) error {
				store, err := a.backupStore(ctx)
				if err != nil {
					return err
				}
				data, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				res, err := csvfile.Decode(bytes.NewReader(data))
				if err != nil {
					return err
				}
				skipped, err := a.svc.Replace(ctx, res.Patients)
				if err != nil {
					return err
				}
				if n := len(res.Malformed) + len(skipped); n > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped %d malformed record(s)\n", n)
				}
				fmt.Fprintf(a.out, "Restored %d record(s) from %s.\n", a.svc.Store().Count(), args[0])
				return nil
			})
		},
	})

	return cmd
}

func (a *app) backupStore(ctx context.Context) (backup.Store, error) {
	return backup.Open(ctx, backup.Config{
		Driver: backup.Driver(a.cfg.BackupDriver),
		FSRoot: a.cfg.BackupFSRoot,
		S3: backup.S3Config{
			Region:          a.cfg.BackupS3Region,
			Bucket:          a.cfg.BackupS3Bucket,
			Endpoint:        a.cfg.BackupS3Endpoint,
			AccessKeyID:     a.cfg.AWSAccessKeyID,
			SecretAccessKey: a.cfg.AWSSecretKey,
			PathStyle:       a.cfg.BackupS3PathStyle,
		},
	})
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty store with synthetic patients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			seed, _ := cmd.Flags().GetInt64("seed")
			openShare, _ := cmd.Flags().GetFloat64("open-share")
			return withService(cmd, func(ctx context.Context, a *app) error {
				if n := a.svc.Store().Count(); n > 0 {
					return fmt.Errorf("store already holds %d record(s); seed only fills an empty store", n)
				}
				res, err := sandbox.NewSeeder(sandbox.SeedConfig{
					PatientCount: count,
					RoomCount:    a.svc.Store().RoomCount(),
					FirstID:      a.svc.Store().NextID(),
					Anchor:       a.today,
					OpenShare:    openShare,
					Seed:         seed,
				}).Generate()
				if err != nil {
					return err
				}
				if _, err := a.svc.Replace(ctx, res.Patients); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Generated %d patient(s).\n", len(res.Patients))
				if res.Dropped > 0 {
					fmt.Fprintf(a.out, "Dropped %d stay(s) for lack of a free room.\n", res.Dropped)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("count", 50, "Number of patients to generate")
	cmd.Flags().Int64("seed", 0, "Random seed (0 picks one)")
	cmd.Flags().Float64("open-share", 0.3, "Fraction of stays without a discharge date")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL schema (sqlite and postgres drivers)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, a *app, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(a.out, "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, a *app, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				return a.renderer().migrations(statuses)
			})
		},
	})

	return cmd
}

var errNotSQL = errors.New("migrations apply only to the sqlite and postgres drivers")

func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, a *app, m *db.Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.StorageDriver == config.StorageCSV {
		return errNotSQL
	}
	ctx := cmd.Context()
	dialect := db.Dialect(cfg.StorageDriver)
	conn, err := db.Open(ctx, dialect, cfg.StorageDSN())
	if err != nil {
		return err
	}
	defer conn.Close()
	a := &app{cfg: cfg, logger: newLogger(cfg, cmd.ErrOrStderr()), out: cmd.OutOrStdout()}
	return fn(ctx, a, db.NewMigrator(conn, dialect))
}
