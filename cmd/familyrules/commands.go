package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nerrad567/family-rules-core/internal/auth"
	"github.com/nerrad567/family-rules-core/internal/directory"
	"github.com/nerrad567/family-rules-core/internal/infrastructure/config"
	"github.com/nerrad567/family-rules-core/internal/infrastructure/database"
	"github.com/nerrad567/family-rules-core/internal/policy"
	"github.com/nerrad567/family-rules-core/migrations"
)

// errUsage is returned when a subcommand is invoked with bad arguments.
var errUsage = errors.New("invalid arguments")

// commands maps subcommand names to their handlers. Each handler receives the
// loaded config, its own arguments, and the writer for user-facing output.
var commands = map[string]func(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error{
	"token":    cmdToken,
	"account":  cmdAccount,
	"device":   cmdDevice,
	"schedule": cmdSchedule,
	"migrate":  cmdMigrate,
}

func isCommand(name string) bool {
	_, ok := commands[name]
	return ok
}

// runCommand loads the configuration and executes a provisioning subcommand.
func runCommand(ctx context.Context, name string, args []string, out io.Writer) error {
	handler, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return handler(ctx, cfg, args, out)
}

// cmdToken issues an admin API bearer token.
func cmdToken(_ context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	subject := fs.String("subject", "", "token subject recorded as the audit actor")
	role := fs.String("role", string(auth.RoleViewer), "role: viewer or admin")
	ttl := fs.Duration("ttl", cfg.GetTokenTTL(), "token lifetime")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if *subject == "" {
		return fmt.Errorf("%w: -subject is required", errUsage)
	}
	r := auth.Role(*role)
	if r != auth.RoleViewer && r != auth.RoleAdmin {
		return fmt.Errorf("%w: unknown role %q", errUsage, *role)
	}

	token, err := auth.GenerateToken(*subject, r, cfg.Security.JWT.Secret, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

// cmdAccount creates an account, or updates the webhook URL of an existing one.
func cmdAccount(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("account", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.String("id", "", "account id (generated when empty)")
	name := fs.String("name", "", "account display name")
	webhookURL := fs.String("webhook", "", "webhook URL for status notifications")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	return withDirectory(ctx, cfg, func(dir *directory.SQLiteDirectory) error {
		if *id != "" {
			if _, err := dir.GetAccount(ctx, *id); err == nil {
				if err := dir.SetWebhookURL(ctx, *id, *webhookURL); err != nil {
					return err
				}
				fmt.Fprintf(out, "account %s updated\n", *id)
				return nil
			} else if !errors.Is(err, directory.ErrAccountNotFound) {
				return err
			}
		}

		account := &directory.Account{ID: *id, Name: *name, WebhookURL: *webhookURL}
		if err := dir.CreateAccount(ctx, account); err != nil {
			return err
		}
		fmt.Fprintf(out, "account %s created\n", account.ID)
		return nil
	})
}

// cmdDevice registers a device under an account and prints its secret once.
// With -rotate the secret of an existing device is replaced instead.
func cmdDevice(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("device", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.String("id", "", "device id (generated when empty)")
	accountID := fs.String("account", "", "owning account id")
	name := fs.String("name", "", "device display name")
	offset := fs.Int("utc-offset", 0, "initial UTC offset in seconds")
	rotate := fs.Bool("rotate", false, "replace the secret of an existing device")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	secret, err := auth.GenerateDeviceSecret()
	if err != nil {
		return err
	}

	return withDirectory(ctx, cfg, func(dir *directory.SQLiteDirectory) error {
		if *rotate {
			if *id == "" {
				return fmt.Errorf("%w: -rotate requires -id", errUsage)
			}
			if err := dir.SetDeviceSecret(ctx, *id, secret); err != nil {
				return err
			}
			fmt.Fprintf(out, "device %s\nsecret %s\n", *id, secret)
			return nil
		}

		if _, err := dir.GetAccount(ctx, *accountID); err != nil {
			return fmt.Errorf("account %q: %w", *accountID, err)
		}
		device := &directory.Device{
			ID:               *id,
			AccountID:        *accountID,
			Name:             *name,
			UTCOffsetSeconds: *offset,
		}
		if err := dir.CreateDevice(ctx, device, secret); err != nil {
			return err
		}
		fmt.Fprintf(out, "device %s\nsecret %s\n", device.ID, secret)
		return nil
	})
}

// cmdSchedule replaces a device's weekly schedule from a JSON file keyed by
// day name, e.g. {"monday":[{"from_seconds":0,"to_seconds":25200,"state":"LOCKED"}]}.
func cmdSchedule(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.String("device", "", "device id")
	file := fs.String("file", "", "schedule JSON file (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *id == "" || *file == "" {
		return fmt.Errorf("%w: -device and -file are required", errUsage)
	}

	schedule, err := readSchedule(*file)
	if err != nil {
		return err
	}
	states := policy.NewStateSet(cfg.Policy.CustomStates)
	for day, intervals := range schedule {
		for _, iv := range intervals {
			if !states.Contains(iv.State) {
				return fmt.Errorf("%s: unknown state %q", day, iv.State)
			}
		}
	}

	return withDirectory(ctx, cfg, func(dir *directory.SQLiteDirectory) error {
		if err := dir.SetSchedule(ctx, *id, schedule); err != nil {
			return err
		}
		fmt.Fprintf(out, "schedule for device %s updated (%d days)\n", *id, len(schedule))
		return nil
	})
}

func readSchedule(path string) (policy.WeeklySchedule, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // operator-supplied path
	}
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}

	var schedule policy.WeeklySchedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("parsing schedule: %w", err)
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return schedule, nil
}

// cmdMigrate applies pending migrations, or with -down rolls back the latest
// one, then prints the migration status.
func cmdMigrate(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	down := fs.Bool("down", false, "roll back the most recent migration")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // best-effort close after a one-shot command

	if *down {
		err = db.MigrateDown(ctx, migrations.FS)
	} else {
		err = db.Migrate(ctx, migrations.FS)
	}
	if err != nil {
		return err
	}

	applied, pending, err := db.GetMigrationStatus(ctx, migrations.FS)
	if err != nil {
		return err
	}
	for _, m := range applied {
		fmt.Fprintf(out, "applied %s %s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(out, "pending %s %s\n", m.Version, m.Name)
	}
	return nil
}

// withDirectory opens the configured database for the duration of fn.
func withDirectory(ctx context.Context, cfg *config.Config, fn func(dir *directory.SQLiteDirectory) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // best-effort close after a one-shot command

	return fn(directory.NewSQLiteDirectory(db.DB))
}
