package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/rythm-app/dataops/internal/backup"
	"github.com/rythm-app/dataops/internal/config"
	"github.com/rythm-app/dataops/internal/db"
	"github.com/rythm-app/dataops/internal/export"
	"github.com/rythm-app/dataops/internal/importer"
	"github.com/rythm-app/dataops/internal/model"
	"github.com/rythm-app/dataops/internal/progress"
	"github.com/rythm-app/dataops/internal/validate"
	"github.com/rythm-app/dataops/internal/version"
)

func main() {
	app := &cli.App{
		Name:    version.Name,
		Usage:   version.Description,
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Export tenant or catalog data",
				Subcommands: []*cli.Command{
					{
						Name:      "tenant",
						Usage:     "Export one tenant's data",
						ArgsUsage: "<tenant-id>",
						Action:    exportTenant,
						Flags: append(formatFlags(),
							&cli.BoolFlag{
								Name:  "exclude-users",
								Usage: "Omit user accounts from the export",
							},
							&cli.BoolFlag{
								Name:  "exclude-workout-data",
								Usage: "Omit sessions and sets from the export",
							},
							&cli.StringFlag{
								Name:  "from",
								Usage: "Only include sessions started on or after this date (YYYY-MM-DD)",
							},
							&cli.StringFlag{
								Name:  "to",
								Usage: "Only include sessions started on or before this date (YYYY-MM-DD)",
							},
						),
					},
					{
						Name:   "global",
						Usage:  "Export the shared exercise catalog",
						Action: exportGlobal,
						Flags:  formatFlags(),
					},
					{
						Name:   "all",
						Usage:  "Export the catalog plus every tenant",
						Action: exportAll,
						Flags: append(formatFlags(),
							&cli.BoolFlag{
								Name:  "strict",
								Usage: "Abort on the first tenant that fails instead of skipping it",
							},
						),
					},
				},
			},
			{
				Name:  "import",
				Usage: "Import data from a JSON export file",
				Subcommands: []*cli.Command{
					{
						Name:      "tenant",
						Usage:     "Import a tenant export file",
						ArgsUsage: "<file>",
						Action:    importTenant,
						Flags:     importFlags(),
					},
					{
						Name:      "global",
						Usage:     "Import a catalog export file",
						ArgsUsage: "<file>",
						Action:    importGlobal,
						Flags:     importFlags(),
					},
				},
			},
			{
				Name:  "validate",
				Usage: "Validate an export file against the database without writing",
				Subcommands: []*cli.Command{
					{
						Name:      "tenant",
						Usage:     "Validate a tenant export file",
						ArgsUsage: "<file>",
						Action:    validateTenant,
					},
					{
						Name:      "global",
						Usage:     "Validate a catalog export file",
						ArgsUsage: "<file>",
						Action:    validateGlobal,
					},
				},
			},
			{
				Name:  "backup",
				Usage: "Create, list and restore SQL backups",
				Subcommands: []*cli.Command{
					{
						Name:   "create",
						Usage:  "Snapshot a tenant or the catalog",
						Action: backupCreate,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "tenant",
								Usage: "Tenant to back up",
							},
							&cli.BoolFlag{
								Name:  "global",
								Usage: "Back up the shared exercise catalog",
							},
						},
					},
					{
						Name:   "list",
						Usage:  "List stored backups",
						Action: backupList,
					},
					{
						Name:      "restore",
						Usage:     "Replay a stored backup",
						ArgsUsage: "<filename>",
						Action:    backupRestore,
					},
				},
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "json",
			Usage:   "Output format: json, sql or csv",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   ".",
			Usage:   "Directory to write the export into",
		},
	}
}

func importFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"s"},
			Value:   "merge",
			Usage:   "Merge strategy: replace, merge or skip-existing",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Run the import and roll everything back",
		},
		&cli.BoolFlag{
			Name:  "skip-validation",
			Usage: "Skip referential checks against the database",
		},
		&cli.BoolFlag{
			Name:  "create-backup",
			Usage: "Snapshot existing data before importing",
		},
		&cli.BoolFlag{
			Name:  "exclude-workout-data",
			Usage: "Skip sessions and sets in the payload",
		},
	}
}

// env bundles the loaded config and an open database.
type env struct {
	cfg *config.Config
	db  *db.Database
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	configureLogging(cfg.Logging)

	database, err := db.New(c.Context, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &env{cfg: cfg, db: database}, nil
}

func configureLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so an
// interrupted import rolls back cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nInterrupted.")
		cancel()
	}()
	return ctx, cancel
}

func newBackupManager(cfg *config.Config, database *db.Database) (*backup.Manager, error) {
	store, err := backup.NewFSStore(cfg.Backup.Dir)
	if err != nil {
		return nil, err
	}
	catalog, err := backup.OpenCatalog(cfg.Backup.Catalog)
	if err != nil {
		log.Warn().Err(err).Msg("backup catalog unavailable, falling back to directory scan")
		catalog = nil
	}
	return backup.NewManager(database, store, catalog), nil
}

func exportTenant(c *cli.Context) error {
	tenantID := c.Args().First()
	if tenantID == "" {
		return fmt.Errorf("usage: dataops export tenant <tenant-id>")
	}
	if err := uuid.Validate(tenantID); err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
	}

	format, err := model.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	opts := model.ExportOptions{
		Format:             format,
		IncludeUsers:       !c.Bool("exclude-users"),
		IncludeWorkoutData: !c.Bool("exclude-workout-data"),
	}
	if opts.DateRange, err = parseDateRange(c.String("from"), c.String("to")); err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	res := export.New(e.db).ExportTenant(ctx, tenantID, opts)
	return writeExport(res, c.String("output"))
}

func exportGlobal(c *cli.Context) error {
	format, err := model.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	res := export.New(e.db).ExportGlobal(ctx, model.ExportOptions{Format: format})
	return writeExport(res, c.String("output"))
}

func exportAll(c *cli.Context) error {
	format, err := model.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	var tracker *progress.Tracker
	opts := model.ExportOptions{
		Format:             format,
		IncludeUsers:       true,
		IncludeWorkoutData: true,
		StrictTenants:      c.Bool("strict"),
		OnTenantExported: func(done, total int) {
			if tracker == nil {
				tracker = progress.New(total)
			}
			tracker.Set(done)
		},
	}

	res := export.New(e.db).ExportAll(ctx, opts)
	if tracker != nil {
		tracker.Finish()
	}
	return writeExport(res, c.String("output"))
}

// writeExport writes an export result to disk. CSV exports land in a
// directory named after the export; everything else is a single file.
func writeExport(res *model.ExportResult, outDir string) error {
	for _, w := range res.Warnings {
		log.Warn().Msg(w)
	}
	if !res.Success {
		return fmt.Errorf("export failed: %s", res.Error)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if len(res.Formatted.Files) > 0 {
		dir := filepath.Join(outDir, strings.TrimSuffix(res.Filename, filepath.Ext(res.Filename)))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
		for name, body := range res.Formatted.Files {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
		}
		fmt.Printf("Exported %d files to %s\n", len(res.Formatted.Files), dir)
		return nil
	}

	path := filepath.Join(outDir, res.Filename)
	if err := os.WriteFile(path, []byte(res.Formatted.Text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func parseDateRange(from, to string) (*model.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	r := &model.DateRange{Start: time.Time{}, End: time.Now().UTC()}
	var err error
	if from != "" {
		if r.Start, err = time.Parse("2006-01-02", from); err != nil {
			return nil, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if to != "" {
		if r.End, err = time.Parse("2006-01-02", to); err != nil {
			return nil, fmt.Errorf("invalid --to date: %w", err)
		}
		// inclusive through the end of the day
		r.End = r.End.Add(24*time.Hour - time.Nanosecond)
	}
	return r, nil
}

func importTenant(c *cli.Context) error {
	file := c.Args().First()
	if file == "" {
		return fmt.Errorf("usage: dataops import tenant <file>")
	}

	opts, err := parseImportOptions(c)
	if err != nil {
		return err
	}

	var data model.TenantExportData
	if err := readJSONFile(file, &data); err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	mgr, err := newBackupManager(e.cfg, e.db)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res := importer.New(e.db, mgr).ImportTenant(ctx, &data, opts)
	return reportImport(res)
}

func importGlobal(c *cli.Context) error {
	file := c.Args().First()
	if file == "" {
		return fmt.Errorf("usage: dataops import global <file>")
	}

	opts, err := parseImportOptions(c)
	if err != nil {
		return err
	}

	var data model.GlobalExportData
	if err := readJSONFile(file, &data); err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	mgr, err := newBackupManager(e.cfg, e.db)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res := importer.New(e.db, mgr).ImportGlobalData(ctx, &data, opts)
	return reportImport(res)
}

func parseImportOptions(c *cli.Context) (model.ImportOptions, error) {
	strategy, err := model.ParseMergeStrategy(c.String("strategy"))
	if err != nil {
		return model.ImportOptions{}, err
	}
	if strategy == model.MergeReplace && !c.Bool("create-backup") && !c.Bool("dry-run") {
		fmt.Println("Warning: replace strategy deletes existing data; consider --create-backup")
	}
	return model.ImportOptions{
		MergeStrategy:      strategy,
		ValidateReferences: !c.Bool("skip-validation"),
		DryRun:             c.Bool("dry-run"),
		CreateBackup:       c.Bool("create-backup"),
		IncludeWorkoutData: !c.Bool("exclude-workout-data"),
	}, nil
}

func reportImport(res *model.ImportResult) error {
	if res.DryRun {
		fmt.Println("Dry run: no changes were committed")
	}
	for entity, n := range res.RecordsImported {
		if n > 0 {
			fmt.Printf("  imported %-20s %d\n", entity, n)
		}
	}
	for entity, n := range res.RecordsSkipped {
		if n > 0 {
			fmt.Printf("  skipped  %-20s %d\n", entity, n)
		}
	}
	for _, w := range res.Warnings {
		fmt.Println("Warning:", w)
	}
	if res.BackupCreated != "" {
		fmt.Println("Backup created:", res.BackupCreated)
	}
	if !res.Success {
		for _, e := range res.Errors {
			fmt.Println("Error:", e)
		}
		return fmt.Errorf("import failed with %d error(s); all changes rolled back", len(res.Errors))
	}
	fmt.Println("Import complete")
	return nil
}

func validateTenant(c *cli.Context) error {
	file := c.Args().First()
	if file == "" {
		return fmt.Errorf("usage: dataops validate tenant <file>")
	}

	var data model.TenantExportData
	if err := readJSONFile(file, &data); err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := validate.New(e.db).ValidateTenantData(ctx, &data)
	if err != nil {
		return err
	}
	return reportValidation(res)
}

func validateGlobal(c *cli.Context) error {
	file := c.Args().First()
	if file == "" {
		return fmt.Errorf("usage: dataops validate global <file>")
	}

	var data model.GlobalExportData
	if err := readJSONFile(file, &data); err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := validate.New(e.db).ValidateGlobalData(ctx, &data)
	if err != nil {
		return err
	}
	return reportValidation(res)
}

func reportValidation(res *model.ValidationResult) error {
	for entity, n := range res.TotalRecords {
		fmt.Printf("  %-20s %d\n", entity, n)
	}
	for _, w := range res.Warnings {
		fmt.Println("Warning:", w)
	}
	for _, e := range res.Errors {
		fmt.Println("Error:", e)
	}
	if !res.IsValid {
		return fmt.Errorf("validation failed with %d error(s)", len(res.Errors))
	}
	fmt.Println("Payload is valid")
	return nil
}

func backupCreate(c *cli.Context) error {
	tenantID := c.String("tenant")
	if tenantID == "" && !c.Bool("global") {
		return fmt.Errorf("specify --tenant <id> or --global")
	}
	if tenantID != "" && c.Bool("global") {
		return fmt.Errorf("--tenant and --global are mutually exclusive")
	}
	if tenantID != "" {
		if err := uuid.Validate(tenantID); err != nil {
			return fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
		}
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	mgr, err := newBackupManager(e.cfg, e.db)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var filename string
	if tenantID != "" {
		filename, err = mgr.CreateTenantBackup(ctx, tenantID)
	} else {
		filename, err = mgr.CreateGlobalBackup(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Println("Backup created:", filename)
	return nil
}

func backupList(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	mgr, err := newBackupManager(e.cfg, e.db)
	if err != nil {
		return err
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}
	for _, b := range backups {
		created := ""
		if !b.CreatedAt.IsZero() {
			created = b.CreatedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-60s %-8s %-38s %8d  %s\n", b.Filename, b.Type, b.TenantID, b.Size, created)
	}
	return nil
}

func backupRestore(c *cli.Context) error {
	filename := c.Args().First()
	if filename == "" {
		return fmt.Errorf("usage: dataops backup restore <filename>")
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	mgr, err := newBackupManager(e.cfg, e.db)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res := mgr.RestoreFromBackup(ctx, filename)
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Println(res.Message)
	return nil
}

func runMigrate(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := e.db.Migrate(ctx); err != nil {
		return err
	}
	fmt.Println("Schema is up to date")
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
