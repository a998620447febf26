package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/app"
	"github.com/kadirbelkuyu/dbsaver/internal/config"
	"github.com/kadirbelkuyu/dbsaver/internal/httpapi"
	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"

	"github.com/spf13/cobra"
)

const appName = "dbsaver"

var rootCmd = &cobra.Command{
	Use:   "dbsaver",
	Short: "Scheduled backups for monitored MongoDB and PostgreSQL databases",
	Long:  `Tracks remote databases, checks their connections, saves them on a schedule, prunes old saves and serves everything over an HTTP API.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the backup scheduler",
	RunE:  runServe,
}

var runCycleCmd = &cobra.Command{
	Use:   "run-cycle",
	Short: "Save every database once and prune expired saves",
	RunE:  runCycle,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete automatic saves outside the retention policy",
	RunE:  runPrune,
}

var checkCmd = &cobra.Command{
	Use:   "check <database-id>",
	Short: "Check the connection of one database",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var backupCmd = &cobra.Command{
	Use:   "backup <database-id>",
	Short: "Save one database now",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackup,
}

var listDbCmd = &cobra.Command{
	Use:   "list-databases",
	Short: "List tracked databases with their cached status",
	RunE:  runListDatabases,
}

var (
	configPath  string
	storeDriver string
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "Override the store driver (mongo or memory)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCycleCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(listDbCmd)

	cobra.OnInitialize(func() {
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("cannot load config: %w", err)
		}
		cfg = loaded
	}

	if storeDriver != "" {
		cfg.Store.Driver = strings.ToLower(storeDriver)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if verbose {
		cfg.Log.Verbose = true
	}
	return cfg, nil
}

func buildApplication(ctx context.Context, opts ...app.Option) (*app.Application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.Log.Verbose)
	application, err := app.NewApplication(ctx, cfg, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", appName, err)
	}
	return application, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := buildApplication(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	log := application.Log
	cfg := application.Config

	if cfg.SchedulerEnabled() {
		go func() {
			if err := application.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("scheduler stopped: %v", err)
			}
		}()
		log.Infof("Scheduler started, saving every %s", cfg.Scheduler.Interval)
	}

	server := httpapi.NewServer(application.Service, httpapi.Options{AuthToken: cfg.Server.AuthToken}, log)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Listen(cfg.Server.Address)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runCycle(cmd *cobra.Command, args []string) error {
	observer := newCycleObserver()
	application, err := buildApplication(cmd.Context(), app.WithObserver(observer))
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.Scheduler.RunOnce(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Saved %d of %d databases, %d failed, %d saves pruned in %s\n",
		report.Succeeded, report.Total, report.Failed, report.Pruned, report.Duration.Round(time.Millisecond))
	if report.PruneErr != nil {
		return fmt.Errorf("pruning failed: %w", report.PruneErr)
	}
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	application, err := buildApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Close()

	removed, err := application.Pruner.Prune(cmd.Context(), time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Pruned %d saves\n", removed)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	application, err := buildApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Close()

	db, err := application.Service.CheckConnection(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s is %s (%d collections)\n", db.Label(), db.Status, len(db.Collections))
	for _, name := range db.Collections {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	application, err := buildApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Close()

	snapshot, err := application.Service.ManualBackup(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Saved snapshot %s at %s\n", snapshot.ID, snapshot.Time().Format(time.RFC3339))
	return nil
}

func runListDatabases(cmd *cobra.Command, args []string) error {
	application, err := buildApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Close()

	databases, err := application.Service.ListDatabases(cmd.Context())
	if err != nil {
		return err
	}

	if len(databases) == 0 {
		fmt.Println("No databases are tracked yet.")
		return nil
	}

	for _, db := range databases {
		lastSave := "never"
		if db.LastSave != nil {
			lastSave = models.Snapshot{Timestamp: *db.LastSave}.Time().Format(time.RFC3339)
		}
		fmt.Printf("%s  %-24s %-12s saves=%d last=%s\n", db.ID, db.Label(), db.Status, db.SnapshotCount, lastSave)
		if db.Message != "" {
			fmt.Printf("    %s\n", db.Message)
		}
	}
	return nil
}
