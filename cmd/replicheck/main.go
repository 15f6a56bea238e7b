package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/replicheck/replicheck/internal/catalog"
	"github.com/replicheck/replicheck/internal/check"
	"github.com/replicheck/replicheck/internal/classify"
	"github.com/replicheck/replicheck/internal/config"
	"github.com/replicheck/replicheck/internal/event"
	"github.com/replicheck/replicheck/internal/stats"
	"github.com/replicheck/replicheck/internal/wal"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		typesStr        string
		catalogPath     string
		syncTimeoutSecs int
		verbose         bool
		quiet           bool
		logFile         string
		showVersion     bool
	)

	rootCmd := &cobra.Command{
		Use:   "replicheck [flags] <primary-dir> <mirror-dir>",
		Short: "Block-level consistency check between a primary and its mirror",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "replicheck %s\n", version)
				return nil
			}

			primaryDir := args[0]
			mirrorDir := args[1]

			// Load optional config file.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			applyConfigDefaults(cmd, cfg.Defaults,
				&typesStr, &syncTimeoutSecs, &verbose, &logFile)

			// A bad type list must fail before any directory or catalog I/O.
			include, err := classify.ParseInclude(typesStr)
			if err != nil {
				return fmt.Errorf("invalid --types: %w", err)
			}
			if catalogPath == "" {
				return errors.New("--catalog is required")
			}

			// Configure logging.
			logLevel := slog.LevelWarn
			if verbose {
				logLevel = slog.LevelDebug
			} else if !quiet {
				logLevel = slog.LevelInfo
			}
			textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			var logHandler slog.Handler = textHandler
			if logFile != "" {
				lf, lfErr := os.Create(logFile)
				if lfErr != nil {
					return fmt.Errorf("open log file: %w", lfErr)
				}
				defer lf.Close()
				jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})
				logHandler = newMultiHandler(textHandler, jsonHandler)
			}
			slog.SetDefault(slog.New(logHandler))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cat, err := catalog.OpenSQLite(catalogPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			// Drain the event stream into structured log records.
			var eventWg sync.WaitGroup
			eventWg.Add(1)
			go func() {
				defer eventWg.Done()
				for ev := range events {
					attrs := []slog.Attr{
						slog.String("type", ev.Type.String()),
					}
					if ev.Path != "" {
						attrs = append(attrs, slog.String("path", ev.Path))
					}
					if ev.Category != "" {
						attrs = append(attrs, slog.String("category", ev.Category))
					}
					if ev.Detail != "" {
						attrs = append(attrs,
							slog.Uint64("block", uint64(ev.Block)),
							slog.String("detail", ev.Detail))
					}
					if ev.Error != nil {
						attrs = append(attrs, slog.String("error", ev.Error.Error()))
					}
					slog.LogAttrs(context.Background(), slog.LevelDebug, "replicheck.event", attrs...)
				}
			}()

			flusher := &wal.LocalFlusher{Dir: primaryDir}
			coordinator := &wal.Coordinator{
				Checkpoint: flusher,
				Registry:   flusher,
				Timeout:    time.Duration(syncTimeoutSecs) * time.Second,
				Events:     events,
				Stats:      collector,
			}

			slog.Debug("starting check",
				"primary", primaryDir,
				"mirror", mirrorDir,
				"types", typesStr,
				"catalog", catalogPath,
			)

			match, err := check.Run(ctx, check.Config{
				PrimaryDir: primaryDir,
				MirrorDir:  mirrorDir,
				Include:    include,
				Catalog:    cat,
				Checkpoint: flusher,
				Sync:       coordinator,
				Events:     events,
				Stats:      collector,
			})
			stop()
			close(events)
			eventWg.Wait()

			if !quiet {
				fmt.Fprintln(os.Stderr, collector.Snapshot().String())
			}

			if err != nil {
				slog.Error("check failed", "error", err)
				return &exitError{code: 2}
			}
			if !match {
				slog.Error("primary and mirror are not consistent")
				return &exitError{code: 1}
			}
			slog.Info("primary and mirror are consistent")
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().
		StringVarP(&typesStr, "types", "t", "all", "comma-separated relation categories to check (or \"all\")")
	rootCmd.Flags().
		StringVarP(&catalogPath, "catalog", "c", "", "path to the catalog snapshot (SQLite)")
	rootCmd.Flags().
		IntVar(&syncTimeoutSecs, "sync-timeout", wal.SyncTimeoutSeconds, "seconds to wait for the mirror to catch up per retry")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().StringVar(&logFile, "log", "", "write structured JSON log to FILE")

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	typesStr *string,
	syncTimeoutSecs *int,
	verbose *bool,
	logFile *string,
) {
	if !cmd.Flags().Changed("types") && defaults.Types != nil {
		*typesStr = *defaults.Types
	}
	if !cmd.Flags().Changed("sync-timeout") && defaults.SyncTimeout != nil {
		*syncTimeoutSecs = *defaults.SyncTimeout
	}
	if !cmd.Flags().Changed("verbose") && defaults.Verbose != nil {
		*verbose = *defaults.Verbose
	}
	if !cmd.Flags().Changed("log") && defaults.Log != nil {
		*logFile = *defaults.Log
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
