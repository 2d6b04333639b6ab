// Command chronicle is a thin outer binary over internal/repo: it is
// not part of the library's contract, just a demo harness and smoke-test
// runner for it.
package main

import (
	"context"
	"fmt"
	"iter"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowcore/flowcore/internal/clock"
	"github.com/flowcore/flowcore/internal/config"
	"github.com/flowcore/flowcore/internal/entity"
	"github.com/flowcore/flowcore/internal/index/memindex"
	"github.com/flowcore/flowcore/internal/journal/pebblejournal"
	"github.com/flowcore/flowcore/internal/lock"
	"github.com/flowcore/flowcore/internal/repo"
	pebblestore "github.com/flowcore/flowcore/internal/storage/pebble"
	logpkg "github.com/flowcore/flowcore/pkg/log"
)

// noteTaken and takeNote are the smoke-test command/event pair
// publish-demo exercises end to end.
type noteTaken struct {
	entity.EventBase
	Text string `chronicle:"text"`
}

type noteAcc struct{ count int }

type takeNote struct {
	entity.Base
	Text string `chronicle:"text"`
}

func (c *takeNote) LockNames() []string { return []string{"notebook"} }

func (c *takeNote) Execute(ctx context.Context, acc *noteAcc) iter.Seq[entity.Event] {
	return func(yield func(entity.Event) bool) {
		acc.count++
		yield(&noteTaken{EventBase: entity.EventBase{Base: entity.NewBase()}, Text: c.Text})
	}
}

func (c *takeNote) OnCompletion(acc *noteAcc) int { return acc.count }

type demoCommandSet struct{}

func (demoCommandSet) CommandTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf(takeNote{})}
}

type demoEventSet struct{}

func (demoEventSet) EventTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf(noteTaken{})}
}

func buildLogger() logpkg.Logger {
	cfg := &logpkg.Config{
		Level:  envOr("CHRONICLE_LOG_LEVEL", "info"),
		Format: envOr("CHRONICLE_LOG_FORMAT", "text"),
	}
	logger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	logpkg.RedirectStdLog(logger)
	return logger
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func openRepository(dataDir string, logger logpkg.Logger) (*repo.Repository, *pebblejournal.Journal, error) {
	j, err := pebblejournal.Open(pebblestore.Options{DataDir: filepath.Join(dataDir, "journal")})
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	rp, err := repo.NewBuilder().
		WithJournal(j).
		WithClock(clock.New(clock.Options{})).
		WithLockProvider(lock.NewLocal()).
		WithIndexEngine(memindex.New()).
		WithLogger(logger).
		Build()
	if err != nil {
		j.Close()
		return nil, nil, fmt.Errorf("build repository: %w", err)
	}

	rp.AddCommandSetProvider(demoCommandSet{})
	rp.AddEventSetProvider(demoEventSet{})
	return rp, j, nil
}

func main() {
	logger := buildLogger()

	rootCmd := &cobra.Command{
		Use:   "chronicle",
		Short: "Chronicle event-sourcing repository CLI",
	}
	rootCmd.PersistentFlags().String("data-dir", config.DefaultDataDir("chronicle"), "Data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the repository and block until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rp, j, err := openRepository(dataDir, logger)
			if err != nil {
				return err
			}
			defer j.Close()

			if err := rp.Start(ctx); err != nil {
				return fmt.Errorf("start repository: %w", err)
			}
			logger.Info("chronicle running", logpkg.Str("data_dir", dataDir))

			<-ctx.Done()
			logger.Info("shutting down")
			return rp.Stop(context.Background())
		},
	}
	rootCmd.AddCommand(runCmd)

	demoCmd := &cobra.Command{
		Use:   "publish-demo",
		Short: "Publish one command end to end and print its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")

			rp, j, err := openRepository(dataDir, logger)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := context.Background()
			if err := rp.Start(ctx); err != nil {
				return fmt.Errorf("start repository: %w", err)
			}
			defer rp.Stop(context.Background())

			erased := entity.Adapt[int, noteAcc](&takeNote{Base: entity.NewBase(), Text: "hello from chronicle"})
			future, err := rp.Publish(ctx, erased)
			if err != nil {
				return fmt.Errorf("publish: %w", err)
			}

			waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			result, err := future.Wait(waitCtx)
			if err != nil {
				return fmt.Errorf("command failed (%s): %w", repo.Kind(err), err)
			}
			fmt.Printf("note count: %v\n", result)
			return nil
		},
	}
	rootCmd.AddCommand(demoCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
