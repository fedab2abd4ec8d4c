package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/mnemosyne/pkg/cli/config"
	httpctrl "github.com/secmon-lab/mnemosyne/pkg/controller/http"
	"github.com/secmon-lab/mnemosyne/pkg/service/reflection"
	"github.com/secmon-lab/mnemosyne/pkg/service/worker"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
	"github.com/secmon-lab/mnemosyne/pkg/utils/telemetry"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var tempDir string
	var ingestConcurrency int64
	var repoCfg config.Repository
	var llmCfg config.LLM
	var transcriberCfg config.Transcriber
	var slackCfg config.Slack
	var archiveCfg config.Archive
	var telemetryCfg config.Telemetry
	var promptsCfg config.Prompts

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MNEMOSYNE_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "temp-dir",
			Usage:       "Directory for downloaded audio files",
			Value:       os.TempDir(),
			Sources:     cli.EnvVars("MNEMOSYNE_TEMP_DIR"),
			Destination: &tempDir,
		},
		&cli.Int64Flag{
			Name:        "ingest-concurrency",
			Usage:       "Maximum number of voice notes processed at once",
			Value:       usecase.DefaultMaxConcurrentIngests,
			Sources:     cli.EnvVars("MNEMOSYNE_INGEST_CONCURRENCY"),
			Destination: &ingestConcurrency,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, transcriberCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)
	flags = append(flags, telemetryCfg.Flags()...)
	flags = append(flags, promptsCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			shutdownTelemetry, err := telemetryCfg.Configure(ctx, "mnemosyne", c.Root().Version)
			if err != nil {
				return goerr.Wrap(err, "failed to configure telemetry")
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := shutdownTelemetry(flushCtx); err != nil {
					logger.Error("failed to shutdown telemetry", "error", err.Error())
				}
			}()

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM client")
			}

			promptOpts, err := promptsCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load prompts")
			}

			reflector, err := reflection.New(llmClient, promptOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize reflection service")
			}

			transcriber, err := transcriberCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize transcriber")
			}

			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize slack service")
			}

			recorder, err := telemetry.NewStageRecorder()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize stage recorder")
			}

			ingestOpts := []usecase.IngestOption{
				usecase.WithStageRecorder(recorder),
				usecase.WithTempDir(tempDir),
				usecase.WithMaxConcurrentIngests(ingestConcurrency),
			}

			archiver, err := archiveCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize audio archive")
			}
			if archiver != nil {
				defer func() {
					if err := archiver.Close(); err != nil {
						logger.Error("failed to close audio archive", "error", err.Error())
					}
				}()
				ingestOpts = append(ingestOpts, usecase.WithArchiver(archiver))
				logger.Info("Audio archive enabled", "archive", archiveCfg)
			} else {
				logger.Info("Audio archive not configured, original audio will be discarded after transcription")
			}

			uc := usecase.New(repo, transcriber, reflector, slackSvc, slackSvc,
				usecase.WithIngestOptions(ingestOpts...),
			)

			eventHandler := httpctrl.NewSlackEventHandler(uc.Ingest, slackSvc,
				httpctrl.WithEventAllowedOwners(slackCfg.AllowedUsers()),
			)
			commandHandler := httpctrl.NewSlackCommandHandler(uc.Query, uc.Review, slackSvc,
				httpctrl.WithCommandAllowedOwners(slackCfg.AllowedUsers()),
			)

			handler := httpctrl.New(
				httpctrl.WithSlackWebhook(eventHandler, commandHandler, slackCfg.SigningSecret()),
			)

			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Sweep leftover audio files from crashed or interrupted ingests
			sweeper := worker.NewTempSweepWorker(tempDir, time.Hour, 10*time.Minute)
			if err := sweeper.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start temp sweep worker")
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				sweeper.Stop()
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				sweeper.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
