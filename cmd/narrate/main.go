package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vidnarrate/config"
	"vidnarrate/handlers"
	"vidnarrate/queue"
	"vidnarrate/services"
	"vidnarrate/store"
	"vidnarrate/utils"
)

func main() {
	root := &cobra.Command{
		Use:          "narrate",
		Short:        "Add translated voice narration to videos",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.AddCommand(runCmd(), probeCmd(), workerCmd(), tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Narrate a local video file",
		RunE: func(cmd *cobra.Command, args []string) error {
			videoPath, _ := cmd.Flags().GetString("video")
			text, _ := cmd.Flags().GetString("text")
			lang, _ := cmd.Flags().GetString("lang")
			voice, _ := cmd.Flags().GetString("voice")
			out, _ := cmd.Flags().GetString("out")

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			absOut, err := filepath.Abs(out)
			if err != nil {
				return err
			}
			cfg.OutputDir = filepath.Dir(absOut)

			ctx, cancel := signalContext()
			defer cancel()
			ctx, cancelTimeout := context.WithTimeout(ctx, cfg.JobTimeout)
			defer cancelTimeout()

			pipeline, _, err := services.NewPipelineFromConfig(ctx, cfg, logger)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(ctx, services.PipelineInput{
				JobID:          uuid.New().String(),
				VideoPath:      videoPath,
				Description:    text,
				TargetLanguage: lang,
				Voice:          voice,
			}, cfg.Settings(), func(stage string, percent int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", percent, stage)
			})
			if err != nil {
				return err
			}
			if err := os.Rename(result, absOut); err != nil {
				return fmt.Errorf("failed to move output: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), absOut)
			return nil
		},
	}
	cmd.Flags().String("video", "", "Input video file")
	cmd.Flags().String("text", "", "Narration text (English)")
	cmd.Flags().String("lang", "en", "Target language code")
	cmd.Flags().String("voice", "", "Voice name (defaults to DEFAULT_TTS_VOICE)")
	cmd.Flags().String("out", "narrated.mp4", "Output video file")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Print container and stream details as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx, cancel := signalContext()
			defer cancel()

			prober := services.NewMediaProber(utils.NewFFmpegRunner(cfg.FFmpegPath, cfg.FFprobePath, cfg.MediaTimeout))
			info, err := prober.ProbeInfo(ctx, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process jobs from the Redis queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cfg.RedisURL == "" || cfg.DatabaseURL == "" {
				return errors.New("worker requires REDIS_URL and DATABASE_URL")
			}

			ctx, cancel := signalContext()
			defer cancel()

			db, err := store.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			rdb, err := queue.NewRedisClient(cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			pipeline, _, err := services.NewPipelineFromConfig(ctx, cfg, logger)
			if err != nil {
				return err
			}
			runner := services.NewJobRunner(pipeline, store.NewGormJobStore(db), store.NewGormSettings(db),
				cfg.Settings(), cfg.MaxConcurrentJobs, cfg.JobTimeout, logger)
			defer runner.Shutdown()

			q := queue.NewRedisQueue(rdb, cfg.JobQueue, logger)
			errCh := make(chan error, cfg.MaxConcurrentJobs)
			for i := 0; i < cfg.MaxConcurrentJobs; i++ {
				go func() { errCh <- q.Listen(ctx, runner.Process) }()
			}
			for i := 0; i < cfg.MaxConcurrentJobs; i++ {
				if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			}
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			token, err := handlers.GenerateJWT(cfg.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "admin", "Token subject")
	cmd.Flags().Duration("ttl", 7*24*time.Hour, "Token lifetime")
	return cmd
}
