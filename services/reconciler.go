package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vidnarrate/models"
	"vidnarrate/utils"
)

// NewReconciliationPlan decides how audio of length audio is fitted to a
// video of length video. Both durations must be positive.
func NewReconciliationPlan(video, audio float64) models.ReconciliationPlan {
	plan := models.ReconciliationPlan{VideoDuration: video, AudioDuration: audio}
	switch {
	case math.Abs(video-audio) < models.DurationTolerance:
		plan.Strategy = models.StrategyIdentity
	case audio > video:
		plan.Strategy = models.StrategyTrim
	default:
		plan.Strategy = models.StrategyLoopToFit
		plan.LoopCount = int(math.Floor(video/audio)) + 1
	}
	return plan
}

// Reconciler makes narration audio exactly as long as the video it will be muxed into.
type Reconciler struct {
	tool   utils.MediaTool
	prober *MediaProber
	logger *zap.Logger
}

func NewReconciler(tool utils.MediaTool, prober *MediaProber, logger *zap.Logger) *Reconciler {
	return &Reconciler{tool: tool, prober: prober, logger: logger.Named("reconciler")}
}

// Reconcile writes a fitted copy of audioPath to outputPath. When looping
// fails the audio is padded with silence instead; Applied reports which ran.
func (r *Reconciler) Reconcile(ctx context.Context, audioPath, videoPath, outputPath string) (models.ReconcileResult, error) {
	var videoDur, audioDur models.MediaDuration
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		videoDur, err = r.prober.ProbeDuration(gctx, videoPath)
		return err
	})
	g.Go(func() error {
		var err error
		audioDur, err = r.prober.ProbeDuration(gctx, audioPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.ReconcileResult{}, &ReconciliationError{Err: err}
	}

	if videoDur.Seconds <= 0 || audioDur.Seconds <= 0 {
		return models.ReconcileResult{}, &ReconciliationError{
			Err: fmt.Errorf("cannot fit audio of %.3fs to video of %.3fs", audioDur.Seconds, videoDur.Seconds),
		}
	}

	plan := NewReconciliationPlan(videoDur.Seconds, audioDur.Seconds)
	log := r.logger.With(
		zap.String("strategy", string(plan.Strategy)),
		zap.Float64("video_duration", plan.VideoDuration),
		zap.Float64("audio_duration", plan.AudioDuration))

	result := models.ReconcileResult{OutputPath: outputPath, Plan: plan, Applied: plan.Strategy}
	var err error
	switch plan.Strategy {
	case models.StrategyIdentity:
		log.Info("durations match, copying audio")
		if err = utils.CopyFile(audioPath, outputPath); err != nil {
			err = &ReconciliationError{Strategy: plan.Strategy, Err: err}
		}
	case models.StrategyTrim:
		log.Info("trimming audio")
		err = r.trim(ctx, plan, audioPath, outputPath)
	case models.StrategyLoopToFit:
		log.Info("looping audio", zap.Int("loop_count", plan.LoopCount))
		if loopErr := r.loop(ctx, plan, audioPath, outputPath); loopErr != nil {
			if ctx.Err() != nil {
				err = &ReconciliationError{Strategy: plan.Strategy, Stderr: stderrOf(loopErr), Err: loopErr}
				break
			}
			log.Warn("looping failed, padding with silence instead",
				zap.String("stderr", stderrOf(loopErr)),
				zap.Error(loopErr))
			result.Applied = models.StrategyPad
			err = r.pad(ctx, plan, audioPath, outputPath)
		}
	}
	if err != nil {
		os.Remove(outputPath)
		return models.ReconcileResult{}, err
	}
	return result, nil
}

func (r *Reconciler) trim(ctx context.Context, plan models.ReconciliationPlan, audioPath, outputPath string) error {
	err := r.tool.RunFFmpeg(ctx,
		"-i", audioPath,
		"-t", utils.FormatSeconds(plan.VideoDuration),
		"-y", outputPath,
	)
	if err != nil {
		return &ReconciliationError{Strategy: models.StrategyTrim, Stderr: stderrOf(err), Err: err}
	}
	return nil
}

// loop renders into a sibling file and renames it over outputPath only on success.
func (r *Reconciler) loop(ctx context.Context, plan models.ReconciliationPlan, audioPath, outputPath string) error {
	looped := loopedPath(outputPath)
	err := r.tool.RunFFmpeg(ctx,
		"-stream_loop", fmt.Sprint(plan.LoopCount-1),
		"-i", audioPath,
		"-t", utils.FormatSeconds(plan.VideoDuration),
		"-y", looped,
	)
	if err != nil {
		os.Remove(looped)
		return err
	}
	if err := os.Rename(looped, outputPath); err != nil {
		os.Remove(looped)
		return fmt.Errorf("failed to move looped audio: %w", err)
	}
	return nil
}

func (r *Reconciler) pad(ctx context.Context, plan models.ReconciliationPlan, audioPath, outputPath string) error {
	err := r.tool.RunFFmpeg(ctx,
		"-i", audioPath,
		"-af", "apad=pad_dur="+utils.FormatSeconds(plan.VideoDuration-plan.AudioDuration),
		"-t", utils.FormatSeconds(plan.VideoDuration),
		"-y", outputPath,
	)
	if err != nil {
		return &ReconciliationError{Strategy: models.StrategyPad, Stderr: stderrOf(err), Err: err}
	}
	return nil
}

func loopedPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + "_looped" + ext
}

