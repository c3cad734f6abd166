package runtime

import (
	"context"
	"fmt"

	"github.com/emberjournal/ember/insight"
	"github.com/emberjournal/ember/journal"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// UserSource lists the users the batch job should process.
type UserSource interface {
	FetchActiveUsers(ctx context.Context) ([]journal.UserRef, error)
}

// Reporter produces the analytics report for one user.
type Reporter interface {
	GenerateReport(ctx context.Context, userID string) insight.Report
}

// DigestSink records the narrative summary of a generated report.
type DigestSink interface {
	SaveReportDigest(ctx context.Context, userID, summary string) error
}

// BatchJob periodically regenerates insight reports for all active users.
// Users are processed sequentially behind a token bucket so the generation
// service sees a bounded request rate; one user's failure never aborts the
// rest of the run.
type BatchJob struct {
	users    UserSource
	reporter Reporter
	sink     DigestSink
	limiter  *rate.Limiter
	schedule string
	cron     *cron.Cron
	logger   zerolog.Logger
}

// NewBatchJob creates a BatchJob. ratePerMinute bounds how many users are
// processed per minute; schedule is a standard cron spec.
func NewBatchJob(users UserSource, reporter Reporter, sink DigestSink, schedule string, ratePerMinute float64, logger zerolog.Logger) (*BatchJob, error) {
	if users == nil || reporter == nil {
		return nil, fmt.Errorf("users and reporter are required")
	}
	if schedule == "" {
		schedule = "0 3 * * *"
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 6
	}
	return &BatchJob{
		users:    users,
		reporter: reporter,
		sink:     sink,
		limiter:  rate.NewLimiter(rate.Limit(ratePerMinute/60.0), 1),
		schedule: schedule,
		logger:   logger.With().Str("component", "batch_job").Logger(),
	}, nil
}

// Start registers the cron schedule and blocks until the context is
// cancelled.
func (j *BatchJob) Start(ctx context.Context) error {
	j.cron = cron.New()
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid batch schedule %q: %w", j.schedule, err)
	}

	j.logger.Info().Str("schedule", j.schedule).Msg("Starting batch insight job")
	j.cron.Start()

	<-ctx.Done()
	j.logger.Info().Msg("Batch insight job stopped: context cancelled")
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// RunOnce processes every active user immediately, honoring the rate limit.
// It returns the number of users successfully processed.
func (j *BatchJob) RunOnce(ctx context.Context) int {
	users, err := j.users.FetchActiveUsers(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to fetch active users for batch run")
		return 0
	}
	if len(users) == 0 {
		return 0
	}

	j.logger.Info().Int("users", len(users)).Msg("Batch insight run starting")

	processed := 0
	for _, user := range users {
		if err := j.limiter.Wait(ctx); err != nil {
			j.logger.Warn().Err(err).Msg("Batch run interrupted while rate limited")
			return processed
		}
		if err := j.processUser(ctx, user.ID); err != nil {
			j.logger.Error().Str("user_id", user.ID).Err(err).Msg("Batch processing failed for user; continuing")
			continue
		}
		processed++
	}

	j.logger.Info().Int("processed", processed).Int("users", len(users)).Msg("Batch insight run finished")
	return processed
}

func (j *BatchJob) processUser(ctx context.Context, userID string) error {
	report := j.reporter.GenerateReport(ctx, userID)
	if j.sink == nil {
		return nil
	}
	if err := j.sink.SaveReportDigest(ctx, userID, report.Summary); err != nil {
		return fmt.Errorf("save report digest: %w", err)
	}
	return nil
}
