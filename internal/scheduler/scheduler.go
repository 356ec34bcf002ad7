package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultRunTimeout = 2 * time.Minute

var (
	instance     *runner
	instanceOnce sync.Once
	instanceErr  error
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
	ErrNilTask        = errors.New("job task is required")
)

// Task is one run of a scheduled job. Its context carries the run deadline
// and a logger tagged with the job name.
type Task func(ctx context.Context) error

type jobSpec struct {
	name     string
	cronExpr string
	// timeout bounds each run; zero means defaultRunTimeout.
	timeout time.Duration
	task    Task
}

type runner struct {
	scheduler gocron.Scheduler
	stopOnce  sync.Once
	stopErr   error
}

// Init creates the process-wide scheduler.
func Init() error {
	instanceOnce.Do(func() {
		sched, err := gocron.NewScheduler(
			gocron.WithLogger(gocronLogger{logger: log.With().Str("component", "scheduler").Logger()}),
			gocron.WithGlobalJobOptions(
				gocron.WithSingletonMode(gocron.LimitModeReschedule),
				gocron.WithEventListeners(
					gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
						log.Error().
							Str("job_id", jobID.String()).
							Str("job_name", jobName).
							Interface("panic", recoverData).
							Msg("Scheduler job panicked")
					}),
				),
			),
		)
		if err != nil {
			instanceErr = err
			return
		}
		instance = &runner{scheduler: sched}
		log.Info().Msg("Scheduler initialized")
	})
	return instanceErr
}

func current() (*runner, error) {
	if instance == nil && instanceErr == nil {
		return nil, ErrNotInitialized
	}
	return instance, instanceErr
}

// Start begins running registered jobs.
func Start() error {
	r, err := current()
	if err != nil {
		return err
	}
	log.Info().Msg("Scheduler starting")
	r.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs to return.
func Stop() error {
	r, err := current()
	if err != nil {
		return err
	}
	return r.stop()
}

func (r *runner) stop() error {
	if r == nil {
		return ErrNotInitialized
	}
	r.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		r.stopErr = r.scheduler.Shutdown()
	})
	return r.stopErr
}

func addJob(spec jobSpec) (gocron.Job, error) {
	r, err := current()
	if err != nil {
		return nil, err
	}
	return r.add(spec)
}

// add registers spec on its cron schedule. A run that comes due while the
// previous one is still going is skipped.
func (r *runner) add(spec jobSpec) (gocron.Job, error) {
	if r == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(spec.name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(spec.cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	if spec.task == nil {
		return nil, ErrNilTask
	}
	jobLogger := log.With().Str("job_name", spec.name).Str("cron", spec.cronExpr).Logger()

	job, err := r.scheduler.NewJob(
		gocron.CronJob(spec.cronExpr, false),
		gocron.NewTask(spec.run(jobLogger)),
		gocron.WithName(spec.name),
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}

// run wraps the task with its deadline and logger.
func (spec jobSpec) run(jobLogger zerolog.Logger) func() {
	timeout := spec.timeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		start := time.Now()
		if err := spec.task(ctx); err != nil {
			jobLogger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Scheduler job failed")
			return
		}
		jobLogger.Debug().Dur("elapsed", time.Since(start)).Msg("Scheduler job completed")
	}
}

// gocronLogger routes gocron's own logging through zerolog. args are
// alternating keys and values.
type gocronLogger struct {
	logger zerolog.Logger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.logger.Debug().Fields(args).Msg(msg) }
func (l gocronLogger) Info(msg string, args ...any)  { l.logger.Info().Fields(args).Msg(msg) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.logger.Warn().Fields(args).Msg(msg) }
func (l gocronLogger) Error(msg string, args ...any) { l.logger.Error().Fields(args).Msg(msg) }
