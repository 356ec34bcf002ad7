package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestAddJobValidation(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		spec jobSpec
		want error
	}{
		{"empty name", jobSpec{name: " ", cronExpr: "*/5 * * * *", task: noop}, ErrEmptyJobName},
		{"empty cron", jobSpec{name: "job", task: noop}, ErrEmptyCronExpr},
		{"nil task", jobSpec{name: "job", cronExpr: "*/5 * * * *"}, ErrNilTask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := addJob(tt.spec); !errors.Is(err, tt.want) {
				t.Fatalf("addJob() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := addJob(jobSpec{name: "bad_cron", cronExpr: "every minute", task: noop}); err == nil {
		t.Fatalf("addJob() accepted an invalid cron expression")
	}
	if _, err := addJob(jobSpec{name: "ok", cronExpr: "*/5 * * * *", task: noop}); err != nil {
		t.Fatalf("addJob() error = %v", err)
	}
}

func TestRunnerMethodsRequireInit(t *testing.T) {
	var r *runner
	if _, err := r.add(jobSpec{name: "job", cronExpr: "* * * * *"}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("add() error = %v, want ErrNotInitialized", err)
	}
	if err := r.stop(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("stop() error = %v, want ErrNotInitialized", err)
	}
}

func TestJobRunCarriesDeadlineAndLogger(t *testing.T) {
	var buf bytes.Buffer
	jobLogger := zerolog.New(&buf).With().Str("job_name", "nightly").Logger()

	var hadDeadline bool
	spec := jobSpec{
		name:     "nightly",
		cronExpr: "0 3 * * *",
		task: func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			log.Ctx(ctx).Info().Msg("inside task")
			return nil
		},
	}
	spec.run(jobLogger)()

	if !hadDeadline {
		t.Fatalf("task ran without a deadline")
	}
	if line := buf.String(); !strings.Contains(line, "inside task") || !strings.Contains(line, `"job_name":"nightly"`) {
		t.Fatalf("task log = %q, want job-scoped logger", buf.String())
	}
}

func TestJobRunTimesOutAndLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	jobLogger := zerolog.New(&buf)

	var got error
	spec := jobSpec{
		name:    "slow",
		timeout: 10 * time.Millisecond,
		task: func(ctx context.Context) error {
			<-ctx.Done()
			got = ctx.Err()
			return got
		},
	}
	spec.run(jobLogger)()

	if !errors.Is(got, context.DeadlineExceeded) {
		t.Fatalf("task context error = %v, want deadline exceeded", got)
	}
	if !strings.Contains(buf.String(), "Scheduler job failed") {
		t.Fatalf("job log = %q, want failure entry", buf.String())
	}
}

type stubRefresher struct {
	refreshed int
	err       error
}

func (s *stubRefresher) RefreshAll(ctx context.Context) (int, error) {
	return s.refreshed, s.err
}

func TestRefreshTask(t *testing.T) {
	ctx := context.Background()
	if err := refreshTask(&stubRefresher{refreshed: 3})(ctx); err != nil {
		t.Fatalf("refreshTask() error = %v", err)
	}

	dbDown := errors.New("db down")
	err := refreshTask(&stubRefresher{refreshed: 1, err: dbDown})(ctx)
	if !errors.Is(err, dbDown) {
		t.Fatalf("refreshTask() error = %v, want %v", err, dbDown)
	}
}

func TestRegisterStandingsRefreshJobRequiresRefresher(t *testing.T) {
	if err := RegisterStandingsRefreshJob(nil, "*/5 * * * *", time.Minute); err == nil {
		t.Fatalf("RegisterStandingsRefreshJob(nil) error = nil, want error")
	}
}
