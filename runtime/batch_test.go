package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/emberjournal/ember/insight"
	"github.com/emberjournal/ember/journal"
	"github.com/rs/zerolog"
)

type fakeUserSource struct {
	users []journal.UserRef
	err   error
}

func (f *fakeUserSource) FetchActiveUsers(ctx context.Context) ([]journal.UserRef, error) {
	return f.users, f.err
}

type fakeReporter struct {
	calls []string
}

func (f *fakeReporter) GenerateReport(ctx context.Context, userID string) insight.Report {
	f.calls = append(f.calls, userID)
	return insight.Report{Summary: "summary for " + userID}
}

type fakeSink struct {
	saved  map[string]string
	failOn string
}

func (f *fakeSink) SaveReportDigest(ctx context.Context, userID, summary string) error {
	if userID == f.failOn {
		return errors.New("digest store unavailable")
	}
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	f.saved[userID] = summary
	return nil
}

func newTestJob(t *testing.T, users *fakeUserSource, reporter *fakeReporter, sink *fakeSink) *BatchJob {
	t.Helper()
	// High rate so the limiter never stalls the test.
	job, err := NewBatchJob(users, reporter, sink, "0 3 * * *", 60000, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBatchJob failed: %v", err)
	}
	return job
}

func TestRunOnceProcessesAllUsers(t *testing.T) {
	users := &fakeUserSource{users: []journal.UserRef{{ID: "alice"}, {ID: "bob"}, {ID: "carol"}}}
	reporter := &fakeReporter{}
	sink := &fakeSink{}
	job := newTestJob(t, users, reporter, sink)

	processed := job.RunOnce(context.Background())
	if processed != 3 {
		t.Fatalf("expected 3 users processed, got %d", processed)
	}
	if len(reporter.calls) != 3 {
		t.Fatalf("expected 3 report calls, got %d", len(reporter.calls))
	}
	if sink.saved["bob"] != "summary for bob" {
		t.Errorf("expected bob's digest to be saved, got %q", sink.saved["bob"])
	}
}

func TestRunOnceContinuesPastSinkFailure(t *testing.T) {
	users := &fakeUserSource{users: []journal.UserRef{{ID: "alice"}, {ID: "bob"}, {ID: "carol"}}}
	reporter := &fakeReporter{}
	sink := &fakeSink{failOn: "bob"}
	job := newTestJob(t, users, reporter, sink)

	processed := job.RunOnce(context.Background())
	if processed != 2 {
		t.Fatalf("expected 2 users processed after one failure, got %d", processed)
	}
	if len(reporter.calls) != 3 {
		t.Fatalf("expected all 3 users attempted, got %d", len(reporter.calls))
	}
	if _, ok := sink.saved["carol"]; !ok {
		t.Error("expected carol to be processed after bob's failure")
	}
}

func TestRunOnceNoUsers(t *testing.T) {
	job := newTestJob(t, &fakeUserSource{}, &fakeReporter{}, &fakeSink{})
	if got := job.RunOnce(context.Background()); got != 0 {
		t.Fatalf("expected 0 processed for empty user list, got %d", got)
	}
}

func TestRunOnceUserFetchError(t *testing.T) {
	users := &fakeUserSource{err: errors.New("db locked")}
	reporter := &fakeReporter{}
	job := newTestJob(t, users, reporter, &fakeSink{})

	if got := job.RunOnce(context.Background()); got != 0 {
		t.Fatalf("expected 0 processed on fetch error, got %d", got)
	}
	if len(reporter.calls) != 0 {
		t.Fatalf("expected no report calls on fetch error, got %d", len(reporter.calls))
	}
}

func TestRunOnceStopsOnCancelledContext(t *testing.T) {
	users := &fakeUserSource{users: []journal.UserRef{{ID: "alice"}, {ID: "bob"}}}
	reporter := &fakeReporter{}
	job := newTestJob(t, users, reporter, &fakeSink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := job.RunOnce(ctx); got != 0 {
		t.Fatalf("expected 0 processed under cancelled context, got %d", got)
	}
}

func TestNewBatchJobDefaults(t *testing.T) {
	job, err := NewBatchJob(&fakeUserSource{}, &fakeReporter{}, nil, "", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBatchJob failed: %v", err)
	}
	if job.schedule != "0 3 * * *" {
		t.Errorf("expected default schedule, got %q", job.schedule)
	}
}

func TestNewBatchJobRequiresCollaborators(t *testing.T) {
	if _, err := NewBatchJob(nil, &fakeReporter{}, nil, "", 0, zerolog.Nop()); err == nil {
		t.Error("expected error when user source is nil")
	}
	if _, err := NewBatchJob(&fakeUserSource{}, nil, nil, "", 0, zerolog.Nop()); err == nil {
		t.Error("expected error when reporter is nil")
	}
}
