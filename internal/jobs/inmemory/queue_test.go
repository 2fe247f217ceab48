package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/jobs"
	"github.com/rs/zerolog"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ExportDailyJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestQueue_ProcessesJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store, zerolog.Nop())

	handled := make(chan string, 1)
	err := q.Start(context.Background(), func(_ context.Context, job jobs.Job) error {
		export := job.(*jobs.ExportDailyJob)
		export.ExportID = "export-1"
		handled <- export.Date
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer q.Stop(context.Background())

	job := &jobs.ExportDailyJob{Date: "2025-10-31", Format: "csv"}
	if err := q.PublishExportDaily(context.Background(), job); err != nil {
		t.Fatalf("PublishExportDaily failed: %v", err)
	}
	if job.JobID == "" || job.Status != jobs.JobStatusPending || job.CreatedAt.IsZero() {
		t.Errorf("job not initialized: %+v", job)
	}

	if got := <-handled; got != "2025-10-31" {
		t.Errorf("handled date = %s", got)
	}
	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.ExportID != "export-1" || done.StartedAt == nil || done.CompletedAt == nil {
		t.Errorf("unexpected stored job: %+v", done)
	}
}

func TestQueue_FailedJobIsNotRetried(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store, zerolog.Nop())

	calls := make(chan struct{}, 5)
	q.Start(context.Background(), func(context.Context, jobs.Job) error {
		calls <- struct{}{}
		return errors.New("bucket missing")
	})
	defer q.Stop(context.Background())

	job := &jobs.ExportDailyJob{Date: "2025-10-30"}
	q.PublishExportDaily(context.Background(), job)

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.Error != "bucket missing" {
		t.Errorf("Error = %q", failed.Error)
	}
	time.Sleep(50 * time.Millisecond)
	if len(calls) != 1 {
		t.Errorf("handler called %d times, want 1", len(calls))
	}
}

func TestQueue_PanicMarksJobFailed(t *testing.T) {
	store := NewStore()
	q := NewQueue(1, 1, store, zerolog.Nop())
	q.Start(context.Background(), func(context.Context, jobs.Job) error {
		panic("boom")
	})
	defer q.Stop(context.Background())

	job := &jobs.ExportDailyJob{Date: "2025-10-29"}
	q.PublishExportDaily(context.Background(), job)
	waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(1, 1, nil, zerolog.Nop())
	if err := q.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := q.PublishExportDaily(context.Background(), &jobs.ExportDailyJob{}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("err = %v, want ErrQueueClosed", err)
	}
	if err := q.Start(context.Background(), nil); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Start err = %v, want ErrQueueClosed", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)

	for i, date := range []string{"2025-10-29", "2025-10-30", "2025-10-30"} {
		store.SaveJob(ctx, &jobs.ExportDailyJob{
			JobID:     date + string(rune('a'+i)),
			Date:      date,
			Status:    jobs.JobStatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	all, _ := store.ListJobs(ctx, jobs.JobFilter{})
	if len(all) != 3 || all[0].JobID != "2025-10-30c" {
		t.Errorf("ListJobs order = %v", all)
	}

	byDate, _ := store.ListJobs(ctx, jobs.JobFilter{Date: "2025-10-30", Limit: 1})
	if len(byDate) != 1 || byDate[0].Date != "2025-10-30" {
		t.Errorf("filtered = %v", byDate)
	}

	past, _ := store.ListJobs(ctx, jobs.JobFilter{Offset: 5})
	if past == nil || len(past) != 0 {
		t.Errorf("offset past end = %v", past)
	}

	if _, err := store.GetJob(ctx, "missing"); err == nil {
		t.Error("expected not found error")
	}
	if err := store.SaveJob(ctx, &jobs.ExportDailyJob{}); err == nil {
		t.Error("expected error for empty job ID")
	}
}
