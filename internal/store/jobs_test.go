package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stillmind/api/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestTrack(t *testing.T, s *Store) *model.Track {
	t.Helper()
	cfg := model.TrackConfig{
		Voice: model.VoiceSettings{Provider: model.TTSProviderOpenAI, VoiceID: "alloy", Speed: 1.0},
		Output: model.OutputConfig{
			Format:      model.OutputFormatWAV,
			Quality:     model.QualityStandard,
			DurationMin: 10,
			LoopMode:    model.LoopModeNone,
		},
		Gains: model.DefaultGains(),
	}
	track, err := s.CreateTrack(context.Background(), "user-1", "Evening wind-down", "Close your eyes.", cfg)
	if err != nil {
		t.Fatalf("failed to create track: %v", err)
	}
	return track
}

func enqueueTestJob(t *testing.T, s *Store, trackID string) *model.AudioJob {
	t.Helper()
	job, err := s.Enqueue(context.Background(), trackID, "user-1", []byte(`{"script":"Close your eyes."}`))
	if err != nil {
		t.Fatalf("failed to enqueue job: %v", err)
	}
	return job
}

func TestEnqueueStartsPending(t *testing.T) {
	s := openTestStore(t)
	track := newTestTrack(t, s)

	job := enqueueTestJob(t, s, track.ID)
	if job.Status != model.JobStatusPending {
		t.Errorf("expected pending, got %s", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("expected progress 0, got %d", job.Progress)
	}
	if job.StartedAt != nil {
		t.Error("expected nil started_at before claim")
	}
	if string(job.Payload) != `{"script":"Close your eyes."}` {
		t.Errorf("payload mismatch: %s", job.Payload)
	}
}

func TestClaimJobTransition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)
	job := enqueueTestJob(t, s, track.ID)

	claimed, err := s.ClaimJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected to win the claim")
	}
	if claimed.Status != model.JobStatusProcessing {
		t.Errorf("expected processing, got %s", claimed.Status)
	}
	if claimed.StartedAt == nil {
		t.Error("expected started_at to be set")
	}

	// A second claim on the same row must lose.
	again, err := s.ClaimJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if again != nil {
		t.Error("second claim should return nil")
	}
}

func TestClaimJobSingleWinnerUnderContention(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)
	job := enqueueTestJob(t, s, track.ID)

	const racers = 10
	var wg sync.WaitGroup
	wins := make(chan string, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.ClaimJob(ctx, job.ID)
			if err != nil {
				t.Errorf("claim errored: %v", err)
				return
			}
			if claimed != nil {
				wins <- claimed.ID
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one winner, got %d", count)
	}
}

func TestProgressWriteRequiresProcessing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)
	job := enqueueTestJob(t, s, track.ID)

	// Still pending: the checkpoint must be a no-op.
	if err := s.UpdateJobProgress(ctx, job.ID, time.Now(), 50, "Mixing layers"); err != nil {
		t.Fatalf("progress write errored: %v", err)
	}
	got, _ := s.GetJob(ctx, job.ID)
	if got.Progress != 0 || got.Stage != "" {
		t.Errorf("pending job was scribbled on: progress=%d stage=%q", got.Progress, got.Stage)
	}

	claimed, err := s.ClaimJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := s.UpdateJobProgress(ctx, job.ID, *claimed.StartedAt, 50, "Mixing layers"); err != nil {
		t.Fatalf("progress write errored: %v", err)
	}
	got, _ = s.GetJob(ctx, job.ID)
	if got.Progress != 50 || got.Stage != "Mixing layers" {
		t.Errorf("checkpoint not recorded: progress=%d stage=%q", got.Progress, got.Stage)
	}
}

func TestCompleteJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)
	job := enqueueTestJob(t, s, track.ID)

	// Completing a pending job must fail: only a claim holder finishes work.
	if err := s.CompleteJob(ctx, job.ID, "https://cdn.example.com/a.wav"); err == nil {
		t.Error("expected error completing an unclaimed job")
	}

	if _, err := s.ClaimJob(ctx, job.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := s.CompleteJob(ctx, job.ID, "https://cdn.example.com/a.wav"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	got, _ := s.GetJob(ctx, job.ID)
	if got.Status != model.JobStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("expected progress 100, got %d", got.Progress)
	}
	if got.Stage != "" {
		t.Errorf("expected cleared stage, got %q", got.Stage)
	}
	if got.OutputURL != "https://cdn.example.com/a.wav" {
		t.Errorf("output URL not recorded: %q", got.OutputURL)
	}
}

func TestFailJobPersistsMessage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)
	job := enqueueTestJob(t, s, track.ID)

	if _, err := s.ClaimJob(ctx, job.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := s.FailJob(ctx, job.ID, "voice synthesis: provider timeout"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	got, _ := s.GetJob(ctx, job.ID)
	if got.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.ErrorMessage != "voice synthesis: provider timeout" {
		t.Errorf("error message not recorded: %q", got.ErrorMessage)
	}
}

func TestTerminalJobsAreImmutable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)
	job := enqueueTestJob(t, s, track.ID)

	if _, err := s.ClaimJob(ctx, job.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := s.CompleteJob(ctx, job.ID, "https://cdn.example.com/a.wav"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	// No transition out of a terminal state.
	if claimed, _ := s.ClaimJob(ctx, job.ID); claimed != nil {
		t.Error("claimed a completed job")
	}
	if err := s.FailJob(ctx, job.ID, "late failure"); err == nil {
		t.Error("failed a completed job")
	}
	if err := s.UpdateJobProgress(ctx, job.ID, time.Now(), 10, "Synthesizing voice"); err != nil {
		t.Fatalf("progress write errored: %v", err)
	}

	got, _ := s.GetJob(ctx, job.ID)
	if got.Status != model.JobStatusCompleted || got.Progress != 100 {
		t.Errorf("terminal job mutated: status=%s progress=%d", got.Status, got.Progress)
	}
}

func TestReapStuckResetsExpiredLeases(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)
	expired := enqueueTestJob(t, s, track.ID)
	fresh := enqueueTestJob(t, s, track.ID)

	for _, id := range []string{expired.ID, fresh.ID} {
		claimed, err := s.ClaimJob(ctx, id)
		if err != nil {
			t.Fatalf("claim failed: %v", err)
		}
		if err := s.UpdateJobProgress(ctx, id, *claimed.StartedAt, 50, "Mixing layers"); err != nil {
			t.Fatalf("progress write failed: %v", err)
		}
	}

	// Age one lease past the cutoff.
	stale := formatTime(time.Now().Add(-30 * time.Minute))
	if _, err := s.db.ExecContext(ctx, `UPDATE audio_jobs SET started_at = ? WHERE id = ?`, stale, expired.ID); err != nil {
		t.Fatalf("failed to age lease: %v", err)
	}

	reset, err := s.ReapStuck(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("reap failed: %v", err)
	}
	if reset != 1 {
		t.Errorf("expected 1 reset, got %d", reset)
	}

	got, _ := s.GetJob(ctx, expired.ID)
	if got.Status != model.JobStatusPending {
		t.Errorf("expected reaped job pending, got %s", got.Status)
	}
	if got.Progress != 0 || got.Stage != "" || got.StartedAt != nil {
		t.Errorf("reaped job not reset: progress=%d stage=%q startedAt=%v", got.Progress, got.Stage, got.StartedAt)
	}

	// The fresh lease is untouched and the reaped job can be claimed again.
	gotFresh, _ := s.GetJob(ctx, fresh.ID)
	if gotFresh.Status != model.JobStatusProcessing {
		t.Errorf("fresh lease was reaped: %s", gotFresh.Status)
	}
	reclaimed, err := s.ClaimJob(ctx, expired.ID)
	if err != nil || reclaimed == nil {
		t.Errorf("reaped job not claimable: %v", err)
	}
}

func TestPendingJobIDsOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)

	var ids []string
	for i := 0; i < 4; i++ {
		job := enqueueTestJob(t, s, track.ID)
		ids = append(ids, job.ID)
		time.Sleep(5 * time.Millisecond) // distinct created_at
	}

	got, err := s.PendingJobIDs(ctx, 3)
	if err != nil {
		t.Fatalf("pending query failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(got))
	}
	for i := range got {
		if got[i] != ids[i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i], got[i])
		}
	}
}

func TestCountJobsByStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)

	first := enqueueTestJob(t, s, track.ID)
	enqueueTestJob(t, s, track.ID)
	if _, err := s.ClaimJob(ctx, first.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	pending, err := s.CountJobsByStatus(ctx, model.JobStatusPending)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if pending != 1 {
		t.Errorf("expected 1 pending, got %d", pending)
	}
	processing, _ := s.CountJobsByStatus(ctx, model.JobStatusProcessing)
	if processing != 1 {
		t.Errorf("expected 1 processing, got %d", processing)
	}
}

func TestProgressWriteFencedByLease(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)
	job := enqueueTestJob(t, s, track.ID)

	first, err := s.ClaimJob(ctx, job.ID)
	if err != nil || first == nil {
		t.Fatalf("first claim failed: %v", err)
	}

	// Expire the first lease and hand the job to a second claimant.
	stale := formatTime(time.Now().Add(-30 * time.Minute))
	if _, err := s.db.ExecContext(ctx, `UPDATE audio_jobs SET started_at = ? WHERE id = ?`, stale, job.ID); err != nil {
		t.Fatalf("failed to age lease: %v", err)
	}
	if reset, err := s.ReapStuck(ctx, 10*time.Minute); err != nil || reset != 1 {
		t.Fatalf("reap failed: reset=%d err=%v", reset, err)
	}
	second, err := s.ClaimJob(ctx, job.ID)
	if err != nil || second == nil {
		t.Fatalf("second claim failed: %v", err)
	}

	// A checkpoint carrying the dead lease must not land on the new
	// claimant's row.
	if err := s.UpdateJobProgress(ctx, job.ID, *first.StartedAt, 85, "Encoding"); err != nil {
		t.Fatalf("stale progress write errored: %v", err)
	}
	got, _ := s.GetJob(ctx, job.ID)
	if got.Progress != 0 || got.Stage != "" {
		t.Errorf("stale lease scribbled on reclaimed job: progress=%d stage=%q", got.Progress, got.Stage)
	}

	// The live claimant's checkpoint lands as usual.
	if err := s.UpdateJobProgress(ctx, job.ID, *second.StartedAt, 85, "Encoding"); err != nil {
		t.Fatalf("progress write errored: %v", err)
	}
	got, _ = s.GetJob(ctx, job.ID)
	if got.Progress != 85 || got.Stage != "Encoding" {
		t.Errorf("live checkpoint not recorded: progress=%d stage=%q", got.Progress, got.Stage)
	}
}

func TestLatestJobForTrack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	track := newTestTrack(t, s)

	if job, err := s.LatestJobForTrack(ctx, track.ID); err != nil || job != nil {
		t.Fatalf("expected no job for fresh track, got %v (err %v)", job, err)
	}

	first := enqueueTestJob(t, s, track.ID)
	time.Sleep(5 * time.Millisecond) // distinct created_at
	second := enqueueTestJob(t, s, track.ID)

	got, err := s.LatestJobForTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("latest job query failed: %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Errorf("expected latest job %s, got %v (first was %s)", second.ID, got, first.ID)
	}
}
