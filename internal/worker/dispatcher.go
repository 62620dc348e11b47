package worker

import (
	"context"
	"log"
	"time"

	"github.com/stillmind/api/internal/model"
	"github.com/stillmind/api/internal/store"
	"github.com/stillmind/api/internal/websocket"
)

// Dispatcher drains the pending queue in batches. Each cycle first resets
// jobs whose lease expired, then claims pending jobs one at a time with a
// conditional update so concurrent dispatchers never render the same job.
type Dispatcher struct {
	store        *store.Store
	worker       *RenderWorker
	hub          *websocket.Hub
	batchSize    int
	claimDelay   time.Duration
	leaseTimeout time.Duration
}

func NewDispatcher(st *store.Store, worker *RenderWorker, hub *websocket.Hub, batchSize int, claimDelay, leaseTimeout time.Duration) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 5
	}
	if leaseTimeout <= 0 {
		leaseTimeout = 10 * time.Minute
	}
	return &Dispatcher{
		store:        st,
		worker:       worker,
		hub:          hub,
		batchSize:    batchSize,
		claimDelay:   claimDelay,
		leaseTimeout: leaseTimeout,
	}
}

// RunCycle performs one dispatch pass: reap expired leases, claim up to
// batchSize pending jobs, and render each claimed job sequentially. A failed
// job never aborts the batch.
func (d *Dispatcher) RunCycle(ctx context.Context) (*model.DispatchResponse, error) {
	stuckReset, err := d.store.ReapStuck(ctx, d.leaseTimeout)
	if err != nil {
		return nil, err
	}
	if stuckReset > 0 {
		log.Printf("Reset %d stuck jobs back to pending", stuckReset)
	}

	ids, err := d.store.PendingJobIDs(ctx, d.batchSize)
	if err != nil {
		return nil, err
	}

	results := make([]model.DispatchJobResult, 0, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && d.claimDelay > 0 {
			time.Sleep(d.claimDelay)
		}

		job, err := d.store.ClaimJob(ctx, id)
		if err != nil {
			log.Printf("Failed to claim job %s: %v", id, err)
			results = append(results, model.DispatchJobResult{JobID: id, Status: model.JobStatusPending, Error: err.Error()})
			continue
		}
		if job == nil {
			// Lost the claim race to another dispatcher.
			continue
		}

		results = append(results, d.process(ctx, job))
	}

	pending, err := d.store.CountJobsByStatus(ctx, model.JobStatusPending)
	if err != nil {
		return nil, err
	}

	return &model.DispatchResponse{
		Processed:  len(results),
		Pending:    pending,
		StuckReset: int(stuckReset),
		Results:    results,
	}, nil
}

// process renders one claimed job and records the terminal outcome.
func (d *Dispatcher) process(ctx context.Context, job *model.AudioJob) model.DispatchJobResult {
	log.Printf("Rendering job %s (track %s)", job.ID, job.TrackID)

	url, err := d.worker.Process(ctx, job)
	if err != nil {
		log.Printf("Job %s failed: %v", job.ID, err)
		if ferr := d.store.FailJob(ctx, job.ID, err.Error()); ferr != nil {
			log.Printf("Failed to mark job %s failed: %v", job.ID, ferr)
		}
		if serr := d.store.SetTrackStatus(ctx, job.TrackID, model.TrackStatusDraft); serr != nil {
			log.Printf("Failed to reset track %s status: %v", job.TrackID, serr)
		}
		if d.hub != nil {
			d.hub.BroadcastError(job.ID, "RENDER_FAILED", err.Error())
		}
		return model.DispatchJobResult{JobID: job.ID, TrackID: job.TrackID, Status: model.JobStatusFailed, Error: err.Error()}
	}

	if err := d.store.CompleteJob(ctx, job.ID, url); err != nil {
		log.Printf("Failed to mark job %s completed: %v", job.ID, err)
		return model.DispatchJobResult{JobID: job.ID, TrackID: job.TrackID, Status: model.JobStatusProcessing, Error: err.Error()}
	}
	if err := d.store.SetTrackOutput(ctx, job.TrackID, url); err != nil {
		log.Printf("Failed to publish track %s: %v", job.TrackID, err)
	}
	if d.hub != nil {
		d.hub.BroadcastComplete(job.ID, map[string]string{"outputUrl": url})
	}

	log.Printf("Job %s completed: %s", job.ID, url)
	return model.DispatchJobResult{JobID: job.ID, TrackID: job.TrackID, Status: model.JobStatusCompleted, OutputURL: url}
}
