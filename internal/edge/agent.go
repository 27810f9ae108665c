package edge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// Submitter posts one record to the cloud. Implemented by *Client.
type Submitter interface {
	Submit(ctx context.Context, sub ir.Submission) (int64, error)
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	Attempted int     `json:"attempted"`
	Synced    int     `json:"synced"`
	Failed    int     `json:"failed"`
	Pending   int     `json:"pending"` // unsynced records left untried after an abort
	Seqs      []int64 `json:"sequence_ids"`
}

// Agent pushes unsynced local records to the cloud.
type Agent struct {
	log    *Log
	client Submitter
	logger *slog.Logger
}

// NewAgent creates an agent over the local log and cloud client.
func NewAgent(log *Log, client Submitter, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Agent{log: log, client: client, logger: logger}
}

// SyncOnce submits every unsynced record, oldest first.
//
// A record the cloud rejects as invalid is marked failed and the pass moves
// on. Authentication failures, an unavailable store, and transport errors
// abort the pass, since every remaining record would fail the same way.
// In every failure case the record stays unsynced for the next pass.
func (a *Agent) SyncOnce(ctx context.Context) (SyncResult, error) {
	pending, err := a.log.ListUnsynced(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{Seqs: []int64{}}
	for i, rec := range pending {
		if err := ctx.Err(); err != nil {
			result.Pending = len(pending) - i
			return result, err
		}

		result.Attempted++
		seq, err := a.client.Submit(ctx, rec.Submission())
		if err != nil {
			result.Failed++
			if markErr := a.log.MarkFailed(ctx, rec.ID, err); markErr != nil {
				return result, markErr
			}
			a.logger.Warn("sync failed", "id", rec.ID, "report_id", rec.ReportID, "code", ir.CodeOf(err), "error", err)

			if !ir.IsValidationError(err) {
				result.Pending = len(pending) - i - 1
				return result, fmt.Errorf("sync aborted: %w", err)
			}
			continue
		}

		if err := a.log.MarkSynced(ctx, rec.ID, seq); err != nil {
			return result, err
		}
		result.Synced++
		result.Seqs = append(result.Seqs, seq)
		a.logger.Info("synced record", "id", rec.ID, "report_id", rec.ReportID, "sequence_id", seq)
	}
	return result, nil
}

// Run performs a sync pass on every tick of schedule until ctx is done.
// Passes never overlap; a tick that fires while a pass is running is skipped.
func (a *Agent) Run(ctx context.Context, schedule cron.Schedule) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(a.logger.Handler(), slog.LevelDebug))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger)), cron.WithLogger(cronLogger))

	c.Schedule(schedule, cron.FuncJob(func() {
		res, err := a.SyncOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("scheduled sync pass failed", "error", err, "synced", res.Synced, "failed", res.Failed)
			return
		}
		a.logger.Debug("scheduled sync pass", "attempted", res.Attempted, "synced", res.Synced, "failed", res.Failed)
	}))

	c.Start()
	a.logger.Info("edge sync agent started")
	<-ctx.Done()
	<-c.Stop().Done()
	a.logger.Info("edge sync agent stopped")
	return nil
}
