package pipeline

import (
	"context"
	"log/slog"
)

// Worker runs ranking jobs through a Processor.
type Worker struct {
	proc *Processor
	log  *slog.Logger
}

func NewWorker(proc *Processor, log *slog.Logger) *Worker {
	return &Worker{proc: proc, log: log}
}

// Process runs one ranking job to completion. Per-document and per-section
// failures never fail the job unless nothing could be ranked at all.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	inputs := job.Inputs()
	defer job.releaseInputs()

	job.SetStatus(StatusOutlining, "outlining")
	log.Info("job started", "documents", len(inputs))

	res := w.proc.Rank(ctx, Request{
		Inputs:  inputs,
		Persona: job.Persona,
		Task:    job.Task,
		TopK:    job.TopK,
		OnDocument: func(r DocResult) {
			job.DocumentDone(r)
			snap := job.Snapshot()
			if snap.Progress.DocumentsProcessed == snap.Progress.TotalDocuments {
				job.SetStatus(StatusRanking, "ranking")
			}
		},
	})

	rec := res.Record()
	job.SetResult(rec)
	for _, om := range rec.Metadata.OmittedSections {
		job.AddError(om.Document + ": " + om.SectionTitle + ": " + om.Message)
	}

	switch {
	case len(res.Ranked) == 0 && (len(rec.Metadata.FailedDocuments) > 0 || len(res.Omitted) > 0):
		job.SetStatus(StatusFailed, "done")
	case res.Incomplete || len(rec.Metadata.FailedDocuments) > 0 || len(res.Omitted) > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
	log.Info("job finished", "status", job.Snapshot().Status, "ranked", len(res.Ranked))
}
