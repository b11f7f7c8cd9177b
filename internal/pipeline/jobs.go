package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docsift/internal/report"
)

// JobStatus represents the state of a ranking job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusOutlining JobStatus = "outlining"
	StatusRanking   JobStatus = "ranking"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Job tracks the state of one asynchronous ranking batch.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	Persona string `json:"persona"`
	Task    string `json:"task"`
	TopK    int    `json:"top_k"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	inputs []Input
	result *report.RankingRecord
	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalDocuments     int      `json:"total_documents"`
	DocumentsProcessed int      `json:"documents_processed"`
	DocumentsFailed    int      `json:"documents_failed"`
	SectionsRanked     int      `json:"sections_ranked"`
	SectionsOmitted    int      `json:"sections_omitted"`
	Errors             []string `json:"errors"`
}

// NewJob creates a queued job for inputs.
func NewJob(inputs []Input, persona, task string, topK int) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Persona:   persona,
		Task:      task,
		TopK:      topK,
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{TotalDocuments: len(inputs)},
		CreatedAt: now,
		UpdatedAt: now,
		inputs:    inputs,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// DocumentDone records one finished outline.
func (j *Job) DocumentDone(r DocResult) {
	j.mu.Lock()
	j.Progress.DocumentsProcessed++
	if r.Err != nil {
		j.Progress.DocumentsFailed++
	}
	j.UpdatedAt = time.Now()
	j.mu.Unlock()

	if r.Err != nil {
		j.AddError(fmt.Sprintf("%s: %s", r.Name, r.Err))
	}
}

// SetResult stores the finished ranking record.
func (j *Job) SetResult(rec report.RankingRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = &rec
	j.Progress.SectionsRanked = len(rec.ExtractedSections)
	j.Progress.SectionsOmitted = len(rec.Metadata.OmittedSections)
	j.UpdatedAt = time.Now()
}

// Inputs returns the documents submitted with the job.
func (j *Job) Inputs() []Input {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inputs
}

// releaseInputs drops the raw document bytes once they are processed.
func (j *Job) releaseInputs() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inputs = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string                `json:"job_id"`
	Persona  string                `json:"persona"`
	Task     string                `json:"task"`
	Status   JobStatus             `json:"status"`
	Phase    string                `json:"phase"`
	Progress Progress              `json:"progress"`
	Result   *report.RankingRecord `json:"result,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:       j.ID,
		Persona:  j.Persona,
		Task:     j.Task,
		Status:   j.Status,
		Phase:    j.Phase,
		Progress: p,
		Result:   j.result,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
