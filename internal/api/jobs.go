package api

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizgen/internal/services"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"
)

// finishedJobTTL is how long completed or failed jobs stay pollable.
const finishedJobTTL = time.Hour

// GenerationJob tracks one background generation request that the client polls.
type GenerationJob struct {
	ID        string                     `json:"jobId"`
	Status    string                     `json:"status"`
	FileName  string                     `json:"fileName"`
	CreatedAt time.Time                  `json:"createdAt"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	Step      string                     `json:"step,omitempty"`
	Message   string                     `json:"message,omitempty"`
	Current   int                        `json:"current"`
	Total     int                        `json:"total"`
	Percent   int                        `json:"percent"`
	Result    *services.GenerationResult `json:"result,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*GenerationJob
	ttl  time.Duration
	now  func() time.Time
}

func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*GenerationJob),
		ttl:  finishedJobTTL,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob registers a pending job. Finished jobs older than the TTL are
// evicted on the way.
func (m *JobManager) CreateJob(fileName string) (string, *GenerationJob) {
	now := m.now()
	job := &GenerationJob{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		FileName:  fileName,
		CreatedAt: now,
		UpdatedAt: now,
		Total:     100,
	}

	m.mu.Lock()
	m.evictFinished(now)
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job.ID, job.clone()
}

func (m *JobManager) GetJob(id string) (*GenerationJob, bool) {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

func (m *JobManager) MarkProcessing(id string) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusProcessing
		job.Message = "Starting"
	})
}

func (m *JobManager) UpdateProgress(id, step, message string, current, total int) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusProcessing
		job.Step = step
		job.Message = message
		job.Current = current
		job.Total = total
		job.Percent = percent(current, total)
	})
}

func (m *JobManager) MarkComplete(id string, result *services.GenerationResult) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusComplete
		job.Step = "complete"
		job.Message = "Generation complete"
		job.Current = 100
		job.Total = 100
		job.Percent = 100
		job.Result = result
		job.Error = ""
	})
}

func (m *JobManager) MarkFailed(id, message string) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "generation failed"
	}
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusFailed
		job.Step = "error"
		job.Message = msg
		job.Error = msg
	})
}

func (m *JobManager) withJob(id string, fn func(job *GenerationJob)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = m.now()
}

func (m *JobManager) evictFinished(now time.Time) {
	cutoff := now.Add(-m.ttl)
	for id, job := range m.jobs {
		finished := job.Status == JobStatusComplete || job.Status == JobStatusFailed
		if finished && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

func (job *GenerationJob) clone() *GenerationJob {
	if job == nil {
		return nil
	}
	copyJob := *job
	if job.Result != nil {
		copyJob.Result = &services.GenerationResult{
			Questions:  slices.Clone(job.Result.Questions),
			Flashcards: slices.Clone(job.Result.Flashcards),
		}
	}
	return &copyJob
}

func percent(current, total int) int {
	if total <= 0 {
		if current <= 0 {
			return 0
		}
		if current > 100 {
			return 100
		}
		return current
	}
	if current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	return int((float64(current) / float64(total)) * 100)
}
