package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	StatusResolving   = "resolving"
	StatusDownloading = "downloading"
	StatusRetrying    = "retrying"
	StatusUploading   = "uploading"
	StatusComplete    = "complete"
	StatusError       = "error"
)

type Job struct {
	mu       sync.RWMutex
	id       string
	platform string
	url      string
	status   string
	attempts int
	errMsg   string
	started  time.Time
	finished time.Time
}

// Snapshot is the JSON view of a job.
type Snapshot struct {
	ID       string     `json:"id"`
	Platform string     `json:"platform"`
	URL      string     `json:"url"`
	Status   string     `json:"status"`
	Attempts int        `json:"attempts"`
	Error    string     `json:"error,omitempty"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished,omitempty"`
}

func (j *Job) ID() string {
	return j.id
}

func (j *Job) SetURL(url string) {
	j.mu.Lock()
	j.url = url
	j.mu.Unlock()
}

func (j *Job) SetStatus(status string) {
	j.mu.Lock()
	j.status = status
	if status == StatusDownloading || status == StatusRetrying {
		j.attempts++
	}
	j.mu.Unlock()
}

func (j *Job) SetError(errMsg string) {
	j.mu.Lock()
	j.status = StatusError
	j.errMsg = errMsg
	j.finished = time.Now()
	j.mu.Unlock()
}

func (j *Job) SetComplete() {
	j.mu.Lock()
	j.status = StatusComplete
	j.finished = time.Now()
	j.mu.Unlock()
}

func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s := Snapshot{
		ID:       j.id,
		Platform: j.platform,
		URL:      j.url,
		Status:   j.status,
		Attempts: j.attempts,
		Error:    j.errMsg,
		Started:  j.started,
	}
	if !j.finished.IsZero() {
		f := j.finished
		s.Finished = &f
	}
	return s
}

// Tracker keeps the most recent jobs, oldest evicted first.
type Tracker struct {
	mu   sync.Mutex
	max  int
	jobs []*Job
}

func NewTracker(max int) *Tracker {
	if max <= 0 {
		max = 50
	}
	return &Tracker{max: max}
}

func (t *Tracker) Start(platform, url string) *Job {
	j := &Job{
		id:       uuid.New().String(),
		platform: platform,
		url:      url,
		status:   StatusResolving,
		started:  time.Now(),
	}
	t.mu.Lock()
	t.jobs = append(t.jobs, j)
	if len(t.jobs) > t.max {
		t.jobs = t.jobs[len(t.jobs)-t.max:]
	}
	t.mu.Unlock()
	return j
}

// Recent returns snapshots newest first.
func (t *Tracker) Recent() []Snapshot {
	t.mu.Lock()
	jobs := make([]*Job, len(t.jobs))
	copy(jobs, t.jobs)
	t.mu.Unlock()

	out := make([]Snapshot, 0, len(jobs))
	for i := len(jobs) - 1; i >= 0; i-- {
		out = append(out, jobs[i].Snapshot())
	}
	return out
}

// Counts returns the number of tracked jobs per status.
func (t *Tracker) Counts() map[string]int {
	counts := make(map[string]int)
	for _, s := range t.Recent() {
		counts[s.Status]++
	}
	return counts
}
