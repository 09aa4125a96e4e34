package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/conduit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/conduit/internal/shared/id"
)

// Extension is the suffix of spooled job files
const Extension = ".job"

const stampLayout = "2006-01-02_150405"

// Publisher writes jobs to a spool directory
type Publisher struct {
	dir     string
	metrics *monitoring.Metrics
	now     func() time.Time
}

// NewPublisher creates a publisher for dir. An empty dir disables
// publishing.
func NewPublisher(dir string, metrics *monitoring.Metrics) *Publisher {
	return &Publisher{dir: dir, metrics: metrics, now: time.Now}
}

// Dir returns the spool directory
func (p *Publisher) Dir() string { return p.dir }

// Publish spools job and returns the file written. It reports false when
// no storage path is configured.
func (p *Publisher) Publish(job Job) (string, bool, error) {
	if p.dir == "" {
		return "", false, nil
	}
	if job.Command == "" {
		return "", false, fmt.Errorf("publish job: missing command")
	}
	if job.Method == "" {
		job.Method = MainMethod
	}

	now := p.now()
	ulid := id.Default().GenerateString()
	job.ID = ulid
	job.PublishedAt = now.UTC()

	data, err := job.Encode()
	if err != nil {
		return "", false, fmt.Errorf("publish job: %w", err)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", false, fmt.Errorf("publish job: %w", err)
	}

	name := filepath.Join(p.dir, fmt.Sprintf("%s_%s%s", now.Format(stampLayout), ulid, Extension))
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", false, fmt.Errorf("publish job: %w", err)
	}
	if err := os.Rename(tmp, name); err != nil {
		_ = os.Remove(tmp)
		return "", false, fmt.Errorf("publish job: %w", err)
	}

	if p.metrics != nil {
		p.metrics.IncJobsPublished()
	}
	return name, true, nil
}
