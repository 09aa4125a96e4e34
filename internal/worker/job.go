package worker

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// MainMethod is the method run when a job names none
const MainMethod = "Main"

// Job is a serialized command invocation
type Job struct {
	ID          string         `json:"id,omitempty"`
	Command     string         `json:"command"`
	Method      string         `json:"method"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	PublishedAt time.Time      `json:"published_at"`
}

// NewJob creates a job running the main method of command
func NewJob(command string, arguments map[string]any) Job {
	return Job{Command: command, Method: MainMethod, Arguments: arguments}
}

// Argument returns the named argument, nil when absent
func (j Job) Argument(key string) any {
	return j.Arguments[key]
}

// Encode serializes the job
func (j Job) Encode() ([]byte, error) {
	return sonic.Marshal(j)
}

// Decode parses a serialized job
func Decode(data []byte) (Job, error) {
	var j Job
	if err := sonic.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	if j.Command == "" {
		return Job{}, fmt.Errorf("decode job: missing command")
	}
	return j, nil
}
