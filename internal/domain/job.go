package domain

import "time"

// JobType enumerates supported background job categories.
type JobType string

const (
	JobTypeStyleTransfer    JobType = "style_transfer"
	JobTypePromptGeneration JobType = "prompt_generation"
	JobTypeVideoGeneration  JobType = "video_generation"
	JobTypeExport           JobType = "export"
)

// ValidJobType reports whether t is one of the supported job categories.
func ValidJobType(t JobType) bool {
	switch t {
	case JobTypeStyleTransfer, JobTypePromptGeneration, JobTypeVideoGeneration, JobTypeExport:
		return true
	}
	return false
}

// JobStatus enumerates job lifecycle states. The transition is one-way:
// running -> completed or running -> failed, never back.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job encapsulates one tracked asynchronous operation: a style transfer,
// prompt generation, video generation, or export run on behalf of a user.
type Job struct {
	ID          string
	UserID      string
	ProjectID   string
	Type        JobType
	Description string
	Status      JobStatus
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// JobFilter narrows ListRecent results.
type JobFilter struct {
	ProjectID string
	Status    JobStatus
	Limit     int
}

const (
	// DefaultJobListLimit is applied when a list request carries no limit.
	DefaultJobListLimit = 50
	// MaxJobListLimit caps the server-side job history window.
	MaxJobListLimit = 200
)
