package models

import "time"

const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Request struct {
	RequestID      string     `json:"request_id"`
	StudentID      string     `json:"student_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Tag            string     `json:"tag,omitempty"`
	Level          string     `json:"level,omitempty"`
	AssignedExpert string     `json:"assigned_expert,omitempty"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DeriveStatus maps a request's timestamp and assignment fields to its
// externally visible lifecycle state. A run that failed mid-pipeline leaves
// started_at set and finished_at empty, so the request stays in_progress
// until an operator re-triggers it.
func DeriveStatus(r Request) string {
	switch {
	case r.FinishedAt != nil:
		return StatusCompleted
	case r.StartedAt != nil:
		return StatusInProgress
	case r.AssignedExpert != "":
		return StatusAssigned
	default:
		return StatusPending
	}
}

type Curriculum struct {
	CurriculumID string    `json:"curriculum_id"`
	RequestID    string    `json:"request_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type CurriculumNode struct {
	NodeID            string    `json:"node_id"`
	CurriculumID      string    `json:"curriculum_id"`
	SourceID          string    `json:"source_id"`
	Topic             string    `json:"topic"`
	Level             int       `json:"level"`
	IndexInCurriculum int       `json:"index_in_curriculum"`
	CreatedAt         time.Time `json:"created_at"`
}

type Source struct {
	SourceID  string    `json:"source_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	MessageID string    `json:"message_id"`
	RequestID string    `json:"request_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
