package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/campus-feed/constants"
)

// ParseRequest is one ingestion request.
type ParseRequest struct {
	Type     constants.InputType `json:"type"`
	Content  string              `json:"content"`
	Language constants.Language  `json:"language,omitempty"`
}

// ParseResult is a successful pipeline run plus out-of-band details.
type ParseResult struct {
	Event    ParsedEvent `json:"data"`
	ImageURL string      `json:"image_url,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Logs     []string    `json:"logs,omitempty"`
}

// ParseJob tracks an asynchronous parse.
type ParseJob struct {
	ID          uuid.UUID           `json:"id"`
	Status      constants.JobStatus `json:"status"`
	Request     ParseRequest        `json:"request"`
	Result      *ParseResult        `json:"result,omitempty"`
	ErrorKind   string              `json:"error_kind,omitempty"`
	Error       string              `json:"error,omitempty"`
	Stage       string              `json:"stage,omitempty"`
	SubmittedAt time.Time           `json:"submitted_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
