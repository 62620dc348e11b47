package model

// Event types streamed to render-progress subscribers on /ws/jobs/:jobId.
// These are the only messages the server pushes: stage checkpoints while the
// worker renders, then exactly one complete or error event.
const (
	EventTypeProgress = "progress"
	EventTypeComplete = "complete"
	EventTypeError    = "error"
)

// ProgressEvent mirrors a job-row checkpoint.
type ProgressEvent struct {
	Type     string    `json:"type"`
	JobID    string    `json:"jobId"`
	Progress int       `json:"progress"`
	Status   JobStatus `json:"status"`
	Stage    string    `json:"stage,omitempty"`
}

// CompleteEvent announces the finished artifact.
type CompleteEvent struct {
	Type   string      `json:"type"`
	JobID  string      `json:"jobId"`
	Result interface{} `json:"result"`
}

// ErrorEvent reports a failed render.
type ErrorEvent struct {
	Type  string      `json:"type"`
	JobID string      `json:"jobId"`
	Error EventDetail `json:"error"`
}

// EventDetail carries the machine code and human message of an error event.
type EventDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
