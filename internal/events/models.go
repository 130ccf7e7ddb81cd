package events

import "time"

type JobEvent struct {
	JobID  string    `json:"jobId"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}
