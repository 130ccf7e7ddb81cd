package v1alpha1

import "time"

type JobStatus string

const (
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

type Error struct {
	Error string `json:"error"`
}

type SubmitSequenceRequest struct {
	Sequence string  `json:"sequence"`
	Name     *string `json:"name,omitempty"`
}

type SubmitSequenceResponse struct {
	JobId      string    `json:"jobId"`
	StorageUrl string    `json:"storageUrl"`
	Message    string    `json:"message"`
	Status     JobStatus `json:"status"`
}

type JobData struct {
	JobId           string     `json:"jobId"`
	Sequence        string     `json:"sequence"`
	Name            string     `json:"name,omitempty"`
	Status          JobStatus  `json:"status"`
	ObjectKey       string     `json:"objectKey,omitempty"`
	StorageProvider string     `json:"storageProvider,omitempty"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	Error           string     `json:"error,omitempty"`
}

type JobStatusResponse struct {
	JobData
	Message    string `json:"message"`
	Progress   *int   `json:"progress,omitempty"`
	StorageUrl string `json:"storageUrl,omitempty"`
	Uploaded   bool   `json:"uploaded"`
}

type CheckResultResponse struct {
	JobId       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	StorageUrl  string     `json:"storageUrl,omitempty"`
	Message     string     `json:"message"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type AdminJobsResponse struct {
	Queued    []JobData `json:"queued"`
	Processed []JobData `json:"processed"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
