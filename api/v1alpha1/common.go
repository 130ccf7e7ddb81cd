package v1alpha1

func StringToJobStatus(s string) JobStatus {
	switch s {
	case string(JobStatusSubmitted):
		return JobStatusSubmitted
	case string(JobStatusQueued):
		return JobStatusQueued
	case string(JobStatusProcessing):
		return JobStatusProcessing
	case string(JobStatusCompleted):
		return JobStatusCompleted
	case string(JobStatusError):
		return JobStatusError
	default:
		return JobStatusSubmitted
	}
}

// IsTerminal reports whether a job in status s will never change again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}
