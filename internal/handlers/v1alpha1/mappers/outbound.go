package mappers

import (
	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	"github.com/kubev2v/fold-planner/internal/service"
	"github.com/kubev2v/fold-planner/internal/store/model"
)

func JobToApi(job model.Job) api.JobData {
	return api.JobData{
		JobId:           job.ID,
		Sequence:        job.Sequence,
		Name:            job.Name,
		Status:          api.StringToJobStatus(job.Status),
		ObjectKey:       job.ObjectKey,
		StorageProvider: job.StorageProvider,
		SubmittedAt:     job.SubmittedAt,
		ProcessedAt:     job.ProcessedAt,
		CompletedAt:     job.CompletedAt,
		Error:           job.Error,
	}
}

// JobListToApi never returns nil so empty collections are encoded as [].
func JobListToApi(jobs model.JobList) []api.JobData {
	out := make([]api.JobData, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobToApi(j))
	}
	return out
}

func SubmitResultToApi(res service.SubmitResult) api.SubmitSequenceResponse {
	return api.SubmitSequenceResponse{
		JobId:      res.Job.ID,
		StorageUrl: res.StorageURL,
		Message:    res.Message,
		Status:     api.StringToJobStatus(res.Job.Status),
	}
}

func JobStatusToApi(status service.JobStatus) api.JobStatusResponse {
	return api.JobStatusResponse{
		JobData:    JobToApi(status.Job),
		Message:    status.Message,
		Progress:   status.Progress,
		StorageUrl: status.StorageURL,
		Uploaded:   status.Uploaded,
	}
}

func ResultStatusToApi(res service.ResultStatus) api.CheckResultResponse {
	return api.CheckResultResponse{
		JobId:       res.JobID,
		Status:      api.StringToJobStatus(res.Status),
		StorageUrl:  res.StorageURL,
		Message:     res.Message,
		CompletedAt: res.CompletedAt,
	}
}
