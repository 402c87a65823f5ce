package dto

import "github.com/jonahsteuer/the-multiverse-sub002/internal/services"

// FailedTaskDTO is a task that was built but not stored
type FailedTaskDTO struct {
	Task   TaskDTO `json:"task"`
	Reason string  `json:"reason"`
}

// OrchestrationReportDTO represents an orchestration run in API responses
type OrchestrationReportDTO struct {
	Summary  string                   `json:"summary"`
	Created  []TaskDTO                `json:"created"`
	Failed   []FailedTaskDTO          `json:"failed"`
	Rejected []services.RejectedEntry `json:"rejected"`
}

// ToOrchestrationReportDTO converts an orchestration report
func ToOrchestrationReportDTO(report services.OrchestrationReport) OrchestrationReportDTO {
	failed := make([]FailedTaskDTO, len(report.Failed))
	for i, f := range report.Failed {
		failed[i] = FailedTaskDTO{Task: ToTaskDTO(f.Task), Reason: f.Reason}
	}

	rejected := report.Rejected
	if rejected == nil {
		rejected = []services.RejectedEntry{}
	}

	return OrchestrationReportDTO{
		Summary:  report.Summary(),
		Created:  ToTaskDTOs(report.Created),
		Failed:   failed,
		Rejected: rejected,
	}
}
