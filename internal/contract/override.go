package contract

import (
	"strings"

	"github.com/Lllllllleong/competencymatrix/internal/models"
)

// ApplyHeaderOverrides makes the job card authoritative for the slide headers: comp_type,
// job_group and department are replaced by general_group, specific_group and job_location
// whenever those are non-empty, whatever the synthesizer produced.
func ApplyHeaderOverrides(rec *models.CompetencyRecord, job models.JobPayload) {
	if rec == nil {
		return
	}
	if v := strings.TrimSpace(models.Value(job.GeneralGroup)); v != "" {
		rec.CompType = v
	}
	if v := strings.TrimSpace(models.Value(job.SpecificGroup)); v != "" {
		rec.JobGroup = v
	}
	if v := strings.TrimSpace(models.Value(job.JobLocation)); v != "" {
		rec.Department = v
	}
}
