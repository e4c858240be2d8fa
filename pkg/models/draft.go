package models

// StudyText is one block of learner-facing text inside a draft.
type StudyText struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// CourseDraft is the in-flight content artifact produced by the generation
// phase and carried through the rest of the pipeline. On storage_write it is
// serialized to the artifact store as-is.
type CourseDraft struct {
	Title      string      `json:"title"`
	Subject    string      `json:"subject,omitempty"`
	Grade      string      `json:"grade,omitempty"`
	StudyTexts []StudyText `json:"studyTexts"`
}

// Text returns the study text with the given id, or nil.
func (d *CourseDraft) Text(id string) *StudyText {
	for i := range d.StudyTexts {
		if d.StudyTexts[i].ID == id {
			return &d.StudyTexts[i]
		}
	}
	return nil
}

// QuotaRecord is the per-user rolling admission view. Counters are derived
// from the trailing submission windows, not fixed calendar buckets.
type QuotaRecord struct {
	OwnerID      string `json:"owner_id"`
	JobsLastHour int64  `json:"jobs_last_hour"`
	HourlyLimit  int64  `json:"hourly_limit"`
	JobsLastDay  int64  `json:"jobs_last_day"`
	DailyLimit   int64  `json:"daily_limit"`
}
