package model

import (
	"time"
)

// Lifecycle of a JobRecord. Every posting the agents see gets a row;
// the status tells how far it went.
const (
	StatusFound     = "Found"     // extracted from search results
	StatusFiltered  = "Filtered"  // rejected by the profile matcher
	StatusApplied   = "Applied"   // application submitted
	StatusFailed    = "Failed"    // application attempted, did not go through
	StatusLead      = "Lead"      // collected from a WhatsApp group, apply manually
	StatusInterview = "Interview" // follow-up mail classified as interview invite
	StatusRejected  = "Rejected"  // follow-up mail classified as rejection
	StatusOffer     = "Offer"     // follow-up mail classified as offer
)

// OpenStatuses are the states a follow-up email can still move.
var OpenStatuses = []string{StatusApplied, StatusInterview}

// AppliedStatuses are the states meaning an application was submitted
// at some point. Jobs in these states are never applied to again.
var AppliedStatuses = []string{StatusApplied, StatusInterview, StatusRejected, StatusOffer}

// JobRecord is the history row for one posting, one per
// (platform, company, title) seen.
type JobRecord struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ApplicationID      string    `gorm:"column:application_id"` // set once applied, e.g. LIN-20250102T150405
	Platform           string    `gorm:"column:platform"`
	Company            string    `gorm:"column:company"`
	JobTitle           string    `gorm:"column:job_title"`
	Location           string    `gorm:"column:location"`
	JobURL             string    `gorm:"column:job_url"`
	Status             string    `gorm:"column:status"`
	ExperienceRequired string    `gorm:"column:experience_required"`
	JobType            string    `gorm:"column:job_type"`
	SalaryRange        string    `gorm:"column:salary_range"`
	KeySkills          string    `gorm:"column:key_skills"`
	ApplicationMethod  string    `gorm:"column:application_method"`
	MatchScore         float64   `gorm:"column:match_score"`
	MatchReason        string    `gorm:"column:match_reason"`
	Notes              string    `gorm:"column:notes"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (JobRecord) TableName() string {
	return "job_records"
}

// FromPosting builds a fresh record for a posting seen on a platform.
func FromPosting(platform string, p JobPosting) *JobRecord {
	return &JobRecord{
		Platform:           platform,
		Company:            p.Company,
		JobTitle:           p.JobTitle,
		Location:           p.Location,
		JobURL:             p.JobURL,
		Status:             StatusFound,
		ExperienceRequired: p.Experience,
		JobType:            p.JobType,
		SalaryRange:        p.Salary,
		MatchScore:         p.MatchScore,
		MatchReason:        p.MatchReason,
	}
}
