package model

import "fmt"

// JobPosting is one job extracted from a platform's search results.
// The json tags double as the schema the device agent is asked to fill
// when extracting listings from the screen.
type JobPosting struct {
	JobTitle    string `json:"job_title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Experience  string `json:"experience"`
	JobType     string `json:"job_type"`
	Salary      string `json:"salary"`
	JobURL      string `json:"job_url"`

	// Filled by the matcher, not the extraction.
	MatchScore  float64 `json:"-"`
	MatchReason string  `json:"-"`
}

func (j JobPosting) String() string {
	return fmt.Sprintf("%s @ %s (%s)", j.JobTitle, j.Company, j.Location)
}

// JobSearchResults is the structured output of a search goal.
type JobSearchResults struct {
	Jobs []JobPosting `json:"jobs"`
}

// ApplicationConfirmation is the structured output of an apply goal.
type ApplicationConfirmation struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
