package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"jobdroid/config"
	"jobdroid/model"
	"jobdroid/utils"
)

// matchThreshold is the minimum score a job needs to be worth applying to.
const matchThreshold = 40.0

var (
	yearPattern   = regexp.MustCompile(`(\d+)\s*[-to]*\s*(\d*)\s*year`)
	entryKeywords = []string{"intern", "internship", "fresher", "entry level", "graduate"}
)

// MatcherService scores postings against the configured preferences.
// Scoring is deterministic so runs are comparable: title 30 (partial 15),
// keywords 5 each up to 40, location 20, entry-level bonus 10.
type MatcherService struct {
	jobTitles        []string
	keywords         []string
	locations        []string
	excludedKeywords []string
	minExperience    int
	maxExperience    int
}

func NewMatcherService(prefs config.JobPreferencesConfig) *MatcherService {
	return &MatcherService{
		jobTitles:        lowerAll(prefs.JobTitles),
		keywords:         lowerAll(prefs.Keywords),
		locations:        lowerAll(prefs.Locations),
		excludedKeywords: lowerAll(prefs.ExcludedKeywords),
		minExperience:    prefs.ExperienceRange.MinYears,
		maxExperience:    prefs.ExperienceRange.MaxYears,
	}
}

// ExtendKeywords adds resume-derived skills to the keyword list.
func (m *MatcherService) ExtendKeywords(skills []string) {
	m.keywords = utils.UniqueStrings(append(m.keywords, lowerAll(skills)...))
}

// MatchJob reports whether the posting is worth applying to, with its
// score and a human-readable reason either way.
func (m *MatcherService) MatchJob(job model.JobPosting) (bool, float64, string) {
	jobTitle := strings.ToLower(job.JobTitle)
	jobDescription := strings.ToLower(job.Description)
	location := strings.ToLower(job.Location)

	// Excluded keywords reject immediately.
	for _, excluded := range m.excludedKeywords {
		if strings.Contains(jobTitle, excluded) || strings.Contains(jobDescription, excluded) {
			return false, 0, fmt.Sprintf("Contains excluded keyword: '%s'", excluded)
		}
	}

	if !m.matchExperience(job.Experience) {
		return false, 0, fmt.Sprintf("Experience requirement doesn't match: %s", strings.ToLower(job.Experience))
	}

	var score float64
	var reasons []string

	titleScore := 0.0
	for _, preferred := range m.jobTitles {
		if strings.Contains(jobTitle, preferred) {
			titleScore = 30.0
			reasons = append(reasons, "Title matches: "+preferred)
			break
		}
	}
	if titleScore == 0 {
		for _, preferred := range m.jobTitles {
			if titleWordMatches(preferred, jobTitle) {
				titleScore = 15.0
				reasons = append(reasons, "Partial title match")
				break
			}
		}
	}
	score += titleScore

	var matchedKeywords []string
	for _, keyword := range m.keywords {
		if strings.Contains(jobDescription, keyword) || strings.Contains(jobTitle, keyword) {
			matchedKeywords = append(matchedKeywords, keyword)
		}
	}
	keywordScore := float64(len(matchedKeywords)) * 5
	if keywordScore > 40 {
		keywordScore = 40
	}
	score += keywordScore
	if len(matchedKeywords) > 0 {
		shown := matchedKeywords
		if len(shown) > 5 {
			shown = shown[:5]
		}
		reasons = append(reasons, "Keywords found: "+strings.Join(shown, ", "))
	}

	for _, preferred := range m.locations {
		if strings.Contains(location, preferred) {
			score += 20.0
			reasons = append(reasons, "Location matches: "+preferred)
			break
		}
	}

	for _, entry := range entryKeywords {
		if strings.Contains(jobTitle, entry) || strings.Contains(jobDescription, entry) {
			score += 10.0
			reasons = append(reasons, "Entry-level position")
			break
		}
	}

	if score < matchThreshold {
		return false, score, fmt.Sprintf("Score too low (%.1f < %.1f)", score, matchThreshold)
	}
	reason := "General match"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, " | ")
	}
	return true, score, reason
}

// matchExperience checks the posting's experience text against the
// configured range. Unparseable requirements pass; only an explicit
// non-overlapping year range rejects.
func (m *MatcherService) matchExperience(experienceText string) bool {
	text := strings.ToLower(experienceText)

	for _, keyword := range []string{"fresher", "no experience", "entry level", "0 year"} {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	if strings.Contains(text, "intern") {
		return true
	}

	matches := yearPattern.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		for _, match := range matches {
			minYears := utils.ParseInt(match[1])
			maxYears := minYears
			if match[2] != "" {
				maxYears = utils.ParseInt(match[2])
			}
			if minYears <= m.maxExperience && maxYears >= m.minExperience {
				return true
			}
		}
		return false
	}

	return true
}

// RankJobs keeps the matching postings, fills in score and reason, and
// sorts them best first.
func (m *MatcherService) RankJobs(jobs []model.JobPosting) []model.JobPosting {
	var ranked []model.JobPosting
	for _, job := range jobs {
		isMatch, score, reason := m.MatchJob(job)
		if !isMatch {
			continue
		}
		job.MatchScore = score
		job.MatchReason = reason
		ranked = append(ranked, job)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchScore > ranked[j].MatchScore
	})
	return ranked
}

// FilterAndRank returns the top limit matches, all of them when limit
// is not positive.
func (m *MatcherService) FilterAndRank(jobs []model.JobPosting, limit int) []model.JobPosting {
	ranked := m.RankJobs(jobs)
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}

func lowerAll(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		result = append(result, strings.ToLower(v))
	}
	return result
}

func titleWordMatches(preferredTitle, jobTitle string) bool {
	for _, word := range strings.Fields(preferredTitle) {
		if len(word) > 3 && strings.Contains(jobTitle, word) {
			return true
		}
	}
	return false
}
