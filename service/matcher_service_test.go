package service

import (
	"strings"
	"testing"

	"jobdroid/config"
	"jobdroid/model"
)

func newTestMatcher() *MatcherService {
	return NewMatcherService(config.JobPreferencesConfig{
		JobTitles:        []string{"Software Developer Intern"},
		Keywords:         []string{"python", "go", "sql", "react", "docker", "kubernetes", "aws", "linux", "git"},
		Locations:        []string{"Remote", "Bangalore"},
		ExcludedKeywords: []string{"senior", "sales"},
		ExperienceRange:  config.ExperienceRange{MinYears: 0, MaxYears: 1},
	})
}

func TestMatchJob(t *testing.T) {
	matcher := newTestMatcher()

	tests := []struct {
		name       string
		job        model.JobPosting
		wantMatch  bool
		wantScore  float64
		wantReason string
	}{
		{
			name: "strong match scores title keywords location and entry bonus",
			job: model.JobPosting{
				JobTitle:    "Software Developer Intern",
				Description: "Work with Python and Go services",
				Location:    "Remote",
				Experience:  "Fresher",
			},
			wantMatch:  true,
			wantScore:  70, // 30 title + 10 keywords + 20 location + 10 entry
			wantReason: "Title matches",
		},
		{
			name: "excluded keyword in title rejects immediately",
			job: model.JobPosting{
				JobTitle: "Senior Software Developer",
			},
			wantMatch:  false,
			wantScore:  0,
			wantReason: "Contains excluded keyword: 'senior'",
		},
		{
			name: "excluded keyword in description rejects immediately",
			job: model.JobPosting{
				JobTitle:    "Developer Intern",
				Description: "Support the sales team",
			},
			wantMatch:  false,
			wantReason: "Contains excluded keyword: 'sales'",
		},
		{
			name: "experience range outside preferences rejects",
			job: model.JobPosting{
				JobTitle:   "Software Developer Intern",
				Experience: "3-5 years",
			},
			wantMatch:  false,
			wantReason: "Experience requirement doesn't match",
		},
		{
			name: "partial title alone is below threshold",
			job: model.JobPosting{
				JobTitle: "Backend Developer",
			},
			wantMatch:  false,
			wantScore:  15,
			wantReason: "Score too low (15.0 < 40.0)",
		},
		{
			name: "keyword score caps at 40 and reaches the threshold",
			job: model.JobPosting{
				JobTitle:    "Data Cruncher",
				Description: "python go sql react docker kubernetes aws linux git",
			},
			wantMatch:  true,
			wantScore:  40,
			wantReason: "Keywords found: python, go, sql, react, docker",
		},
		{
			name: "location alone is below threshold",
			job: model.JobPosting{
				JobTitle: "Chef",
				Location: "Bangalore",
			},
			wantMatch: false,
			wantScore: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMatch, gotScore, gotReason := matcher.MatchJob(tt.job)
			if gotMatch != tt.wantMatch {
				t.Errorf("match = %v, want %v (reason: %s)", gotMatch, tt.wantMatch, gotReason)
			}
			if tt.wantScore != 0 || gotMatch {
				if gotScore != tt.wantScore {
					t.Errorf("score = %.1f, want %.1f", gotScore, tt.wantScore)
				}
			}
			if tt.wantReason != "" && !strings.Contains(gotReason, tt.wantReason) {
				t.Errorf("reason = %q, want it to contain %q", gotReason, tt.wantReason)
			}
		})
	}
}

func TestMatchExperience(t *testing.T) {
	matcher := newTestMatcher()

	tests := []struct {
		text string
		want bool
	}{
		{"Fresher", true},
		{"No experience required", true},
		{"Entry Level", true},
		{"0 years", true},
		{"Internship preferred", true},
		{"0-1 years", true},
		{"1 to 2 years", true}, // overlaps 0-1
		{"3-5 years", false},
		{"2-4 years", false},
		{"Experience with React required", true}, // no years stated, allowed
		{"", true},                               // unknown, allowed
		{"5+ years", true},                       // unparseable pattern falls through to allowed
	}

	for _, tt := range tests {
		if got := matcher.matchExperience(tt.text); got != tt.want {
			t.Errorf("matchExperience(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestFilterAndRank(t *testing.T) {
	matcher := newTestMatcher()

	jobs := []model.JobPosting{
		{JobTitle: "Backend Developer"}, // below threshold, dropped
		{
			JobTitle:    "Data Cruncher",
			Description: "python go sql react docker kubernetes aws linux git",
		}, // 40
		{
			JobTitle:    "Software Developer Intern",
			Description: "Work with Python and Go services",
			Location:    "Remote",
			Experience:  "Fresher",
		}, // 70
	}

	ranked := matcher.RankJobs(jobs)
	if len(ranked) != 2 {
		t.Fatalf("len(ranked) = %d, want 2", len(ranked))
	}
	if ranked[0].JobTitle != "Software Developer Intern" || ranked[1].JobTitle != "Data Cruncher" {
		t.Errorf("order = %q, %q; want best score first", ranked[0].JobTitle, ranked[1].JobTitle)
	}
	if ranked[0].MatchScore != 70 || ranked[0].MatchReason == "" {
		t.Errorf("top job score/reason not filled: %+v", ranked[0])
	}

	top := matcher.FilterAndRank(jobs, 1)
	if len(top) != 1 || top[0].JobTitle != "Software Developer Intern" {
		t.Errorf("FilterAndRank(1) = %+v", top)
	}

	all := matcher.FilterAndRank(jobs, 0)
	if len(all) != 2 {
		t.Errorf("FilterAndRank(0) should not limit, got %d", len(all))
	}
}

func TestExtendKeywords(t *testing.T) {
	matcher := NewMatcherService(config.JobPreferencesConfig{
		JobTitles:       []string{"Software Developer Intern"},
		Keywords:        []string{"python"},
		ExperienceRange: config.ExperienceRange{MinYears: 0, MaxYears: 1},
	})
	matcher.ExtendKeywords([]string{"Python", "Terraform", "gRPC"})

	// python deduped, the new skills lowercased and appended.
	if len(matcher.keywords) != 3 {
		t.Fatalf("keywords = %v, want 3 unique entries", matcher.keywords)
	}
	_, score, _ := matcher.MatchJob(model.JobPosting{
		JobTitle:    "Software Developer Intern",
		Description: "We use Terraform and gRPC heavily",
	})
	// 30 title + 10 for the two resume skills + 10 entry bonus.
	if score != 50 {
		t.Errorf("score = %.1f, want 50", score)
	}
}
