package indeed

import (
	"strings"
	"testing"

	"jobdroid/config"
	"jobdroid/model"
	"jobdroid/worker"
)

func newGoalAgent() *Agent {
	cfg := &config.GlobalConfig{}
	cfg.UserProfile = config.UserProfileConfig{Name: "Alex Kumar", Email: "alex@example.com", Phone: "9999999999"}
	cfg.Platforms.Indeed = config.PlatformConfig{
		Enabled: true, SearchKeywords: "Software Developer Intern", MaxApplicationsPerSession: 10,
	}
	return NewAgent(worker.Deps{Config: cfg})
}

func TestSearchGoalPrefersEasyApply(t *testing.T) {
	goal := newGoalAgent().searchGoal()

	if !strings.Contains(goal.Task, `"Software Developer Intern"`) {
		t.Errorf("search task missing keywords:\n%s", goal.Task)
	}
	if !strings.Contains(goal.Task, `"Easily apply"`) {
		t.Errorf("search task must steer toward in-app listings:\n%s", goal.Task)
	}
	if goal.OutputHint != worker.JobsOutputHint {
		t.Error("search goal must use the shared listings schema")
	}
}

func TestApplyGoalStopsOnAssessments(t *testing.T) {
	job := model.JobPosting{JobTitle: "QA Intern", Company: "Testify"}
	goal := newGoalAgent().applyGoal(job)

	for _, want := range []string{"QA Intern", "Testify", "assessment", "not submitted", "resume.pdf"} {
		if !strings.Contains(goal.Task, want) {
			t.Errorf("apply task missing %q:\n%s", want, goal.Task)
		}
	}
	if goal.OutputHint != worker.ConfirmOutputHint {
		t.Error("apply goal must use the shared confirmation schema")
	}
}

func TestEnabledFollowsConfig(t *testing.T) {
	agent := newGoalAgent()
	if !agent.Enabled() {
		t.Error("agent should be enabled")
	}
	agent.flow.Cfg.Enabled = false
	if agent.Enabled() {
		t.Error("agent should follow the config flag")
	}
}
