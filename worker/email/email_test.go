package email

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jobdroid/config"
	"jobdroid/droid"
	"jobdroid/model"
	"jobdroid/repository"
	"jobdroid/service"
	"jobdroid/worker"
)

const testDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node text="Search in mail" class="android.widget.EditText" clickable="true" scrollable="false" bounds="[100,100][900,200]"/>
</hierarchy>`

type stubDevice struct{}

func (stubDevice) LaunchApp(ctx context.Context, pkg string) error                 { return nil }
func (stubDevice) Tap(ctx context.Context, x, y int) error                         { return nil }
func (stubDevice) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error { return nil }
func (stubDevice) TypeText(ctx context.Context, text string) error                 { return nil }
func (stubDevice) KeyEvent(ctx context.Context, code int) error                    { return nil }
func (stubDevice) DumpUIHierarchy(ctx context.Context) (string, error)             { return testDump, nil }
func (stubDevice) CurrentPackage(ctx context.Context) (string, error) {
	return "com.google.android.gm", nil
}
func (stubDevice) ScreenSize(ctx context.Context) (int, int, error) { return 1080, 2340, nil }

type fakeSession struct {
	installed bool
	launched  []string
}

func (s *fakeSession) NewAgent(llm droid.LLM) *droid.Agent {
	return droid.NewAgent(stubDevice{}, llm, 10, 0)
}

func (s *fakeSession) AppInstalled(ctx context.Context, pkg string) (bool, error) {
	return s.installed, nil
}

func (s *fakeSession) LaunchApp(ctx context.Context, pkg string) error {
	s.launched = append(s.launched, pkg)
	return nil
}

func (s *fakeSession) CurrentTree(ctx context.Context) (*droid.UITree, error) {
	return droid.ParseUITree(testDump)
}

type scriptedLLM struct {
	replies []string
}

func (s *scriptedLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *scriptedLLM) GenerateJSON(ctx context.Context, prompt string, out interface{}) error {
	reply, err := s.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(reply), out)
}

func newTestChecker(t *testing.T, llm droid.LLM) (*Checker, *fakeSession, *service.TrackerService, repository.JobRecordRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.JobRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := repository.NewJobRecordRepository(db)

	tracker, err := service.NewTrackerService(filepath.Join(t.TempDir(), "apps.xlsx"), repo)
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	t.Cleanup(func() { tracker.Close() })

	cfg := &config.GlobalConfig{}
	cfg.Email = config.EmailConfig{Enabled: true, LookbackDays: 7}

	session := &fakeSession{installed: true}
	checker := NewChecker(worker.Deps{
		Config:  cfg,
		Device:  session,
		LLM:     llm,
		Tracker: tracker,
		Repo:    repo,
	})
	return checker, session, tracker, repo
}

func TestClassifyEmail(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		snippet string
		want    model.EmailKind
	}{
		{"interview invite", "Interview Invitation - TechCorp", "please pick a slot", model.EmailInterview},
		{"assessment counts as interview", "Next steps", "complete this assessment", model.EmailInterview},
		{"rejection", "Your application", "Unfortunately we will not proceed", model.EmailRejection},
		{"not selected", "Application update", "you were not selected this time", model.EmailRejection},
		{"offer", "Offer Letter", "we are pleased to inform you", model.EmailOffer},
		{"congratulations", "Congratulations!", "you have been selected", model.EmailOffer},
		{"interview beats rejection wording", "Interview result", "we regret the delay in scheduling", model.EmailInterview},
		{"unrelated", "Weekly digest", "news from your network", model.EmailNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := model.EmailMessage{Subject: tt.subject, Snippet: tt.snippet}
			if got := ClassifyEmail(email); got != tt.want {
				t.Errorf("ClassifyEmail = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatchCompany(t *testing.T) {
	companies := []string{"TechCorp", "CloudNine Labs"}
	tests := []struct {
		name  string
		email model.EmailMessage
		want  string
	}{
		{"sender domain", model.EmailMessage{Sender: "careers@techcorp.com"}, "TechCorp"},
		{"subject mention", model.EmailMessage{Subject: "CloudNine Labs interview"}, "CloudNine Labs"},
		{"snippet mention", model.EmailMessage{Snippet: "your application at TechCorp"}, "TechCorp"},
		{"no match", model.EmailMessage{Sender: "noreply@other.com", Subject: "Hello"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchCompany(tt.email, companies); got != tt.want {
				t.Errorf("matchCompany = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunUpdatesOpenApplications(t *testing.T) {
	emails := `{"emails":[
		{"subject":"Interview Invitation","sender":"careers@techcorp.com",
		 "snippet":"We would like to schedule a call next week"},
		{"subject":"Weekly digest","sender":"news@something.com","snippet":"trending posts"}
	]}`
	llm := &scriptedLLM{replies: []string{
		// Inbox goal, then its extraction.
		`{"action":"done","reason":"inbox reviewed"}`,
		emails,
	}}
	checker, session, tracker, repo := newTestChecker(t, llm)

	seed := &model.JobRecord{
		Platform: "LinkedIn", Company: "TechCorp", JobTitle: "Software Developer Intern",
		Status: model.StatusApplied,
	}
	if err := tracker.AddApplication(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := checker.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.EmailsChecked != 2 || result.Updates != 1 || result.Interviews != 1 {
		t.Errorf("result = %+v, want 2 checked, 1 update, 1 interview", result)
	}
	if len(session.launched) != 1 || session.launched[0] != "com.google.android.gm" {
		t.Errorf("launched = %v", session.launched)
	}

	rec, err := repo.FindByApplicationID(seed.ApplicationID)
	if err != nil || rec == nil {
		t.Fatalf("reload: rec=%v err=%v", rec, err)
	}
	if rec.Status != model.StatusInterview {
		t.Errorf("status = %s, want %s", rec.Status, model.StatusInterview)
	}
	if !strings.Contains(rec.Notes, "careers@techcorp.com") {
		t.Errorf("notes = %q, want the email sender recorded", rec.Notes)
	}
}

func TestRunSkipsDeviceWithoutOpenApplications(t *testing.T) {
	checker, session, _, _ := newTestChecker(t, &scriptedLLM{})

	result, err := checker.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.EmailsChecked != 0 || result.Updates != 0 {
		t.Errorf("result = %+v", result)
	}
	if len(session.launched) != 0 {
		t.Errorf("launched = %v, want no app launches", session.launched)
	}
}
