package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"jobdroid/config"
	"jobdroid/utils"
	"jobdroid/worker"
	"jobdroid/worker/email"
)

// SessionSummary aggregates everything one session did across the
// platform agents and the inbox pass.
type SessionSummary struct {
	ID         string             `json:"id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Results    []*worker.Result   `json:"results"`
	Email      *email.CheckResult `json:"email,omitempty"`

	TotalJobsFound    int `json:"total_jobs_found"`
	TotalJobsMatched  int `json:"total_jobs_matched"`
	TotalApplications int `json:"total_applications"`
	TotalLeads        int `json:"total_leads,omitempty"`
	TotalErrors       int `json:"total_errors"`
}

// Elapsed is the wall-clock duration of the session.
func (s *SessionSummary) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// SessionService runs the platform agents in order, then the email
// checker, pausing between platforms so the device is not hammered.
// A failing platform is recorded and the session moves on; only a
// cancelled context stops the run early.
type SessionService struct {
	cfg      *config.GlobalConfig
	agents   []worker.PlatformAgent
	email    *email.Checker
	progress worker.ProgressFunc
}

func NewSessionService(cfg *config.GlobalConfig, agents []worker.PlatformAgent, checker *email.Checker) *SessionService {
	return &SessionService{
		cfg:      cfg,
		agents:   agents,
		email:    checker,
		progress: worker.LogProgress,
	}
}

// SetProgress replaces the default progress sink (logrus).
func (s *SessionService) SetProgress(fn worker.ProgressFunc) {
	s.progress = fn
}

// Run executes one full session. The returned summary is populated
// even when the session ends early on a cancelled context.
func (s *SessionService) Run(ctx context.Context) (*SessionSummary, error) {
	summary := &SessionSummary{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	log.Infof("Session %s started with %d platform agents", summary.ID, len(s.agents))

	ran := 0
	for _, agent := range s.agents {
		if !agent.Enabled() {
			log.Infof("%s agent disabled, skipping", agent.Name())
			continue
		}
		if ran > 0 {
			if err := s.pause(ctx); err != nil {
				return s.finish(summary), err
			}
		}

		log.Infof("Running %s agent", agent.Name())
		result, err := agent.Run(ctx, s.progress)
		if result == nil {
			result = &worker.Result{Platform: agent.Name()}
		}
		if err != nil {
			if result.Platform == "" {
				result.Platform = agent.Name()
			}
			if !containsError(result.Errors, err) {
				result.Errors = append(result.Errors, err.Error())
			}
			summary.Results = append(summary.Results, result)
			if ctx.Err() != nil {
				log.Warnf("%s agent stopped: session cancelled", agent.Name())
				return s.finish(summary), ctx.Err()
			}
			log.Errorf("%s agent failed: %v", agent.Name(), err)
			ran++
			continue
		}
		summary.Results = append(summary.Results, result)
		ran++
	}

	if s.email != nil && s.cfg.Email.Enabled {
		if ran > 0 {
			if err := s.pause(ctx); err != nil {
				return s.finish(summary), err
			}
		}
		log.Info("Checking inbox for application updates")
		check, err := s.email.Run(ctx, s.progress)
		summary.Email = check
		if err != nil {
			if ctx.Err() != nil {
				return s.finish(summary), ctx.Err()
			}
			log.Errorf("email check failed: %v", err)
		}
	}

	s.finish(summary)
	log.Infof("Session %s finished in %s: %d jobs found, %d applications submitted",
		summary.ID, utils.FormatDuration(summary.StartedAt, summary.FinishedAt),
		summary.TotalJobsFound, summary.TotalApplications)
	return summary, nil
}

func (s *SessionService) pause(ctx context.Context) error {
	wait := s.cfg.Delays.BetweenPlatformsSec
	if wait <= 0 {
		return nil
	}
	log.Infof("Waiting %ds before the next platform", wait)
	return utils.SleepCtx(ctx, time.Duration(wait)*time.Second)
}

// finish stamps the end time and folds the per-platform counters into
// the session totals.
func (s *SessionService) finish(summary *SessionSummary) *SessionSummary {
	summary.FinishedAt = time.Now()
	summary.TotalJobsFound = 0
	summary.TotalJobsMatched = 0
	summary.TotalApplications = 0
	summary.TotalLeads = 0
	summary.TotalErrors = 0
	for _, r := range summary.Results {
		summary.TotalJobsFound += r.JobsFound
		summary.TotalJobsMatched += r.JobsMatched
		summary.TotalApplications += r.ApplicationsSubmitted
		summary.TotalLeads += r.LeadsRecorded
		summary.TotalErrors += len(r.Errors)
	}
	if summary.Email != nil {
		summary.TotalErrors += len(summary.Email.Errors)
	}
	return summary
}

func containsError(errs []string, err error) bool {
	for _, e := range errs {
		if e == err.Error() {
			return true
		}
	}
	return false
}

const summaryRule = "======================================================================"

// Print writes the session summary block to stdout, one section per
// platform plus the email pass and the totals.
func (s *SessionSummary) Print() {
	fmt.Println()
	fmt.Println(utils.ColorCyan + summaryRule + utils.ColorReset)
	fmt.Println(utils.ColorCyan + " APPLICATION SESSION SUMMARY " + s.ID + utils.ColorReset)
	fmt.Println(utils.ColorCyan + summaryRule + utils.ColorReset)

	for _, r := range s.Results {
		fmt.Printf("\n%s%s:%s\n", utils.ColorBlue, r.Platform, utils.ColorReset)
		fmt.Printf("  Jobs Found:              %d\n", r.JobsFound)
		fmt.Printf("  Jobs Matched:            %d\n", r.JobsMatched)
		fmt.Printf("  Applications Submitted:  %d\n", r.ApplicationsSubmitted)
		if r.LeadsRecorded > 0 {
			fmt.Printf("  Leads Recorded:          %d\n", r.LeadsRecorded)
		}
		if len(r.Errors) > 0 {
			fmt.Printf("  %sErrors:                  %d%s\n", utils.ColorRed, len(r.Errors), utils.ColorReset)
			for _, e := range r.Errors {
				fmt.Printf("    - %s\n", utils.Truncate(strings.TrimSpace(e), 120))
			}
		}
	}

	if s.Email != nil {
		fmt.Printf("\n%sEmail Updates:%s\n", utils.ColorBlue, utils.ColorReset)
		fmt.Printf("  Emails Checked:    %d\n", s.Email.EmailsChecked)
		fmt.Printf("  Status Updates:    %d\n", s.Email.Updates)
		fmt.Printf("  Interview Invites: %d\n", s.Email.Interviews)
		fmt.Printf("  Rejections:        %d\n", s.Email.Rejections)
		fmt.Printf("  Offers:            %d\n", s.Email.Offers)
	}

	fmt.Println()
	fmt.Println(utils.ColorCyan + summaryRule + utils.ColorReset)
	fmt.Printf("%sTOTAL JOBS FOUND:             %d%s\n", utils.ColorGreen, s.TotalJobsFound, utils.ColorReset)
	fmt.Printf("%sTOTAL APPLICATIONS SUBMITTED: %d%s\n", utils.ColorGreen, s.TotalApplications, utils.ColorReset)
	if s.TotalLeads > 0 {
		fmt.Printf("%sTOTAL LEADS RECORDED:         %d%s\n", utils.ColorGreen, s.TotalLeads, utils.ColorReset)
	}
	if s.TotalErrors > 0 {
		fmt.Printf("%sERRORS:                       %d%s\n", utils.ColorRed, s.TotalErrors, utils.ColorReset)
	}
	fmt.Printf("Elapsed: %s\n", utils.FormatDuration(s.StartedAt, s.FinishedAt))
	fmt.Println(utils.ColorCyan + summaryRule + utils.ColorReset)
	fmt.Println()
}
