package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"jobdroid/config"
	"jobdroid/droid"
	"jobdroid/model"
	"jobdroid/repository"
	"jobdroid/service"
	"jobdroid/utils"
)

// DeviceSession is what the flows need from the device layer.
// *droid.DeviceManager implements it.
type DeviceSession interface {
	NewAgent(llm droid.LLM) *droid.Agent
	AppInstalled(ctx context.Context, pkg string) (bool, error)
	LaunchApp(ctx context.Context, pkg string) error
	CurrentTree(ctx context.Context) (*droid.UITree, error)
}

// Deps bundles the shared services every platform agent needs.
type Deps struct {
	Config  *config.GlobalConfig
	Device  DeviceSession
	LLM     droid.LLM
	Matcher *service.MatcherService
	Tracker *service.TrackerService
	Resume  *service.ResumeService
	Repo    repository.JobRecordRepository
	DryRun  bool
}

// Flow is the search, match and apply pipeline shared by the job
// boards. The platform packages own the goal text, Flow owns the
// mechanics around it.
type Flow struct {
	Deps
	Platform string
	Package  string
	Method   string
	Cfg      *config.PlatformConfig

	// SubmittedXPath matches the platform's on-screen confirmation,
	// empty when the platform has no stable marker.
	SubmittedXPath string
}

// Open checks the app is installed and cold-starts it.
func (f *Flow) Open(ctx context.Context, progress ProgressFunc) error {
	installed, err := f.Device.AppInstalled(ctx, f.Package)
	if err != nil {
		return fmt.Errorf("check %s install: %w", f.Platform, err)
	}
	if !installed {
		return fmt.Errorf("%s app (%s) is not installed on the device", f.Platform, f.Package)
	}
	if err := f.Device.LaunchApp(ctx, f.Package); err != nil {
		return fmt.Errorf("launch %s: %w", f.Platform, err)
	}
	Emit(progress, Message(f.Platform, "info", "Opened "+f.Platform))
	// Give the app a moment to cold start before the first dump.
	return utils.SleepCtx(ctx, 3*time.Second)
}

// Navigate runs an in-app navigation goal that produces no output.
func (f *Flow) Navigate(ctx context.Context, task string) error {
	result, err := f.Device.NewAgent(f.LLM).Run(ctx, droid.Goal{Task: task})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("navigation failed: %s", result.Reason)
	}
	return nil
}

// CollectJobs runs the platform's search goal and returns the listings
// the agent extracted from the result screens. Postings tracked in
// earlier sessions are listed in the goal context so the agent skips
// them.
func (f *Flow) CollectJobs(ctx context.Context, goal droid.Goal, progress ProgressFunc) ([]model.JobPosting, error) {
	if hint := f.recentlySeenHint(); hint != "" {
		if goal.Context != "" {
			goal.Context += "\n"
		}
		goal.Context += hint
	}

	var results model.JobSearchResults
	runResult, err := f.Device.NewAgent(f.LLM).RunForJSON(ctx, goal, &results)
	if err != nil {
		return nil, err
	}
	if !runResult.Success {
		Emit(progress, Message(f.Platform, "warning", "Search did not finish: "+runResult.Reason))
		return nil, nil
	}
	Emit(progress, Message(f.Platform, "info", fmt.Sprintf("Extracted %d job(s) from search results", len(results.Jobs))))
	return results.Jobs, nil
}

// RememberFound stores a Found record for every listing the device has
// not seen before.
func (f *Flow) RememberFound(jobs []model.JobPosting) {
	for _, job := range jobs {
		if job.JobTitle == "" && job.Company == "" {
			continue
		}
		seen, err := f.Repo.Exists(f.Platform, job.Company, job.JobTitle)
		if err != nil {
			log.Warnf("Could not look up %s: %v", job, err)
			continue
		}
		if seen {
			continue
		}
		if err := f.Repo.Save(model.FromPosting(f.Platform, job)); err != nil {
			log.Warnf("Could not store %s: %v", job, err)
		}
	}
}

// recentlySeenHint lists postings already tracked for this platform so
// a repeat session does not re-collect them.
func (f *Flow) recentlySeenHint() string {
	recent, err := f.Repo.FindRecentByPlatform(f.Platform, 8)
	if err != nil || len(recent) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Already tracked from earlier sessions, skip these listings:\n")
	for _, rec := range recent {
		fmt.Fprintf(&sb, "- %s at %s\n", rec.JobTitle, rec.Company)
	}
	return sb.String()
}

// MatchJobs scores the listings, marks matcher rejects as Filtered and
// returns the accepted ones ranked best-first, capped at the session
// limit. Listings that matched but fell past the cap stay Found.
func (f *Flow) MatchJobs(jobs []model.JobPosting) []model.JobPosting {
	matched := f.Matcher.FilterAndRank(jobs, f.Cfg.MaxApplicationsPerSession)

	selected := make(map[string]bool, len(matched))
	for _, job := range matched {
		selected[jobKey(job)] = true
		rec, err := f.Repo.FindByJob(f.Platform, job.Company, job.JobTitle)
		if err != nil || rec == nil {
			continue
		}
		rec.MatchScore = job.MatchScore
		rec.MatchReason = job.MatchReason
		if err := f.Repo.Update(rec); err != nil {
			log.Warnf("Could not store match score for %s: %v", job, err)
		}
	}

	for _, job := range jobs {
		if selected[jobKey(job)] {
			continue
		}
		ok, _, reason := f.Matcher.MatchJob(job)
		if ok {
			continue
		}
		rec, err := f.Repo.FindByJob(f.Platform, job.Company, job.JobTitle)
		if err != nil || rec == nil || rec.Status != model.StatusFound {
			continue
		}
		if err := f.Repo.UpdateStatus(rec.ID, model.StatusFiltered, reason); err != nil {
			log.Warnf("Could not mark %s filtered: %v", job, err)
		}
	}
	return matched
}

// ApplyLoop applies to the matched jobs one by one, skipping anything
// already applied to and pausing between submissions.
func (f *Flow) ApplyLoop(ctx context.Context, matched []model.JobPosting, buildGoal func(model.JobPosting) droid.Goal, result *Result, progress ProgressFunc) error {
	max := f.Cfg.MaxApplicationsPerSession
	submitted := 0
	for _, job := range matched {
		if err := ctx.Err(); err != nil {
			return err
		}
		if submitted >= max {
			Emit(progress, Message(f.Platform, "warning", fmt.Sprintf("Reached session limit (%d applications)", max)))
			break
		}

		applied, err := f.Tracker.CheckAlreadyApplied(f.Platform, job.Company, job.JobTitle)
		if err != nil {
			log.Warnf("Could not check history for %s: %v", job, err)
		}
		if applied {
			Emit(progress, Message(f.Platform, "info", "Already applied: "+job.String()))
			continue
		}

		if f.DryRun {
			Emit(progress, Message(f.Platform, "info", "[dry-run] Would apply: "+job.String()))
			continue
		}

		Emit(progress, Counted(f.Platform, "Applying: "+job.String(), submitted+1, max))
		success, note, err := f.applyOnce(ctx, job, buildGoal)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to apply: %s (%v)", job.JobTitle, err))
			f.markFailed(job, err.Error())
			Emit(progress, Message(f.Platform, "error", "Application error: "+job.String()))
		} else if success {
			f.recordApplied(job, note)
			submitted++
			result.ApplicationsSubmitted++
			Emit(progress, Message(f.Platform, "success", fmt.Sprintf("Applied %d/%d: %s", submitted, max, job.String())))
		} else {
			result.Errors = append(result.Errors, "Failed to apply: "+job.JobTitle)
			f.markFailed(job, note)
			Emit(progress, Message(f.Platform, "warning", "Application not confirmed: "+job.String()))
		}

		if err := utils.SleepRandom(ctx, f.Config.Delays.BetweenApplicationsMinSec, f.Config.Delays.BetweenApplicationsMaxSec); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flow) applyOnce(ctx context.Context, job model.JobPosting, buildGoal func(model.JobPosting) droid.Goal) (bool, string, error) {
	var confirmation model.ApplicationConfirmation
	runResult, err := f.Device.NewAgent(f.LLM).RunForJSON(ctx, buildGoal(job), &confirmation)
	if err != nil {
		return false, "", err
	}
	if !runResult.Success {
		return false, runResult.Reason, nil
	}
	if !confirmation.Success && f.confirmationOnScreen(ctx) {
		return true, "Confirmation banner found on screen", nil
	}
	return confirmation.Success, confirmation.Message, nil
}

// confirmationOnScreen double-checks an unconfirmed application against
// the platform's confirmation marker. The model sometimes misses the
// banner it just produced.
func (f *Flow) confirmationOnScreen(ctx context.Context) bool {
	if f.SubmittedXPath == "" {
		return false
	}
	tree, err := f.Device.CurrentTree(ctx)
	if err != nil {
		return false
	}
	node, err := tree.First(f.SubmittedXPath)
	return err == nil && node != nil
}

func (f *Flow) recordApplied(job model.JobPosting, note string) {
	rec, err := f.Repo.FindByJob(f.Platform, job.Company, job.JobTitle)
	if err != nil || rec == nil {
		rec = model.FromPosting(f.Platform, job)
	}
	rec.Status = model.StatusApplied
	rec.MatchScore = job.MatchScore
	rec.MatchReason = job.MatchReason
	rec.ApplicationMethod = f.Method
	if f.Resume != nil {
		rec.KeySkills = strings.Join(f.Resume.Skills(), ", ")
	}
	if note != "" {
		rec.Notes = note
	}
	if err := f.Tracker.AddApplication(rec); err != nil {
		log.Errorf("Could not track application for %s: %v", job, err)
	}
}

func (f *Flow) markFailed(job model.JobPosting, reason string) {
	rec, err := f.Repo.FindByJob(f.Platform, job.Company, job.JobTitle)
	if err != nil || rec == nil {
		return
	}
	if err := f.Repo.UpdateStatus(rec.ID, model.StatusFailed, reason); err != nil {
		log.Warnf("Could not mark %s failed: %v", job, err)
	}
}

// ProfileContext renders the applicant details goals interpolate when
// filling forms.
func (f *Flow) ProfileContext() string {
	var sb strings.Builder
	p := f.Config.UserProfile
	fmt.Fprintf(&sb, "Applicant name: %s\n", p.Name)
	fmt.Fprintf(&sb, "Email: %s\n", p.Email)
	fmt.Fprintf(&sb, "Phone: %s\n", p.Phone)
	if f.Resume != nil {
		if skills := f.Resume.Skills(); len(skills) > 0 {
			fmt.Fprintf(&sb, "Key skills: %s\n", strings.Join(skills, ", "))
		}
	}
	return sb.String()
}

// ResumeFileName is the file the apply goals tell the agent to pick in
// the Files app.
func (f *Flow) ResumeFileName() string {
	base := filepath.Base(f.Config.UserProfile.ResumePath)
	if base == "." || base == "/" || base == "" {
		return "resume.pdf"
	}
	return base
}

func jobKey(job model.JobPosting) string {
	return strings.ToLower(job.Company) + "|" + strings.ToLower(job.JobTitle)
}

// JobsOutputHint is the extraction schema shared by the job boards.
const JobsOutputHint = `List every job you saw. Return JSON in exactly this shape:
{"jobs":[{"job_title":"","company":"","location":"","description":"","experience":"","job_type":"","salary":"","job_url":""}]}
Leave a field empty when the screen did not show it.`

// ConfirmOutputHint is the extraction schema for apply goals.
const ConfirmOutputHint = `Report the outcome. Return JSON in exactly this shape:
{"success":false,"message":""}
Set success to true only if you saw a submission confirmation on screen.
Describe what you observed in message.`
