package linkedin

import (
	"context"
	"fmt"

	locators "jobdroid/Locators"
	"jobdroid/droid"
	"jobdroid/model"
	"jobdroid/worker"
)

// searchTarget is how many listings a search pass tries to collect.
const searchTarget = 5

// Agent applies to LinkedIn jobs through the mobile app's Easy Apply
// flow.
type Agent struct {
	flow worker.Flow
}

func NewAgent(deps worker.Deps) *Agent {
	return &Agent{flow: worker.Flow{
		Deps:           deps,
		Platform:       "LinkedIn",
		Package:        locators.LINKEDIN_PACKAGE,
		Method:         "LinkedIn Easy Apply",
		Cfg:            &deps.Config.Platforms.LinkedIn,
		SubmittedXPath: locators.LINKEDIN_SUBMITTED_XPATH,
	}}
}

func (a *Agent) Name() string { return "LinkedIn" }

func (a *Agent) Enabled() bool { return a.flow.Cfg.Enabled }

func (a *Agent) Run(ctx context.Context, progress worker.ProgressFunc) (*worker.Result, error) {
	result := &worker.Result{Platform: a.Name()}
	worker.Emit(progress, worker.Message(a.Name(), "info", "Starting LinkedIn job search"))

	if err := a.flow.Open(ctx, progress); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	if err := a.flow.Navigate(ctx, openJobsTask); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	worker.Emit(progress, worker.Message(a.Name(), "info", "Opened LinkedIn Jobs"))

	jobs, err := a.flow.CollectJobs(ctx, a.searchGoal(), progress)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	result.JobsFound = len(jobs)
	a.flow.RememberFound(jobs)

	matched := a.flow.MatchJobs(jobs)
	result.JobsMatched = len(matched)
	worker.Emit(progress, worker.Message(a.Name(), "info",
		fmt.Sprintf("Found %d jobs, %d matched criteria", len(jobs), len(matched))))

	if err := a.flow.ApplyLoop(ctx, matched, a.applyGoal, result, progress); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	return result, nil
}

var openJobsTask = fmt.Sprintf(`1. Wait for the LinkedIn app to finish loading.
2. Tap the %q tab in the bottom navigation.
3. Wait for the Jobs page to load.`, locators.LINKEDIN_JOBS_TAB)

func (a *Agent) searchGoal() droid.Goal {
	return droid.Goal{
		Task: fmt.Sprintf(`Search for jobs on LinkedIn and collect the listings:

1. Tap the search bar at the top of the Jobs page.
2. Type %q and run the search.
3. Apply the "Entry level", "Internship" or "Remote" filters when they are offered.
4. Wait for the results to load.
5. For each listing on screen (aim for %d jobs), note the job title, company name,
   location and any visible details.
6. Scroll down when you need more listings.
7. Report done once you have seen enough listings.`, a.flow.Cfg.SearchKeywords, searchTarget),
		OutputHint: worker.JobsOutputHint,
	}
}

func (a *Agent) applyGoal(job model.JobPosting) droid.Goal {
	return droid.Goal{
		Task: fmt.Sprintf(`1. From the LinkedIn Jobs page, search for the job titled %q at %q.
2. Tap the matching listing to open its details.
3. Find and tap the %q button. If the listing only offers "Apply" through an
   external website, go back and report that it was not submitted.
4. Work through the application form. It may have several steps.
5. Fill required fields from the applicant details in the context.
   - If a field is already filled, verify it instead of retyping.
   - If asked for experience level, choose "Entry level" or "Internship".
   - If a resume is required, upload it: open the Files app, search for %q and select it.
   - For anything else, give a sensible answer consistent with the context.
6. Review the form, then tap "Submit application" or the equivalent final button.
7. Look for a confirmation such as "Application submitted" or "Application sent".
8. Go back to the Jobs page afterwards.`,
			job.JobTitle, job.Company, locators.LINKEDIN_EASY_APPLY_LABEL, a.flow.ResumeFileName()),
		Context:    a.flow.ProfileContext(),
		OutputHint: worker.ConfirmOutputHint,
	}
}
