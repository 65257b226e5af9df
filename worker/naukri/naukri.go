package naukri

import (
	"context"
	"fmt"

	locators "jobdroid/Locators"
	"jobdroid/droid"
	"jobdroid/model"
	"jobdroid/worker"
)

const searchTarget = 5

// Agent applies on Naukri. Only the in-app Apply flow counts, listings
// that bounce to an external company site are reported as not
// submitted.
type Agent struct {
	flow worker.Flow
}

func NewAgent(deps worker.Deps) *Agent {
	return &Agent{flow: worker.Flow{
		Deps:           deps,
		Platform:       "Naukri",
		Package:        locators.NAUKRI_PACKAGE,
		Method:         "Naukri Apply",
		Cfg:            &deps.Config.Platforms.Naukri,
		SubmittedXPath: locators.NAUKRI_APPLIED_XPATH,
	}}
}

func (a *Agent) Name() string { return "Naukri" }

func (a *Agent) Enabled() bool { return a.flow.Cfg.Enabled }

func (a *Agent) Run(ctx context.Context, progress worker.ProgressFunc) (*worker.Result, error) {
	result := &worker.Result{Platform: a.Name()}
	worker.Emit(progress, worker.Message(a.Name(), "info", "Starting Naukri job search"))

	if err := a.flow.Open(ctx, progress); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}

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

func (a *Agent) searchGoal() droid.Goal {
	return droid.Goal{
		Task: fmt.Sprintf(`Search for jobs on Naukri and collect the listings:

1. Wait for the Naukri app to finish loading, dismiss any promotional popup.
2. Tap the search box (it usually reads %q).
3. Type %q and run the search.
4. If an experience filter is offered, pick "Fresher" or the lowest band.
5. Wait for the results to load.
6. For each listing on screen (aim for %d jobs), note the job title, company name,
   location, required experience and salary when shown.
7. Scroll down when you need more listings.
8. Report done once you have seen enough listings.`,
			locators.NAUKRI_SEARCH_LABEL, a.flow.Cfg.SearchKeywords, searchTarget),
		OutputHint: worker.JobsOutputHint,
	}
}

func (a *Agent) applyGoal(job model.JobPosting) droid.Goal {
	return droid.Goal{
		Task: fmt.Sprintf(`1. From the Naukri search results, open the job titled %q at %q.
2. Read the job details page.
3. Tap the %q button. Only the in-app apply counts: if the button says
   "Apply on company site" or opens a browser, do not proceed and report
   that the application was not submitted.
4. Answer any screening questions from the applicant details in the context.
5. Submit and look for a confirmation such as "Successfully applied".
6. Go back to the search results afterwards.`,
			job.JobTitle, job.Company, locators.NAUKRI_APPLY_LABEL),
		Context:    a.flow.ProfileContext(),
		OutputHint: worker.ConfirmOutputHint,
	}
}
