package indeed

import (
	"context"
	"fmt"

	locators "jobdroid/Locators"
	"jobdroid/droid"
	"jobdroid/model"
	"jobdroid/worker"
)

const searchTarget = 5

// Agent applies on Indeed to listings marked "Easily apply". Jobs that
// demand a skills assessment are reported as not submitted.
type Agent struct {
	flow worker.Flow
}

func NewAgent(deps worker.Deps) *Agent {
	return &Agent{flow: worker.Flow{
		Deps:           deps,
		Platform:       "Indeed",
		Package:        locators.INDEED_PACKAGE,
		Method:         "Indeed Easily Apply",
		Cfg:            &deps.Config.Platforms.Indeed,
		SubmittedXPath: locators.INDEED_SUBMITTED_XPATH,
	}}
}

func (a *Agent) Name() string { return "Indeed" }

func (a *Agent) Enabled() bool { return a.flow.Cfg.Enabled }

func (a *Agent) Run(ctx context.Context, progress worker.ProgressFunc) (*worker.Result, error) {
	result := &worker.Result{Platform: a.Name()}
	worker.Emit(progress, worker.Message(a.Name(), "info", "Starting Indeed job search"))

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
		Task: fmt.Sprintf(`Search for jobs on Indeed and collect the listings:

1. Wait for the Indeed app to finish loading.
2. Tap the search field (it usually reads %q).
3. Type %q and run the search.
4. Apply the "Remote" or "Entry Level" filters when they are offered.
5. Wait for the results to load.
6. Prefer listings tagged %q, they can be completed inside the app.
7. For each listing on screen (aim for %d jobs), note the job title, company name,
   location, salary and whether it is tagged %q.
8. Scroll down when you need more listings.
9. Report done once you have seen enough listings.`,
			locators.INDEED_SEARCH_LABEL, a.flow.Cfg.SearchKeywords,
			locators.INDEED_EASY_APPLY_LABEL, searchTarget, locators.INDEED_EASY_APPLY_LABEL),
		OutputHint: worker.JobsOutputHint,
	}
}

func (a *Agent) applyGoal(job model.JobPosting) droid.Goal {
	return droid.Goal{
		Task: fmt.Sprintf(`1. From the Indeed search results, open the job titled %q at %q.
2. Read the job details page.
3. Tap the "Apply now" button for an %q listing.
4. Fill the application form from the applicant details in the context.
   - If a resume is requested, use the resume already stored in the Indeed profile,
     or upload %q from the Files app.
5. If the flow demands a skills assessment or test, stop and report that the
   application was not submitted, mentioning the assessment.
6. Submit and look for a confirmation such as "Application submitted".
7. Go back to the search results afterwards.`,
			job.JobTitle, job.Company, locators.INDEED_EASY_APPLY_LABEL, a.flow.ResumeFileName()),
		Context:    a.flow.ProfileContext(),
		OutputHint: worker.ConfirmOutputHint,
	}
}
