package unstop

import (
	"context"
	"fmt"

	locators "jobdroid/Locators"
	"jobdroid/droid"
	"jobdroid/model"
	"jobdroid/worker"
)

const searchTarget = 5

// Agent registers for internships and jobs on Unstop. Unstop calls an
// application a registration, so the apply flow looks for the Register
// button instead of Apply.
type Agent struct {
	flow worker.Flow
}

func NewAgent(deps worker.Deps) *Agent {
	return &Agent{flow: worker.Flow{
		Deps:     deps,
		Platform: "Unstop",
		Package:  locators.UNSTOP_PACKAGE,
		Method:   "Unstop Register",
		Cfg:      &deps.Config.Platforms.Unstop,
	}}
}

func (a *Agent) Name() string { return "Unstop" }

func (a *Agent) Enabled() bool { return a.flow.Cfg.Enabled }

func (a *Agent) Run(ctx context.Context, progress worker.ProgressFunc) (*worker.Result, error) {
	result := &worker.Result{Platform: a.Name()}
	worker.Emit(progress, worker.Message(a.Name(), "info", "Starting Unstop opportunity search"))

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
		fmt.Sprintf("Found %d opportunities, %d matched criteria", len(jobs), len(matched))))

	if err := a.flow.ApplyLoop(ctx, matched, a.applyGoal, result, progress); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	return result, nil
}

func (a *Agent) searchGoal() droid.Goal {
	return droid.Goal{
		Task: fmt.Sprintf(`Search for opportunities on Unstop and collect the listings:

1. Wait for the Unstop app to finish loading, dismiss any popup.
2. Go to the Internships or Jobs section.
3. Tap the search field (it usually reads %q).
4. Type %q and run the search.
5. Wait for the results to load.
6. For each opportunity on screen (aim for %d), note the title, the company or
   organizer name, the location or "Remote", and the stipend when shown.
7. Scroll down when you need more listings.
8. Report done once you have seen enough listings.`,
			locators.UNSTOP_SEARCH_LABEL, a.flow.Cfg.SearchKeywords, searchTarget),
		OutputHint: worker.JobsOutputHint,
	}
}

func (a *Agent) applyGoal(job model.JobPosting) droid.Goal {
	return droid.Goal{
		Task: fmt.Sprintf(`1. From the Unstop search results, open the opportunity titled %q by %q.
2. Read the details page.
3. Tap the %q button.
4. Complete the registration form from the applicant details in the context.
   Unstop may ask for institute or graduation year, answer consistently with
   an early-career profile.
5. Submit and look for a confirmation such as "Registered" or "Successfully registered".
6. Go back to the search results afterwards.`,
			job.JobTitle, job.Company, locators.UNSTOP_REGISTER_LABEL),
		Context:    a.flow.ProfileContext(),
		OutputHint: worker.ConfirmOutputHint,
	}
}
