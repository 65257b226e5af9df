package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	locators "jobdroid/Locators"
	"jobdroid/config"
	"jobdroid/droid"
	"jobdroid/model"
	"jobdroid/utils"
	"jobdroid/worker"
)

// Checker reads the Gmail inbox for replies to tracked applications
// and moves their status forward.
type Checker struct {
	deps worker.Deps
	cfg  config.EmailConfig
}

// CheckResult summarizes one inbox pass.
type CheckResult struct {
	EmailsChecked int      `json:"emails_checked"`
	Updates       int      `json:"updates"`
	Interviews    int      `json:"interviews"`
	Rejections    int      `json:"rejections"`
	Offers        int      `json:"offers"`
	Errors        []string `json:"errors"`
}

func NewChecker(deps worker.Deps) *Checker {
	return &Checker{
		deps: deps,
		cfg:  deps.Config.Email,
	}
}

func (c *Checker) Name() string { return "Email" }

func (c *Checker) Enabled() bool { return c.cfg.Enabled }

func (c *Checker) Run(ctx context.Context, progress worker.ProgressFunc) (*CheckResult, error) {
	result := &CheckResult{}
	worker.Emit(progress, worker.Message(c.Name(), "info",
		fmt.Sprintf("Checking inbox for application updates (last %d days)", c.cfg.LookbackDays)))

	companies, err := c.openCompanies()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	if len(companies) == 0 {
		worker.Emit(progress, worker.Message(c.Name(), "info", "No open applications to check"))
		return result, nil
	}

	installed, err := c.deps.Device.AppInstalled(ctx, locators.GMAIL_PACKAGE)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	if !installed {
		err := fmt.Errorf("Gmail (%s) is not installed on the device", locators.GMAIL_PACKAGE)
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	if err := c.deps.Device.LaunchApp(ctx, locators.GMAIL_PACKAGE); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	if err := utils.SleepCtx(ctx, 3*time.Second); err != nil {
		return result, err
	}

	emails, err := c.collectEmails(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	result.EmailsChecked = len(emails)

	for _, email := range emails {
		kind := ClassifyEmail(email)
		if kind == model.EmailNone {
			continue
		}
		company := matchCompany(email, companies)
		if company == "" {
			continue
		}
		updated := c.applyUpdate(company, kind, email)
		if updated == 0 {
			continue
		}
		result.Updates += updated
		switch kind {
		case model.EmailInterview:
			result.Interviews++
		case model.EmailRejection:
			result.Rejections++
		case model.EmailOffer:
			result.Offers++
		}
		worker.Emit(progress, worker.Message(c.Name(), "success",
			fmt.Sprintf("%s update from %s", kind, company)))
	}

	worker.Emit(progress, worker.Message(c.Name(), "info",
		fmt.Sprintf("Checked %d email(s), %d status update(s)", result.EmailsChecked, result.Updates)))
	return result, nil
}

// openCompanies returns the distinct companies with an application
// still awaiting an outcome.
func (c *Checker) openCompanies() ([]string, error) {
	records, err := c.deps.Repo.FindApplications()
	if err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}
	seen := make(map[string]bool)
	var companies []string
	for _, record := range records {
		if !utils.ContainsFold(model.OpenStatuses, record.Status) || record.Company == "" {
			continue
		}
		key := strings.ToLower(record.Company)
		if seen[key] {
			continue
		}
		seen[key] = true
		companies = append(companies, record.Company)
	}
	return companies, nil
}

func (c *Checker) collectEmails(ctx context.Context) ([]model.EmailMessage, error) {
	goal := droid.Goal{
		Task: fmt.Sprintf(`1. Wait for the Gmail app to finish loading and go to the Primary inbox.
2. Tap the search field at the top (it usually reads %q).
3. Search for emails containing: application OR interview OR job OR position.
4. Look only at results from the last %d days.
5. For each relevant email, note the sender, the subject line and the visible
   preview text. Scroll down to cover the period.
6. Report done once you have seen them all.`, locators.GMAIL_SEARCH_LABEL, c.cfg.LookbackDays),
		OutputHint: `List the emails you saw. Return JSON in exactly this shape:
{"emails":[{"subject":"","sender":"","snippet":""}]}`,
	}

	var out model.EmailSearchResults
	runResult, err := c.deps.Device.NewAgent(c.deps.LLM).RunForJSON(ctx, goal, &out)
	if err != nil {
		return nil, err
	}
	if !runResult.Success {
		return nil, fmt.Errorf("inbox search did not finish: %s", runResult.Reason)
	}
	return out.Emails, nil
}

// applyUpdate moves every open application at the company to the new
// status and returns how many rows changed.
func (c *Checker) applyUpdate(company string, kind model.EmailKind, email model.EmailMessage) int {
	records, err := c.deps.Repo.FindOpenByCompany(company)
	if err != nil {
		log.Warnf("Could not load open applications for %s: %v", company, err)
		return 0
	}

	status := statusFor(kind)
	note := fmt.Sprintf("Email from %s: %s", email.Sender, utils.Truncate(email.Subject, 120))

	updated := 0
	for _, record := range records {
		if record.Status == status || record.ApplicationID == "" {
			continue
		}
		if err := c.deps.Tracker.UpdateStatus(record.ApplicationID, status, note); err != nil {
			log.Warnf("Could not update %s: %v", record.ApplicationID, err)
			continue
		}
		updated++
	}
	return updated
}

var interviewKeywords = []string{"interview", "schedule", "meet", "discuss", "round", "assessment"}
var rejectionKeywords = []string{"regret", "unfortunately", "not selected", "not moving forward", "rejected"}
var offerKeywords = []string{"offer", "congratulations", "selected", "pleased to inform"}

// ClassifyEmail buckets an email by subject and snippet. Interview
// wording wins over rejection wording, rejection over offer.
func ClassifyEmail(email model.EmailMessage) model.EmailKind {
	text := strings.ToLower(email.Subject + " " + email.Snippet)
	for _, kw := range interviewKeywords {
		if strings.Contains(text, kw) {
			return model.EmailInterview
		}
	}
	for _, kw := range rejectionKeywords {
		if strings.Contains(text, kw) {
			return model.EmailRejection
		}
	}
	for _, kw := range offerKeywords {
		if strings.Contains(text, kw) {
			return model.EmailOffer
		}
	}
	return model.EmailNone
}

// matchCompany finds which tracked company an email is about by
// looking for the company name in the sender, subject or snippet.
func matchCompany(email model.EmailMessage, companies []string) string {
	text := strings.ToLower(email.Sender + " " + email.Subject + " " + email.Snippet)
	for _, company := range companies {
		if company != "" && strings.Contains(text, strings.ToLower(company)) {
			return company
		}
	}
	return ""
}

func statusFor(kind model.EmailKind) string {
	switch kind {
	case model.EmailInterview:
		return model.StatusInterview
	case model.EmailRejection:
		return model.StatusRejected
	case model.EmailOffer:
		return model.StatusOffer
	default:
		return ""
	}
}
