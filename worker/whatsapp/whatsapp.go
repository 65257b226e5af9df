package whatsapp

import (
	"context"
	"errors"
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

// Agent scans WhatsApp groups for job openings shared in chat. It
// never messages anyone, matching posts are stored as leads for the
// user to follow up by hand.
type Agent struct {
	deps worker.Deps
	cfg  *config.WhatsAppConfig
}

// groupMessages is the structured output of one group scan.
type groupMessages struct {
	Messages []groupMessage `json:"messages"`
}

type groupMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// lead is what the model pulls out of a matching message.
type lead struct {
	Company  string `json:"company"`
	JobTitle string `json:"job_title"`
	Location string `json:"location"`
	Contact  string `json:"contact"`
}

func NewAgent(deps worker.Deps) *Agent {
	return &Agent{
		deps: deps,
		cfg:  &deps.Config.Platforms.WhatsApp,
	}
}

func (a *Agent) Name() string { return "WhatsApp" }

func (a *Agent) Enabled() bool {
	return a.cfg.Enabled && len(a.cfg.Groups) > 0
}

func (a *Agent) Run(ctx context.Context, progress worker.ProgressFunc) (*worker.Result, error) {
	result := &worker.Result{Platform: a.Name()}
	worker.Emit(progress, worker.Message(a.Name(), "info",
		fmt.Sprintf("Scanning %d WhatsApp group(s) for job posts", len(a.cfg.Groups))))

	installed, err := a.deps.Device.AppInstalled(ctx, locators.WHATSAPP_PACKAGE)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	if !installed {
		err := fmt.Errorf("WhatsApp (%s) is not installed on the device", locators.WHATSAPP_PACKAGE)
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	if err := a.deps.Device.LaunchApp(ctx, locators.WHATSAPP_PACKAGE); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	if err := utils.SleepCtx(ctx, 3*time.Second); err != nil {
		return result, err
	}

	for i, group := range a.cfg.Groups {
		worker.Emit(progress, worker.Counted(a.Name(), "Scanning group: "+group, i+1, len(a.cfg.Groups)))

		messages, err := a.scanGroup(ctx, group)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			result.Errors = append(result.Errors, fmt.Sprintf("group %s: %v", group, err))
			worker.Emit(progress, worker.Message(a.Name(), "warning", "Could not scan "+group))
			continue
		}
		result.JobsFound += len(messages)

		for _, msg := range messages {
			if !a.matchesKeywords(msg.Text) {
				continue
			}
			result.JobsMatched++
			if a.recordLead(ctx, group, msg) {
				result.LeadsRecorded++
			}
		}
	}

	worker.Emit(progress, worker.Message(a.Name(), "success",
		fmt.Sprintf("Recorded %d lead(s) from %d message(s)", result.LeadsRecorded, result.JobsFound)))
	return result, nil
}

func (a *Agent) scanGroup(ctx context.Context, group string) ([]groupMessage, error) {
	goal := droid.Goal{
		Task: fmt.Sprintf(`1. From the WhatsApp chat list, tap the search icon at the top.
2. Type %q and open the matching group chat.
3. Read the most recent messages, up to %d. Scroll up a little when the
   conversation is longer than one screen.
4. Note each message's sender and text.
5. Go back to the chat list and report done.`, group, a.maxMessages()),
		OutputHint: `List the messages you read, newest last. Return JSON in exactly this shape:
{"messages":[{"sender":"","text":""}]}`,
	}

	var out groupMessages
	runResult, err := a.deps.Device.NewAgent(a.deps.LLM).RunForJSON(ctx, goal, &out)
	if err != nil {
		return nil, err
	}
	if !runResult.Success {
		return nil, fmt.Errorf("scan did not finish: %s", runResult.Reason)
	}
	return out.Messages, nil
}

func (a *Agent) maxMessages() int {
	if a.cfg.MaxMessagesPerGroup > 0 {
		return a.cfg.MaxMessagesPerGroup
	}
	return 30
}

func (a *Agent) matchesKeywords(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range a.cfg.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// recordLead extracts the opening's details from the message and files
// it, skipping leads the tracker already has.
func (a *Agent) recordLead(ctx context.Context, group string, msg groupMessage) bool {
	details := a.extractLead(ctx, msg)

	company := utils.DefaultIfEmpty(details.Company, msg.Sender)
	title := utils.DefaultIfEmpty(details.JobTitle, "Job lead")

	existing, err := a.deps.Repo.FindByJob(a.Name(), company, title)
	if err != nil {
		log.Warnf("Could not look up lead %s at %s: %v", title, company, err)
		return false
	}
	if existing != nil {
		return false
	}

	var notes strings.Builder
	fmt.Fprintf(&notes, "Group: %s", group)
	if details.Contact != "" {
		fmt.Fprintf(&notes, "\nContact: %s", details.Contact)
	}
	fmt.Fprintf(&notes, "\nMessage: %s", utils.Truncate(msg.Text, 300))

	record := &model.JobRecord{
		Platform:          a.Name(),
		Company:           company,
		JobTitle:          title,
		Location:          details.Location,
		Status:            model.StatusLead,
		ApplicationMethod: "WhatsApp Lead",
		Notes:             notes.String(),
	}
	if err := a.deps.Tracker.AddApplication(record); err != nil {
		log.Errorf("Could not record lead %s at %s: %v", title, company, err)
		return false
	}
	return true
}

// extractLead asks the model for structured details, falling back to
// an empty lead when the message resists parsing.
func (a *Agent) extractLead(ctx context.Context, msg groupMessage) lead {
	prompt := fmt.Sprintf(`The WhatsApp message below advertises a job opening. Extract the details.
Return JSON in exactly this shape, leaving fields empty when absent:
{"company":"","job_title":"","location":"","contact":""}

Sender: %s
Message:
%s`, msg.Sender, utils.Truncate(msg.Text, 1000))

	var details lead
	if err := a.deps.LLM.GenerateJSON(ctx, prompt, &details); err != nil {
		log.Warnf("Could not extract lead details: %v", err)
	}
	return details
}
