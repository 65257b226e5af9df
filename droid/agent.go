package droid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"jobdroid/utils"
)

// LLM is the language-model surface the agent needs. AiService
// implements it.
type LLM interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, out interface{}) error
}

// DeviceController is the device surface the agent drives. AdbTools
// implements it; tests substitute a scripted device.
type DeviceController interface {
	LaunchApp(ctx context.Context, pkg string) error
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error
	TypeText(ctx context.Context, text string) error
	KeyEvent(ctx context.Context, code int) error
	DumpUIHierarchy(ctx context.Context) (string, error)
	CurrentPackage(ctx context.Context) (string, error)
	ScreenSize(ctx context.Context) (int, int, error)
}

// Goal is one task for the agent, written as numbered steps the way a
// human tester would phrase them.
type Goal struct {
	Task string
	// Context carries profile or resume fragments the task may need.
	Context string
	// OutputHint, when set, describes the JSON the agent must extract
	// from the screen once the task is finished.
	OutputHint string
}

// RunResult is the outcome of one goal run.
type RunResult struct {
	Success bool
	Reason  string
	Steps   int
	// Output holds the extracted JSON when the goal asked for one.
	Output string
}

// agentDecision is the structured action the model returns each step.
type agentDecision struct {
	Action string `json:"action"`
	Target int    `json:"target"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Agent runs the observe, decide, execute loop against one device.
type Agent struct {
	device    DeviceController
	llm       LLM
	maxSteps  int
	stepDelay time.Duration

	screenW int
	screenH int
	// screens keeps the text content of recently visited screens so
	// extraction sees data that scrolled out of view.
	screens []string
}

const keptScreens = 5

func NewAgent(device DeviceController, llm LLM, maxSteps int, stepDelay time.Duration) *Agent {
	if maxSteps <= 0 {
		maxSteps = 30
	}
	return &Agent{
		device:    device,
		llm:       llm,
		maxSteps:  maxSteps,
		stepDelay: stepDelay,
	}
}

// Run works the goal until the model reports done, aborts, or the step
// limit is hit. A nil error with Success=false means the device and
// model behaved but the task did not finish.
func (a *Agent) Run(ctx context.Context, goal Goal) (*RunResult, error) {
	log.Infof("Agent goal: %s", utils.Truncate(firstLine(goal.Task), 120))
	a.screens = a.screens[:0]

	var history []string
	var lastTree *UITree
	for step := 1; step <= a.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tree, err := a.observe(ctx)
		if err != nil {
			return nil, fmt.Errorf("step %d observe: %w", step, err)
		}
		lastTree = tree

		pkg, _ := a.device.CurrentPackage(ctx)
		prompt := a.buildStepPrompt(goal, pkg, tree, history, step)

		var d agentDecision
		if err := a.llm.GenerateJSON(ctx, prompt, &d); err != nil {
			return nil, fmt.Errorf("step %d decision: %w", step, err)
		}
		log.Debugf("Step %d/%d: %s (%s)", step, a.maxSteps, d.Action, utils.Truncate(d.Reason, 100))

		switch d.Action {
		case "done":
			result := &RunResult{Success: true, Reason: d.Reason, Steps: step}
			if goal.OutputHint != "" {
				output, err := a.extract(ctx, goal, lastTree)
				if err != nil {
					return nil, fmt.Errorf("extract output: %w", err)
				}
				result.Output = output
			}
			return result, nil
		case "abort":
			return &RunResult{Success: false, Reason: d.Reason, Steps: step}, nil
		default:
			note, err := a.execute(ctx, tree, d)
			if err != nil {
				return nil, fmt.Errorf("step %d %s: %w", step, d.Action, err)
			}
			history = appendHistory(history, fmt.Sprintf("step %d: %s", step, note))
		}

		if err := utils.SleepCtx(ctx, a.stepDelay); err != nil {
			return nil, err
		}
	}
	return &RunResult{Success: false, Reason: fmt.Sprintf("step limit (%d) reached", a.maxSteps), Steps: a.maxSteps}, nil
}

// RunForJSON runs the goal and decodes the extracted output into out.
func (a *Agent) RunForJSON(ctx context.Context, goal Goal, out interface{}) (*RunResult, error) {
	if goal.OutputHint == "" {
		return nil, fmt.Errorf("goal has no output hint")
	}
	result, err := a.Run(ctx, goal)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return result, nil
	}
	if result.Output == "" {
		return result, fmt.Errorf("agent finished without output")
	}
	if err := json.Unmarshal([]byte(result.Output), out); err != nil {
		return result, fmt.Errorf("decode agent output: %w (output: %s)", err, utils.Truncate(result.Output, 200))
	}
	return result, nil
}

func (a *Agent) observe(ctx context.Context) (*UITree, error) {
	dump, err := a.device.DumpUIHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	tree, err := ParseUITree(dump)
	if err != nil {
		return nil, err
	}
	a.rememberScreen(tree)
	return tree, nil
}

func (a *Agent) rememberScreen(tree *UITree) {
	text := tree.TextContent()
	if text == "" {
		return
	}
	if len(a.screens) > 0 && a.screens[len(a.screens)-1] == text {
		return
	}
	a.screens = append(a.screens, text)
	if len(a.screens) > keptScreens {
		a.screens = a.screens[len(a.screens)-keptScreens:]
	}
}

func (a *Agent) execute(ctx context.Context, tree *UITree, d agentDecision) (string, error) {
	switch d.Action {
	case "tap":
		node, ok := tree.Node(d.Target)
		if !ok {
			return fmt.Sprintf("tap [%d] ignored, no such element", d.Target), nil
		}
		if err := a.device.Tap(ctx, node.Bounds.CenterX(), node.Bounds.CenterY()); err != nil {
			return "", err
		}
		return fmt.Sprintf("tapped [%d] %q", d.Target, utils.Truncate(node.Label(), 60)), nil
	case "type":
		if node, ok := tree.Node(d.Target); ok {
			if err := a.device.Tap(ctx, node.Bounds.CenterX(), node.Bounds.CenterY()); err != nil {
				return "", err
			}
		}
		if err := a.device.TypeText(ctx, d.Text); err != nil {
			return "", err
		}
		return fmt.Sprintf("typed %q into [%d]", utils.Truncate(d.Text, 60), d.Target), nil
	case "swipe_up", "swipe_down":
		if err := a.swipe(ctx, d.Action == "swipe_up"); err != nil {
			return "", err
		}
		return d.Action, nil
	case "back":
		return "pressed back", a.device.KeyEvent(ctx, KeycodeBack)
	case "enter":
		return "pressed enter", a.device.KeyEvent(ctx, KeycodeEnter)
	case "home":
		return "pressed home", a.device.KeyEvent(ctx, KeycodeHome)
	case "launch":
		if err := a.device.LaunchApp(ctx, d.Text); err != nil {
			return "", err
		}
		return "launched " + d.Text, nil
	case "wait":
		if err := utils.SleepCtx(ctx, 2*time.Second); err != nil {
			return "", err
		}
		return "waited", nil
	default:
		return fmt.Sprintf("unknown action %q ignored", d.Action), nil
	}
}

// swipe scrolls roughly two thirds of the screen. Swiping up reveals
// content further down.
func (a *Agent) swipe(ctx context.Context, up bool) error {
	w, h, err := a.screenSize(ctx)
	if err != nil {
		return err
	}
	x := w / 2
	top, bottom := h/4, h*3/4
	if up {
		return a.device.Swipe(ctx, x, bottom, x, top, 300)
	}
	return a.device.Swipe(ctx, x, top, x, bottom, 300)
}

func (a *Agent) screenSize(ctx context.Context) (int, int, error) {
	if a.screenW == 0 {
		w, h, err := a.device.ScreenSize(ctx)
		if err != nil {
			return 0, 0, err
		}
		a.screenW, a.screenH = w, h
	}
	return a.screenW, a.screenH, nil
}

func (a *Agent) buildStepPrompt(goal Goal, pkg string, tree *UITree, history []string, step int) string {
	var sb strings.Builder
	sb.WriteString("You are controlling an Android phone to complete a task.\n\n")
	sb.WriteString("TASK:\n")
	sb.WriteString(goal.Task)
	sb.WriteString("\n")
	if goal.Context != "" {
		sb.WriteString("\nCONTEXT:\n")
		sb.WriteString(goal.Context)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nSTEP %d of %d", step, a.maxSteps)
	if pkg != "" {
		fmt.Fprintf(&sb, ", current app: %s", pkg)
	}
	sb.WriteString("\n")
	if len(history) > 0 {
		sb.WriteString("\nACTIONS SO FAR:\n")
		sb.WriteString(strings.Join(history, "\n"))
		sb.WriteString("\n")
	}
	sb.WriteString("\nINTERACTIVE ELEMENTS:\n")
	sb.WriteString(tree.Summary())
	sb.WriteString(`
Choose exactly one action:
- {"action":"tap","target":<element index>,"reason":"..."}
- {"action":"type","target":<element index>,"text":"...","reason":"..."} (taps the field first)
- {"action":"swipe_up","reason":"..."} (scroll to content further down)
- {"action":"swipe_down","reason":"..."} (scroll back up)
- {"action":"back","reason":"..."} / {"action":"enter","reason":"..."} / {"action":"home","reason":"..."}
- {"action":"launch","text":"<package name>","reason":"..."}
- {"action":"wait","reason":"..."} (screen still loading)
- {"action":"done","reason":"..."} (task is complete)
- {"action":"abort","reason":"..."} (task cannot be completed, say why)

Never invent element indexes. If the task asks you to collect information from
several screens, scroll through them before reporting done.`)
	return sb.String()
}

func (a *Agent) extract(ctx context.Context, goal Goal, tree *UITree) (string, error) {
	screens := a.screens
	if len(screens) == 0 && tree != nil {
		screens = []string{tree.TextContent()}
	}
	var sb strings.Builder
	sb.WriteString("The task below has just been completed on an Android phone.\n\nTASK:\n")
	sb.WriteString(goal.Task)
	sb.WriteString("\n\nSCREEN CONTENT SEEN (oldest first):\n")
	for i, s := range screens {
		fmt.Fprintf(&sb, "--- screen %d ---\n%s\n", i+1, utils.Truncate(s, 4000))
	}
	sb.WriteString("\n")
	sb.WriteString(goal.OutputHint)

	var raw json.RawMessage
	if err := a.llm.GenerateJSON(ctx, sb.String(), &raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func appendHistory(history []string, entry string) []string {
	history = append(history, entry)
	if len(history) > 12 {
		history = history[len(history)-12:]
	}
	return history
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
