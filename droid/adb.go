package droid

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"jobdroid/utils"
)

// Android keycodes the agent uses.
const (
	KeycodeHome   = 3
	KeycodeBack   = 4
	KeycodeEnter  = 66
	KeycodeWakeup = 224
)

const uiDumpPath = "/sdcard/window_dump.xml"

// adbAttempts bounds the retries on transient failures.
const adbAttempts = 3

// Transport errors where the command never reached the device.
var transientAdbPattern = regexp.MustCompile(`(?i)device offline|daemon not running|protocol fault|connection reset|error: closed`)

// CommandRunner executes an external command and returns its combined
// output. Swappable so tests never touch a real adb.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

// AdbTools drives one Android device through the adb binary. It is the
// thin client side of the automation layer; the device-side uiautomator
// service does the heavy lifting.
type AdbTools struct {
	serial     string
	runner     CommandRunner
	retryDelay time.Duration
}

func NewAdbTools(serial string) *AdbTools {
	return &AdbTools{serial: serial, runner: execRunner, retryDelay: 300 * time.Millisecond}
}

// Serial returns the device serial this instance targets, if any.
func (a *AdbTools) Serial() string {
	return a.serial
}

func (a *AdbTools) run(ctx context.Context, args ...string) (string, error) {
	full := args
	if a.serial != "" {
		full = append([]string{"-s", a.serial}, args...)
	}
	delay := a.retryDelay
	var out string
	var err error
	for attempt := 1; ; attempt++ {
		out, err = a.runner(ctx, "adb", full...)
		if err == nil {
			return out, nil
		}
		if attempt >= adbAttempts || !transientAdbPattern.MatchString(out) {
			break
		}
		log.Debugf("adb %s failed, retrying: %v", strings.Join(args, " "), err)
		if serr := utils.SleepCtx(ctx, delay); serr != nil {
			return out, serr
		}
		delay *= 2
	}
	return out, fmt.Errorf("adb %s: %w (output: %s)", strings.Join(args, " "), err, utils.Truncate(strings.TrimSpace(out), 200))
}

func (a *AdbTools) shell(ctx context.Context, args ...string) (string, error) {
	return a.run(ctx, append([]string{"shell"}, args...)...)
}

// Version returns the adb client version line, proving the binary is
// installed and runnable.
func (a *AdbTools) Version(ctx context.Context) (string, error) {
	out, err := a.runner(ctx, "adb", "version")
	if err != nil {
		return "", fmt.Errorf("adb not found, install Android platform-tools and put adb on PATH: %w", err)
	}
	return strings.TrimSpace(strings.SplitN(out, "\n", 2)[0]), nil
}

// Devices lists the serials of attached devices in the "device" state.
func (a *AdbTools) Devices(ctx context.Context) ([]string, error) {
	out, err := a.runner(ctx, "adb", "devices")
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	var serials []string
	for _, line := range strings.Split(out, "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials, nil
}

// LaunchApp starts the package's launcher activity.
func (a *AdbTools) LaunchApp(ctx context.Context, pkg string) error {
	_, err := a.shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	return err
}

// Tap sends a tap at screen coordinates.
func (a *AdbTools) Tap(ctx context.Context, x, y int) error {
	_, err := a.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// Swipe drags from (x1,y1) to (x2,y2) over durationMs.
func (a *AdbTools) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	_, err := a.shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2), strconv.Itoa(durationMs))
	return err
}

// TypeText types into the focused field. adb's input text wants spaces
// as %s and shell metacharacters escaped.
func (a *AdbTools) TypeText(ctx context.Context, text string) error {
	_, err := a.shell(ctx, "input", "text", EscapeInputText(text))
	return err
}

// KeyEvent sends an Android keycode.
func (a *AdbTools) KeyEvent(ctx context.Context, code int) error {
	_, err := a.shell(ctx, "input", "keyevent", strconv.Itoa(code))
	return err
}

// WakeUp wakes the screen.
func (a *AdbTools) WakeUp(ctx context.Context) error {
	return a.KeyEvent(ctx, KeycodeWakeup)
}

// DumpUIHierarchy dumps the current view hierarchy via uiautomator and
// returns the XML. Flaky uiautomator passes are retried.
func (a *AdbTools) DumpUIHierarchy(ctx context.Context) (string, error) {
	delay := a.retryDelay
	var lastErr error
	for attempt := 1; attempt <= adbAttempts; attempt++ {
		if attempt > 1 {
			log.Debugf("uiautomator dump failed, retrying: %v", lastErr)
			if err := utils.SleepCtx(ctx, delay); err != nil {
				return "", err
			}
			delay *= 2
		}
		out, err := a.shell(ctx, "uiautomator", "dump", uiDumpPath)
		// uiautomator can report a failed pass on exit status 0.
		if err == nil && strings.Contains(out, "ERROR:") {
			err = fmt.Errorf("uiautomator dump: %s", utils.Truncate(strings.TrimSpace(out), 200))
		}
		if err != nil {
			lastErr = err
			continue
		}
		xml, err := a.shell(ctx, "cat", uiDumpPath)
		if err != nil {
			lastErr = err
			continue
		}
		return xml, nil
	}
	return "", lastErr
}

// CurrentPackage returns the package holding input focus.
func (a *AdbTools) CurrentPackage(ctx context.Context) (string, error) {
	out, err := a.shell(ctx, "dumpsys", "window")
	if err != nil {
		return "", err
	}
	pkg := parseCurrentFocus(out)
	if pkg == "" {
		return "", fmt.Errorf("no focused window in dumpsys output")
	}
	return pkg, nil
}

// ScreenSize returns the device resolution in pixels.
func (a *AdbTools) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := a.shell(ctx, "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	w, h, ok := parseScreenSize(out)
	if !ok {
		return 0, 0, fmt.Errorf("cannot parse wm size output: %s", utils.Truncate(out, 100))
	}
	return w, h, nil
}

// IsInstalled reports whether the package exists on the device.
func (a *AdbTools) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	out, err := a.shell(ctx, "pm", "list", "packages", pkg)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "package:"+pkg {
			return true, nil
		}
	}
	return false, nil
}

var inputEscaper = strings.NewReplacer(
	`\`, `\\`,
	` `, `%s`,
	`&`, `\&`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
	`(`, `\(`,
	`)`, `\)`,
	`;`, `\;`,
	`*`, `\*`,
	`~`, `\~`,
	`"`, `\"`,
	`'`, `\'`,
	"`", "\\`",
	`$`, `\$`,
)

// EscapeInputText makes text safe for `input text`.
func EscapeInputText(text string) string {
	return inputEscaper.Replace(text)
}

var currentFocusPattern = regexp.MustCompile(`mCurrentFocus=Window\{[^ ]+ [^ ]+ ([A-Za-z0-9_.]+)/`)

func parseCurrentFocus(dumpsys string) string {
	m := currentFocusPattern.FindStringSubmatch(dumpsys)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

var screenSizePattern = regexp.MustCompile(`(?m)(?:Override|Physical) size:\s*(\d+)x(\d+)`)

func parseScreenSize(out string) (int, int, bool) {
	// Override size wins over physical when both are reported.
	matches := screenSizePattern.FindAllStringSubmatch(out, -1)
	if len(matches) == 0 {
		return 0, 0, false
	}
	last := matches[len(matches)-1]
	w, err1 := strconv.Atoi(last[1])
	h, err2 := strconv.Atoi(last[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return w, h, true
}
