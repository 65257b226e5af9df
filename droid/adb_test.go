package droid

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSerialIsPrependedToEveryCommand(t *testing.T) {
	var got [][]string
	a := NewAdbTools("emulator-5554")
	a.runner = func(ctx context.Context, name string, args ...string) (string, error) {
		got = append(got, append([]string{name}, args...))
		return "", nil
	}

	if err := a.Tap(context.Background(), 100, 200); err != nil {
		t.Fatalf("Tap: %v", err)
	}

	want := []string{"adb", "-s", "emulator-5554", "shell", "input", "tap", "100", "200"}
	if len(got) != 1 || !reflect.DeepEqual(got[0], want) {
		t.Errorf("command = %v, want %v", got, want)
	}
}

func TestDevicesParsesSerialList(t *testing.T) {
	a := NewAdbTools("")
	a.runner = func(ctx context.Context, name string, args ...string) (string, error) {
		return "List of devices attached\nemulator-5554\tdevice\n0123456789ABCDEF\tunauthorized\n\n", nil
	}

	serials, err := a.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if !reflect.DeepEqual(serials, []string{"emulator-5554"}) {
		t.Errorf("serials = %v, want [emulator-5554]", serials)
	}
}

func TestDumpUIHierarchyDumpsThenReads(t *testing.T) {
	var cmds []string
	a := NewAdbTools("")
	a.runner = func(ctx context.Context, name string, args ...string) (string, error) {
		joined := strings.Join(args, " ")
		cmds = append(cmds, joined)
		if strings.Contains(joined, "cat") {
			return "<?xml version='1.0'?><hierarchy/>", nil
		}
		return "UI hierchary dumped to: /sdcard/window_dump.xml", nil
	}

	xml, err := a.DumpUIHierarchy(context.Background())
	if err != nil {
		t.Fatalf("DumpUIHierarchy: %v", err)
	}
	if !strings.Contains(xml, "<hierarchy/>") {
		t.Errorf("xml = %q, want hierarchy content", xml)
	}
	if len(cmds) != 2 || !strings.Contains(cmds[0], "uiautomator dump") || !strings.Contains(cmds[1], "cat") {
		t.Errorf("commands = %v, want dump then cat", cmds)
	}
}

func TestIsInstalledMatchesExactPackage(t *testing.T) {
	a := NewAdbTools("")
	a.runner = func(ctx context.Context, name string, args ...string) (string, error) {
		return "package:com.linkedin.android\npackage:com.linkedin.android.salesnavigator\n", nil
	}

	installed, err := a.IsInstalled(context.Background(), "com.linkedin.android")
	if err != nil {
		t.Fatalf("IsInstalled: %v", err)
	}
	if !installed {
		t.Error("expected com.linkedin.android to be installed")
	}

	installed, err = a.IsInstalled(context.Background(), "com.linkedin.android.jobs")
	if err != nil {
		t.Fatalf("IsInstalled: %v", err)
	}
	if installed {
		t.Error("prefix match should not count as installed")
	}
}

func TestCommandErrorIncludesDeviceOutput(t *testing.T) {
	calls := 0
	a := NewAdbTools("")
	a.runner = func(ctx context.Context, name string, args ...string) (string, error) {
		calls++
		return "Exception occurred while executing 'tap'", errors.New("exit status 255")
	}

	err := a.Tap(context.Background(), 1, 1)
	if err == nil || !strings.Contains(err.Error(), "Exception occurred") {
		t.Errorf("err = %v, want device output included", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, a device-side failure must not be retried", calls)
	}
}

func TestTransientErrorsAreRetried(t *testing.T) {
	calls := 0
	a := NewAdbTools("")
	a.retryDelay = time.Millisecond
	a.runner = func(ctx context.Context, name string, args ...string) (string, error) {
		calls++
		if calls < 3 {
			return "error: device offline", errors.New("exit status 1")
		}
		return "", nil
	}

	if err := a.Tap(context.Background(), 1, 1); err != nil {
		t.Fatalf("Tap after transient failures: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	calls = 0
	a.runner = func(ctx context.Context, name string, args ...string) (string, error) {
		calls++
		return "error: device offline", errors.New("exit status 1")
	}
	if err := a.Tap(context.Background(), 1, 1); err == nil {
		t.Fatal("persistent offline device must surface an error")
	}
	if calls != adbAttempts {
		t.Errorf("calls = %d, want the retry bound %d", calls, adbAttempts)
	}
}

func TestDumpRetriesFlakyPasses(t *testing.T) {
	dumps := 0
	a := NewAdbTools("")
	a.retryDelay = time.Millisecond
	a.runner = func(ctx context.Context, name string, args ...string) (string, error) {
		joined := strings.Join(args, " ")
		if strings.Contains(joined, "uiautomator dump") {
			dumps++
			if dumps == 1 {
				// exit status 0 with an error message, the classic flake
				return "ERROR: could not get idle state.", nil
			}
			return "UI hierchary dumped to: /sdcard/window_dump.xml", nil
		}
		return "<?xml version='1.0'?><hierarchy/>", nil
	}

	xml, err := a.DumpUIHierarchy(context.Background())
	if err != nil {
		t.Fatalf("DumpUIHierarchy: %v", err)
	}
	if !strings.Contains(xml, "<hierarchy/>") {
		t.Errorf("xml = %q", xml)
	}
	if dumps != 2 {
		t.Errorf("dump attempts = %d, want 2", dumps)
	}
}

func TestEscapeInputText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"hello world", "hello%sworld"},
		{"a&b", `a\&b`},
		{"it's", `it\'s`},
		{`say "hi"`, `say%s\"hi\"`},
		{`back\slash`, `back\\slash`},
		{"cost $5", `cost%s\$5`},
	}
	for _, tt := range tests {
		if got := EscapeInputText(tt.in); got != tt.want {
			t.Errorf("EscapeInputText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseScreenSize(t *testing.T) {
	w, h, ok := parseScreenSize("Physical size: 1080x2340\n")
	if !ok || w != 1080 || h != 2340 {
		t.Errorf("got %dx%d ok=%v, want 1080x2340", w, h, ok)
	}

	w, h, ok = parseScreenSize("Physical size: 1080x2340\nOverride size: 720x1560\n")
	if !ok || w != 720 || h != 1560 {
		t.Errorf("got %dx%d ok=%v, want override 720x1560", w, h, ok)
	}

	if _, _, ok = parseScreenSize("wm: error"); ok {
		t.Error("garbage output should not parse")
	}
}

func TestParseCurrentFocus(t *testing.T) {
	out := "  mCurrentFocus=Window{7a4bc12 u0 com.linkedin.android/com.linkedin.android.infra.MainActivity}\n"
	if pkg := parseCurrentFocus(out); pkg != "com.linkedin.android" {
		t.Errorf("pkg = %q, want com.linkedin.android", pkg)
	}
	if pkg := parseCurrentFocus("mCurrentFocus=null"); pkg != "" {
		t.Errorf("pkg = %q, want empty for null focus", pkg)
	}
}
