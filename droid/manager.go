package droid

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"jobdroid/config"
)

// DeviceManager owns the adb connection for one session. Init resolves
// and wakes the device, Close parks it back on the home screen.
type DeviceManager struct {
	mu    sync.RWMutex
	cfg   config.DeviceConfig
	tools *AdbTools
	ready bool

	// runner overrides command execution in tests, nil means real adb.
	runner CommandRunner
}

func NewDeviceManager(cfg config.DeviceConfig) *DeviceManager {
	return &DeviceManager{cfg: cfg}
}

func (m *DeviceManager) newTools(serial string) *AdbTools {
	tools := NewAdbTools(serial)
	if m.runner != nil {
		tools.runner = m.runner
	}
	return tools
}

// Init verifies adb, picks a device and wakes its screen.
func (m *DeviceManager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		return nil
	}

	log.Info("Initializing device connection...")

	probe := m.newTools("")
	version, err := probe.Version(ctx)
	if err != nil {
		return err
	}
	log.Infof("Found %s", version)

	serials, err := probe.Devices(ctx)
	if err != nil {
		return err
	}
	serial, err := resolveSerial(m.cfg.Serial, serials)
	if err != nil {
		return err
	}

	tools := m.newTools(serial)
	if err := tools.WakeUp(ctx); err != nil {
		return fmt.Errorf("wake device %s: %w", serial, err)
	}
	if w, h, err := tools.ScreenSize(ctx); err == nil {
		log.Infof("Device %s ready (%dx%d)", serial, w, h)
	} else {
		log.Infof("Device %s ready", serial)
	}

	m.tools = tools
	m.ready = true
	return nil
}

func resolveSerial(configured string, attached []string) (string, error) {
	if len(attached) == 0 {
		return "", fmt.Errorf("no Android device attached, enable USB debugging and check `adb devices`")
	}
	if configured == "" {
		if len(attached) > 1 {
			return "", fmt.Errorf("%d devices attached, set device.serial or ANDROID_SERIAL to pick one", len(attached))
		}
		return attached[0], nil
	}
	for _, s := range attached {
		if s == configured {
			return configured, nil
		}
	}
	return "", fmt.Errorf("device %s not attached (attached: %v)", configured, attached)
}

// Ready reports whether Init completed.
func (m *DeviceManager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Tools returns the adb wrapper for the resolved device.
func (m *DeviceManager) Tools() *AdbTools {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tools
}

// NewAgent builds an agent bound to this device with the configured
// step limit and pacing.
func (m *DeviceManager) NewAgent(llm LLM) *Agent {
	return NewAgent(m.Tools(), llm, m.cfg.MaxSteps, time.Duration(m.cfg.StepDelayMs)*time.Millisecond)
}

// AppInstalled reports whether the package exists on the device.
func (m *DeviceManager) AppInstalled(ctx context.Context, pkg string) (bool, error) {
	tools := m.Tools()
	if tools == nil {
		return false, fmt.Errorf("device not initialized")
	}
	return tools.IsInstalled(ctx, pkg)
}

// LaunchApp starts the package's launcher activity.
func (m *DeviceManager) LaunchApp(ctx context.Context, pkg string) error {
	tools := m.Tools()
	if tools == nil {
		return fmt.Errorf("device not initialized")
	}
	return tools.LaunchApp(ctx, pkg)
}

// CurrentTree dumps the current screen and returns it parsed.
func (m *DeviceManager) CurrentTree(ctx context.Context) (*UITree, error) {
	tools := m.Tools()
	if tools == nil {
		return nil, fmt.Errorf("device not initialized")
	}
	dump, err := tools.DumpUIHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	return ParseUITree(dump)
}

// Close returns the device to the home screen and forgets it.
func (m *DeviceManager) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return
	}
	if err := m.tools.KeyEvent(ctx, KeycodeHome); err != nil {
		log.Warnf("Could not return to home screen: %v", err)
	}
	m.tools = nil
	m.ready = false
	log.Info("Device connection closed")
}
