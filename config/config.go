package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// GlobalConfig is the full contents of config.json.
type GlobalConfig struct {
	UserProfile    UserProfileConfig    `mapstructure:"user_profile"`
	JobPreferences JobPreferencesConfig `mapstructure:"job_preferences"`
	Platforms      PlatformsConfig      `mapstructure:"platforms"`
	Email          EmailConfig          `mapstructure:"email"`
	LLM            LLMConfig            `mapstructure:"llm"`
	Device         DeviceConfig         `mapstructure:"device"`
	Tracking       TrackingConfig       `mapstructure:"tracking"`
	Delays         DelayConfig          `mapstructure:"delays"`
}

// UserProfileConfig holds the applicant details typed into application forms.
type UserProfileConfig struct {
	Name       string `mapstructure:"name"`
	Email      string `mapstructure:"email"`
	Phone      string `mapstructure:"phone"`
	ResumePath string `mapstructure:"resume_path"`
}

// JobPreferencesConfig drives the profile matcher.
type JobPreferencesConfig struct {
	JobTitles        []string        `mapstructure:"job_titles"`
	Keywords         []string        `mapstructure:"keywords"`
	Locations        []string        `mapstructure:"locations"`
	ExcludedKeywords []string        `mapstructure:"excluded_keywords"`
	ExperienceRange  ExperienceRange `mapstructure:"experience_range"`
}

// ExperienceRange is the acceptable band of required experience, in years.
type ExperienceRange struct {
	MinYears int `mapstructure:"min_years"`
	MaxYears int `mapstructure:"max_years"`
}

// EmailConfig controls the Gmail follow-up checker.
type EmailConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	LookbackDays int  `mapstructure:"lookback_days"`
}

// LLMConfig selects the model backing the device agent.
// The API key is never read from config.json; it comes from the
// environment only (GOOGLE_API_KEY / GEMINI_API_KEY / OPENAI_API_KEY).
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"-"`
}

// DeviceConfig targets the Android device under automation.
type DeviceConfig struct {
	Serial      string `mapstructure:"serial"`
	MaxSteps    int    `mapstructure:"max_steps"`
	StepDelayMs int    `mapstructure:"step_delay_ms"`
}

// TrackingConfig locates the application spreadsheet and the history DB.
type TrackingConfig struct {
	ExcelFilePath string `mapstructure:"excel_file_path"`
	DatabasePath  string `mapstructure:"database_path"`
}

// DelayConfig paces the session so activity stays human-speed.
type DelayConfig struct {
	BetweenPlatformsSec       int `mapstructure:"between_platforms_sec"`
	BetweenApplicationsMinSec int `mapstructure:"between_applications_min_sec"`
	BetweenApplicationsMaxSec int `mapstructure:"between_applications_max_sec"`
	LoopIntervalMin           int `mapstructure:"loop_interval_min"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// InitConfig loads config.json from path, applies .env/environment
// overrides and validates the result.
func InitConfig(path string) (*GlobalConfig, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	viper.SetConfigFile(path)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg GlobalConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *GlobalConfig) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	if c.LLM.Model == "" {
		if c.LLM.Provider == ProviderOpenAI {
			c.LLM.Model = "gpt-4o-mini"
		} else {
			c.LLM.Model = "gemini-2.5-flash"
		}
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.2
	}
	if c.Device.MaxSteps == 0 {
		c.Device.MaxSteps = 30
	}
	if c.Device.StepDelayMs == 0 {
		c.Device.StepDelayMs = 800
	}
	if c.Tracking.ExcelFilePath == "" {
		c.Tracking.ExcelFilePath = "job_applications.xlsx"
	}
	if c.Tracking.DatabasePath == "" {
		c.Tracking.DatabasePath = "jobdroid.db"
	}
	if c.Delays.BetweenPlatformsSec == 0 {
		c.Delays.BetweenPlatformsSec = 30
	}
	if c.Delays.BetweenApplicationsMinSec == 0 {
		c.Delays.BetweenApplicationsMinSec = 5
	}
	if c.Delays.BetweenApplicationsMaxSec == 0 {
		c.Delays.BetweenApplicationsMaxSec = 15
	}
	if c.Delays.LoopIntervalMin == 0 {
		c.Delays.LoopIntervalMin = 360
	}
	if c.Email.LookbackDays == 0 {
		c.Email.LookbackDays = 7
	}
	if c.JobPreferences.ExperienceRange.MaxYears == 0 {
		c.JobPreferences.ExperienceRange.MaxYears = 1
	}
	for _, p := range c.Platforms.all() {
		if p.MaxApplicationsPerSession == 0 {
			p.MaxApplicationsPerSession = 10
		}
	}
	if c.Platforms.WhatsApp.MaxMessagesPerGroup == 0 {
		c.Platforms.WhatsApp.MaxMessagesPerGroup = 30
	}
	if len(c.Platforms.WhatsApp.Keywords) == 0 {
		c.Platforms.WhatsApp.Keywords = []string{"hiring", "job", "opening", "vacancy", "internship"}
	}
}

func (c *GlobalConfig) overrideWithEnv() {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	default:
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			c.LLM.APIKey = key
		} else {
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	// adb's own convention for picking a device.
	if serial := os.Getenv("ANDROID_SERIAL"); serial != "" && c.Device.Serial == "" {
		c.Device.Serial = serial
	}
}

// Validate rejects configurations the session cannot run with.
func (c *GlobalConfig) Validate() error {
	if c.LLM.Provider != ProviderGemini && c.LLM.Provider != ProviderOpenAI {
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		envHint := "GOOGLE_API_KEY"
		if c.LLM.Provider == ProviderOpenAI {
			envHint = "OPENAI_API_KEY"
		}
		return fmt.Errorf("no API key: set %s in the environment or .env", envHint)
	}
	if c.Device.MaxSteps <= 0 {
		return fmt.Errorf("device.max_steps must be positive, got %d", c.Device.MaxSteps)
	}
	r := c.JobPreferences.ExperienceRange
	if r.MinYears < 0 || r.MaxYears < r.MinYears {
		return fmt.Errorf("job_preferences.experience_range %d-%d is inverted", r.MinYears, r.MaxYears)
	}
	if c.Delays.BetweenApplicationsMaxSec < c.Delays.BetweenApplicationsMinSec {
		return fmt.Errorf("delays.between_applications max %ds below min %ds",
			c.Delays.BetweenApplicationsMaxSec, c.Delays.BetweenApplicationsMinSec)
	}
	anyWork := c.Email.Enabled || c.Platforms.WhatsApp.Enabled
	for name, p := range c.Platforms.Appliers() {
		if !p.Enabled {
			continue
		}
		anyWork = true
		if p.SearchKeywords == "" {
			return fmt.Errorf("platforms.%s is enabled but has no search_keywords", name)
		}
	}
	if !anyWork {
		return fmt.Errorf("nothing to do: no platform enabled and email checking disabled")
	}
	return nil
}
