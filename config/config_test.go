package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() GlobalConfig {
	cfg := GlobalConfig{}
	cfg.LLM.Provider = ProviderGemini
	cfg.LLM.APIKey = "test-key"
	cfg.Device.MaxSteps = 30
	cfg.JobPreferences.ExperienceRange = ExperienceRange{MinYears: 0, MaxYears: 1}
	cfg.Delays.BetweenApplicationsMinSec = 5
	cfg.Delays.BetweenApplicationsMaxSec = 15
	cfg.Platforms.LinkedIn = PlatformConfig{Enabled: true, SearchKeywords: "Software Developer Intern"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GlobalConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *GlobalConfig) {},
		},
		{
			name:    "unknown provider",
			mutate:  func(c *GlobalConfig) { c.LLM.Provider = "claude" },
			wantErr: "llm.provider",
		},
		{
			name:    "missing api key",
			mutate:  func(c *GlobalConfig) { c.LLM.APIKey = "" },
			wantErr: "GOOGLE_API_KEY",
		},
		{
			name: "missing openai key names its env var",
			mutate: func(c *GlobalConfig) {
				c.LLM.Provider = ProviderOpenAI
				c.LLM.APIKey = ""
			},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "zero max steps",
			mutate:  func(c *GlobalConfig) { c.Device.MaxSteps = 0 },
			wantErr: "max_steps",
		},
		{
			name: "inverted experience range",
			mutate: func(c *GlobalConfig) {
				c.JobPreferences.ExperienceRange = ExperienceRange{MinYears: 3, MaxYears: 1}
			},
			wantErr: "inverted",
		},
		{
			name: "inverted application delays",
			mutate: func(c *GlobalConfig) {
				c.Delays.BetweenApplicationsMinSec = 20
				c.Delays.BetweenApplicationsMaxSec = 10
			},
			wantErr: "between_applications",
		},
		{
			name: "enabled platform without keywords",
			mutate: func(c *GlobalConfig) {
				c.Platforms.Naukri = PlatformConfig{Enabled: true}
			},
			wantErr: "naukri",
		},
		{
			name: "nothing enabled",
			mutate: func(c *GlobalConfig) {
				c.Platforms.LinkedIn.Enabled = false
			},
			wantErr: "nothing to do",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestInitConfig(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANDROID_SERIAL", "")

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "user_profile": {"name": "Aditya Sharma", "email": "aditya@example.com", "phone": "+91 9876500000"},
  "job_preferences": {
    "job_titles": ["Software Developer Intern"],
    "keywords": ["python", "go"],
    "locations": ["Remote"],
    "excluded_keywords": ["senior"],
    "experience_range": {"min_years": 0, "max_years": 1}
  },
  "platforms": {
    "linkedin": {"enabled": true, "search_keywords": "Software Developer Intern", "max_applications_per_session": 5}
  },
  "email": {"enabled": true}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := InitConfig(path)
	if err != nil {
		t.Fatalf("InitConfig() error: %v", err)
	}

	if cfg.UserProfile.Name != "Aditya Sharma" {
		t.Errorf("UserProfile.Name = %q", cfg.UserProfile.Name)
	}
	if got := cfg.Platforms.LinkedIn.MaxApplicationsPerSession; got != 5 {
		t.Errorf("linkedin max_applications_per_session = %d, want 5", got)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Errorf("LLM.APIKey = %q, want env value", cfg.LLM.APIKey)
	}

	// Defaults for everything the file leaves out.
	if cfg.LLM.Provider != ProviderGemini || cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("LLM defaults = %q/%q", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", cfg.LLM.Temperature)
	}
	if cfg.Device.MaxSteps != 30 {
		t.Errorf("Device.MaxSteps = %d, want 30", cfg.Device.MaxSteps)
	}
	if cfg.Tracking.ExcelFilePath != "job_applications.xlsx" {
		t.Errorf("Tracking.ExcelFilePath = %q", cfg.Tracking.ExcelFilePath)
	}
	if cfg.Delays.BetweenPlatformsSec != 30 {
		t.Errorf("Delays.BetweenPlatformsSec = %d, want 30", cfg.Delays.BetweenPlatformsSec)
	}
	if cfg.Email.LookbackDays != 7 {
		t.Errorf("Email.LookbackDays = %d, want 7", cfg.Email.LookbackDays)
	}
	if got := cfg.Platforms.Naukri.MaxApplicationsPerSession; got != 10 {
		t.Errorf("naukri default max_applications_per_session = %d, want 10", got)
	}
}

func TestInitConfigMissingFile(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	if _, err := InitConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("InitConfig() on a missing file should fail")
	}
}

func TestOverrideWithEnv(t *testing.T) {
	t.Run("gemini falls back to GEMINI_API_KEY", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "fallback-key")
		cfg := validConfig()
		cfg.LLM.APIKey = ""
		cfg.overrideWithEnv()
		if cfg.LLM.APIKey != "fallback-key" {
			t.Errorf("APIKey = %q, want fallback-key", cfg.LLM.APIKey)
		}
	})

	t.Run("openai reads OPENAI_API_KEY", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "oa-key")
		cfg := validConfig()
		cfg.LLM.Provider = ProviderOpenAI
		cfg.LLM.APIKey = ""
		cfg.overrideWithEnv()
		if cfg.LLM.APIKey != "oa-key" {
			t.Errorf("APIKey = %q, want oa-key", cfg.LLM.APIKey)
		}
	})

	t.Run("ANDROID_SERIAL fills an empty serial only", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "k")
		t.Setenv("ANDROID_SERIAL", "emulator-5554")
		cfg := validConfig()
		cfg.overrideWithEnv()
		if cfg.Device.Serial != "emulator-5554" {
			t.Errorf("Serial = %q, want emulator-5554", cfg.Device.Serial)
		}
		cfg.Device.Serial = "RZ8M802WY0X"
		cfg.overrideWithEnv()
		if cfg.Device.Serial != "RZ8M802WY0X" {
			t.Errorf("Serial = %q, configured serial must win", cfg.Device.Serial)
		}
	})
}
