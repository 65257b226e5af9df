package config

// PlatformsConfig enables and tunes each platform agent.
type PlatformsConfig struct {
	LinkedIn PlatformConfig `mapstructure:"linkedin"`
	Naukri   PlatformConfig `mapstructure:"naukri"`
	Indeed   PlatformConfig `mapstructure:"indeed"`
	Unstop   PlatformConfig `mapstructure:"unstop"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
}

// PlatformConfig is the per-job-board section of config.json.
type PlatformConfig struct {
	Enabled                   bool   `mapstructure:"enabled"`
	SearchKeywords            string `mapstructure:"search_keywords"`
	MaxApplicationsPerSession int    `mapstructure:"max_applications_per_session"`
}

// WhatsAppConfig tunes the group scanner. It collects leads from group
// chats instead of submitting applications.
type WhatsAppConfig struct {
	Enabled             bool     `mapstructure:"enabled"`
	Groups              []string `mapstructure:"groups"`
	Keywords            []string `mapstructure:"keywords"`
	MaxMessagesPerGroup int      `mapstructure:"max_messages_per_group"`
}

// Appliers returns the job-board sections keyed by their config name.
func (p *PlatformsConfig) Appliers() map[string]*PlatformConfig {
	return map[string]*PlatformConfig{
		"linkedin": &p.LinkedIn,
		"naukri":   &p.Naukri,
		"indeed":   &p.Indeed,
		"unstop":   &p.Unstop,
	}
}

func (p *PlatformsConfig) all() []*PlatformConfig {
	return []*PlatformConfig{&p.LinkedIn, &p.Naukri, &p.Indeed, &p.Unstop}
}
