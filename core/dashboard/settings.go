package dashboard

import (
	"github.com/go-playground/validator/v10"

	"github.com/alrightylabs/lutranscript/core"
)

// Settings are edited at runtime and never persisted.
type Settings struct {
	Mode     string `json:"mode" validate:"required,mode"`
	ProxyURL string `json:"proxy_url" validate:"omitempty,url"`
}

func SettingsFromConfig(conf *core.Config) Settings {
	return Settings{Mode: conf.Mode(), ProxyURL: conf.Proxy.URL}
}

// Validate rejects unknown modes, and proxy mode without a proxy URL.
func (s Settings) Validate(validate *validator.Validate) error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if s.Mode == core.ModeProxy {
		return core.ProxyConfig{Enabled: true, URL: s.ProxyURL}.Validate(validate)
	}
	return nil
}

func (d *Dashboard) Settings() Settings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.settings
}

// UpdateSettings validates s and switches the LearnUpon source accordingly. Loaded data is kept.
func (d *Dashboard) UpdateSettings(s Settings) (Settings, error) {
	s.ProxyURL = core.CleanString(s.ProxyURL)
	if err := s.Validate(d.validate); err != nil {
		return Settings{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.useSettings(s)
	d.logger.Info("Settings saved", s)
	return s, nil
}
