package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModeProxy  = "proxy"
	ModeDirect = "direct"
)

type (
	Config struct {
		AppName  string
		Env      string
		Build    string
		Debug    bool
		TestMode bool

		RollbarToken string
		StaticDir    string

		Server    ServerConfig
		LearnUpon LearnUponConfig
		Proxy     ProxyConfig
		Dashboard DashboardConfig
	}

	ServerConfig struct {
		Address         string
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	LearnUponConfig struct {
		BaseURL  string        `json:"base_url" validate:"required,url"`
		Username string        `json:"username" validate:"required"`
		Password string        `json:"password" validate:"required"`
		Timeout  time.Duration `json:"timeout"`
	}

	// ProxyConfig decides how the dashboard reaches LearnUpon: through a gateway (no credentials
	// needed client-side) or straight against LearnUponConfig.BaseURL.
	ProxyConfig struct {
		Enabled bool   `json:"enabled"`
		URL     string `json:"url" validate:"omitempty,url"`
	}

	DashboardConfig struct {
		PageSize        int `json:"page_size" validate:"gte=1"`
		MaxGroupMembers int `json:"max_group_members" validate:"gte=1"`
	}
)

// NewConfig reads the configuration from the environment, after loading `config/.env.<env>` when it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "LearnUpon Transcripts")
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("rollbar.token", "")
	v.SetDefault("static.dir", "assets/static")
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debug_host", "localhost:4000")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("learnupon.base_url", "https://learn.nintex.com/api/v1")
	v.SetDefault("learnupon.username", "")
	v.SetDefault("learnupon.password", "")
	v.SetDefault("learnupon.timeout", 30*time.Second)
	v.SetDefault("proxy.enabled", true)
	v.SetDefault("proxy.url", "http://localhost:3000/api/learupon")
	v.SetDefault("dashboard.page_size", 10)
	v.SetDefault("dashboard.max_group_members", 10)

	env := strings.ToLower(os.Getenv("ENV")) // dev (local; default), test, qa, prod
	switch env {
	case "":
		env = "dev"
	case "test":
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+env)
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.address", "PORT")

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbar.token"),
		StaticDir:    v.GetString("static.dir"),
		Server: ServerConfig{
			Address:         listenAddress(v.GetString("server.address")),
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debug_host"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		LearnUpon: LearnUponConfig{
			BaseURL:  strings.TrimRight(v.GetString("learnupon.base_url"), "/"),
			Username: v.GetString("learnupon.username"),
			Password: v.GetString("learnupon.password"),
			Timeout:  v.GetDuration("learnupon.timeout"),
		},
		Proxy: ProxyConfig{
			Enabled: v.GetBool("proxy.enabled"),
			URL:     strings.TrimRight(v.GetString("proxy.url"), "/"),
		},
		Dashboard: DashboardConfig{
			PageSize:        v.GetInt("dashboard.page_size"),
			MaxGroupMembers: v.GetInt("dashboard.max_group_members"),
		},
	}
}

// Validate checks everything the gateway needs: it holds the upstream credentials.
func (c *Config) Validate(validate *validator.Validate) error {
	if err := validate.Struct(c.LearnUpon); err != nil {
		return err
	}
	if err := c.Proxy.Validate(validate); err != nil {
		return err
	}
	return validate.Struct(c.Dashboard)
}

func (p ProxyConfig) Validate(validate *validator.Validate) error {
	if p.Enabled && p.URL == "" {
		return NewValidationError(errProxyURLRequired, FieldError{Field: "proxy_url", Error: errProxyURLRequired.Error()})
	}
	return validate.Struct(p)
}

// Mode returns ModeProxy or ModeDirect.
func (c *Config) Mode() string {
	if c.Proxy.Enabled {
		return ModeProxy
	}
	return ModeDirect
}

// PORT=3000 is accepted as well as ":3000".
func listenAddress(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}
