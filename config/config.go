// doc-flow/config/config.go
package config

import (
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds everything read once at startup. Stage names and derived-field
// formulas are configuration data: the stable identity of a stage is the event
// key, the Hebrew display name is just what the current pipeline calls it.
type Settings struct {
	ListenAddr      string            `mapstructure:"listen_addr"`
	FrontendBaseURL string            `mapstructure:"frontend_base_url"`
	UploadsDir      string            `mapstructure:"uploads_dir"`
	JWTSecret       string            `mapstructure:"jwt_secret"`
	StageNames      map[string]string `mapstructure:"stage_names"`
	DerivedFields   map[string]string `mapstructure:"derived_fields"`
}

var (
	App    Settings
	JwtKey []byte
)

// Load reads settings from doc-flow.yaml (if present) and the environment.
// Environment variables win: LISTEN_ADDR, FRONTEND_BASE_URL, UPLOADS_DIR, JWT_SECRET.
func Load() error {
	v := viper.New()
	v.SetConfigName("doc-flow")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/doc-flow")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("uploads_dir", "./storage/uploads")
	v.SetDefault("jwt_secret", "dev-secret-change-me")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		slog.Info("No config file found, using defaults and environment")
	} else {
		slog.Info("Loaded config file", "file", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&App); err != nil {
		return err
	}
	JwtKey = []byte(App.JWTSecret)
	return nil
}
