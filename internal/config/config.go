// Package config loads the service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AuthModeDevelopment lets anonymous requests act as an admin dev user.
const AuthModeDevelopment = "development"

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	GinMode     string `mapstructure:"GIN_MODE"`
	EnableDB    bool   `mapstructure:"ENABLE_DB"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	DatasetsDir          string `mapstructure:"DATASETS_DIR"`
	ModelsDir            string `mapstructure:"MODELS_DIR"`
	ORTLibraryPath       string `mapstructure:"ORT_LIBRARY_PATH"`
	GeneralModel         string `mapstructure:"GENERAL_MODEL"`
	DiabetesModel        string `mapstructure:"DIABETES_MODEL"`
	HeartModel           string `mapstructure:"HEART_MODEL"`
	KidneyModel          string `mapstructure:"KIDNEY_MODEL"`
	ModelInputName       string `mapstructure:"MODEL_INPUT_NAME"`
	ModelOutputName      string `mapstructure:"MODEL_OUTPUT_NAME"`
	LegacyBinaryEncoding bool   `mapstructure:"LEGACY_BINARY_ENCODING"`

	AuthMode      string   `mapstructure:"AUTH_MODE"`
	JWTSigningKey string   `mapstructure:"JWT_SIGNING_KEY"`
	AuthIssuer    string   `mapstructure:"AUTH_ISSUER"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	MaxBodyBytes  int64    `mapstructure:"MAX_BODY_BYTES"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	MailServer        string `mapstructure:"MAIL_SERVER"`
	MailPort          int    `mapstructure:"MAIL_PORT"`
	MailUsername      string `mapstructure:"MAIL_USERNAME"`
	MailPassword      string `mapstructure:"MAIL_PASSWORD"`
	MailDefaultSender string `mapstructure:"MAIL_DEFAULT_SENDER"`
}

var defaults = map[string]any{
	"PORT":                   "8080",
	"ENV":                    "development",
	"GIN_MODE":               "release",
	"ENABLE_DB":              false,
	"DB_MAX_CONNS":           10,
	"DB_MIN_CONNS":           1,
	"DATASETS_DIR":           "./datasets",
	"MODELS_DIR":             "./models",
	"MODEL_INPUT_NAME":       "float_input",
	"MODEL_OUTPUT_NAME":      "output_label",
	"LEGACY_BINARY_ENCODING": false,
	"CORS_ORIGINS":           "*",
	"MAX_BODY_BYTES":         1 << 20,
	"LOG_LEVEL":              "info",
	"MAIL_PORT":              587,
}

var unset = []string{
	"DATABASE_URL", "ORT_LIBRARY_PATH", "GENERAL_MODEL", "DIABETES_MODEL",
	"HEART_MODEL", "KIDNEY_MODEL", "AUTH_MODE", "JWT_SIGNING_KEY", "AUTH_ISSUER",
	"LOG_FORMAT", "MAIL_SERVER", "MAIL_USERNAME", "MAIL_PASSWORD", "MAIL_DEFAULT_SENDER",
}

// Load reads .env when present and then the process environment, which
// wins over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
		v.BindEnv(k)
	}
	for _, k := range unset {
		v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// DevAuth reports whether anonymous requests get the dev identity.
func (c *Config) DevAuth() bool {
	return strings.EqualFold(c.AuthMode, AuthModeDevelopment)
}

// HasONNXModels reports whether any classifier is loaded from an ONNX file.
func (c *Config) HasONNXModels() bool {
	return c.GeneralModel != "" || c.DiabetesModel != "" || c.HeartModel != "" || c.KidneyModel != ""
}

// ModelPath resolves a configured model file against MODELS_DIR.
func (c *Config) ModelPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ModelsDir, name)
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	var errs []error
	if c.EnableDB && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required when ENABLE_DB=true"))
	}
	if !c.DevAuth() && c.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required unless AUTH_MODE=development"))
	}
	if c.HasONNXModels() && c.ORTLibraryPath == "" {
		errs = append(errs, errors.New("ORT_LIBRARY_PATH is required when an ONNX model is configured"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns))
	}
	return errors.Join(errs...)
}
