package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mattn/go-shellwords"
	"github.com/moby/sys/atomicwriter"
	"gopkg.in/yaml.v3"

	"github.com/madhurthareja/vibe/pkg/pipeline"
	"github.com/madhurthareja/vibe/pkg/telemetry"
)

const (
	// DefaultFile is the config file looked up in the working directory.
	DefaultFile = "vibe-setup.yaml"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "VIBE_SETUP_CONFIG"
)

// Answer keys, shared with the steps that ask the questions.
const (
	AnswerEnvironment = "environment"
	AnswerSetupType   = "setup_type"
	AnswerMongoURI    = "mongo_uri"
)

// Config is the vibe-setup configuration.
type Config struct {
	// StateFile is the JSON document recording completed steps.
	StateFile string `yaml:"state_file" validate:"required"`

	// BackendDir is the project directory the backend steps run in.
	BackendDir string `yaml:"backend_dir" validate:"required"`

	// NonInteractive disables terminal prompts. Unanswered questions fail.
	NonInteractive bool `yaml:"non_interactive"`

	Commands  Commands         `yaml:"commands"`
	Answers   Answers          `yaml:"answers"`
	History   HistoryConfig    `yaml:"history"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Commands are the external command lines the steps run. Each is split with
// shell quoting rules; no shell is invoked.
type Commands struct {
	Node          string `yaml:"node" validate:"required,cmdline"`
	NPM           string `yaml:"npm" validate:"required,cmdline"`
	PNPM          string `yaml:"pnpm" validate:"required,cmdline"`
	Firebase      string `yaml:"firebase" validate:"required,cmdline"`
	InstallPNPM   string `yaml:"install_pnpm" validate:"required,cmdline"`
	LoginList     string `yaml:"login_list" validate:"required,cmdline"`
	Login         string `yaml:"login" validate:"required,cmdline"`
	InitEmulators string `yaml:"init_emulators" validate:"required,cmdline"`
	Install       string `yaml:"install" validate:"required,cmdline"`
	Test          string `yaml:"test" validate:"required,cmdline"`
	Dev           string `yaml:"dev" validate:"required,cmdline"`
}

// Answers pre-answer the setup questions so a run can proceed unattended.
type Answers struct {
	Environment string `yaml:"environment,omitempty" validate:"omitempty,oneof=Development Production"`
	SetupType   string `yaml:"setup_type,omitempty" validate:"omitempty,oneof=Backend Frontend Both"`
	MongoURI    string `yaml:"mongo_uri,omitempty" validate:"omitempty,mongouri"`
}

// Map returns the non-empty answers keyed by question.
func (a Answers) Map() map[string]string {
	out := make(map[string]string, 3)
	if a.Environment != "" {
		out[AnswerEnvironment] = a.Environment
	}
	if a.SetupType != "" {
		out[AnswerSetupType] = a.SetupType
	}
	if a.MongoURI != "" {
		out[AnswerMongoURI] = a.MongoURI
	}
	return out
}

// HistoryConfig configures the run journal.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		StateFile:  pipeline.DefaultStateFile,
		BackendDir: "backend",
		Commands: Commands{
			Node:          "node",
			NPM:           "npm",
			PNPM:          "pnpm",
			Firebase:      "firebase",
			InstallPNPM:   "npm install -g pnpm",
			LoginList:     "firebase login:list",
			Login:         "firebase login",
			InitEmulators: "firebase init emulators",
			Install:       "pnpm install",
			Test:          "pnpm run test:ci",
			Dev:           "pnpm run dev",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".vibe_setup_history.db",
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// DefaultPath returns the config path from VIBE_SETUP_CONFIG, or
// vibe-setup.yaml in the working directory.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultFile
}

// Load reads the config at path, or DefaultPath when path is empty. A
// missing or empty file yields the defaults. Environment overrides are
// applied and the result validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected so typos do not
// silently fall back to defaults.
func decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config.
func (c *Config) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.StateFile, "VIBE_STATE_FILE")
	setString(&c.BackendDir, "VIBE_BACKEND_DIR")
	setString(&c.History.Path, "VIBE_HISTORY_PATH")
	setString(&c.Answers.Environment, "VIBE_ENVIRONMENT")
	setString(&c.Answers.SetupType, "VIBE_SETUP_TYPE")
	setString(&c.Answers.MongoURI, "VIBE_MONGO_URI")
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.Telemetry.Logging.Level = strings.ToLower(v)
	}

	if envTruthy("NO_INTERACTION") || envTruthy("CI") {
		c.NonInteractive = true
	}
}

// Validate checks the config with its struct tags and the telemetry rules.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return formatValidation(err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// EnvFile returns the path of the backend .env file.
func (c *Config) EnvFile() string {
	return filepath.Join(c.BackendDir, ".env")
}

// Redacted returns a copy with the MongoDB password masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if u, err := url.Parse(c.Answers.MongoURI); err == nil && u.User != nil {
		out.Answers.MongoURI = u.Redacted()
	}
	return &out
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the config to path atomically.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := atomicwriter.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("mongouri", func(fl validator.FieldLevel) bool {
		return ValidMongoURI(fl.Field().String())
	})
	_ = v.RegisterValidation("cmdline", func(fl validator.FieldLevel) bool {
		words, err := shellwords.Parse(fl.Field().String())
		return err == nil && len(words) > 0
	})
	return v
}

// ValidMongoURI reports whether s looks like a MongoDB connection string.
func ValidMongoURI(s string) bool {
	s = strings.TrimSpace(s)
	for _, scheme := range []string{"mongodb://", "mongodb+srv://"} {
		if strings.HasPrefix(s, scheme) && len(s) > len(scheme) {
			return !strings.ContainsAny(s, " \t\n\"")
		}
	}
	return false
}

func formatValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required", "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		case "mongouri":
			msgs = append(msgs, fmt.Sprintf("%s must start with mongodb:// or mongodb+srv://", field))
		case "cmdline":
			msgs = append(msgs, fmt.Sprintf("%s is not a valid command line: %q", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func envTruthy(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
