package kartrumble

import (
	"io/ioutil"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"justapengu.in/kartrumble/internal/race"
)

type Configuration struct {
	LogLevel      string `yaml:"log_level" env:"KARTRUMBLE_LOG_LEVEL"`
	NarrativeFile string `yaml:"narrative_file" env:"KARTRUMBLE_NARRATIVE_FILE"`

	Discord DiscordConfig `yaml:"discord"`
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Sentry  SentryConfig  `yaml:"sentry"`
	Pacing  PacingConfig  `yaml:"pacing"`
	Race    race.Tuning   `yaml:"race"`
}

type DiscordConfig struct {
	Token         string `yaml:"token" env:"DISCORD_TOKEN"`
	CommandPrefix string `yaml:"command_prefix" env:"KARTRUMBLE_COMMAND_PREFIX"`
}

type HTTPConfig struct {
	Enabled  bool   `yaml:"enabled" env:"KARTRUMBLE_HTTP_ENABLED"`
	Hostname string `yaml:"hostname" env:"KARTRUMBLE_HTTP_HOSTNAME"`
	// DebugBundle exposes /debug/bundle. It includes logs and race state, so leave it off on
	// public hosts.
	DebugBundle bool `yaml:"debug_bundle" env:"KARTRUMBLE_HTTP_DEBUG_BUNDLE"`
}

type StoreConfig struct {
	Path string `yaml:"path" env:"KARTRUMBLE_STORE_PATH"`
}

type SentryConfig struct {
	DSN string `yaml:"dsn" env:"KARTRUMBLE_SENTRY_DSN"`
}

// PacingConfig controls how long the bot waits between the messages of a race, so that
// spectators can follow along.
type PacingConfig struct {
	JoinWindow   time.Duration `yaml:"join_window"`
	Announcement time.Duration `yaml:"announcement"`
	LapStart     time.Duration `yaml:"lap_start"`
	Event        time.Duration `yaml:"event"`
	Battles      time.Duration `yaml:"battles"`
	DuelBeat     time.Duration `yaml:"duel_beat"`
	Summary      time.Duration `yaml:"summary"`

	// MaxSkillsShown caps the skill lines shown per lap, the rest are summarised.
	MaxSkillsShown int `yaml:"max_skills_shown"`
}

func DefaultPacing() PacingConfig {
	return PacingConfig{
		JoinWindow:     15 * time.Second,
		Announcement:   3 * time.Second,
		LapStart:       2 * time.Second,
		Event:          1500 * time.Millisecond,
		Battles:        2 * time.Second,
		DuelBeat:       2500 * time.Millisecond,
		Summary:        3 * time.Second,
		MaxSkillsShown: 5,
	}
}

func DefaultConfiguration() *Configuration {
	return &Configuration{
		LogLevel: "info",
		Discord: DiscordConfig{
			CommandPrefix: "!",
		},
		HTTP: HTTPConfig{
			Enabled:  true,
			Hostname: "0.0.0.0:8080",
		},
		Store: StoreConfig{
			Path: "kartrumble.db",
		},
		Pacing: DefaultPacing(),
		Race:   race.DefaultTuning(),
	}
}

// ReadConfig loads the YAML config at path over the defaults, then applies environment
// overrides.
func ReadConfig(path string) (*Configuration, error) {
	config := DefaultConfiguration()

	data, err := ioutil.ReadFile(path)

	if err != nil {
		return nil, errors.Wrapf(err, "could not read config file %s", path)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "could not parse config file %s", path)
	}

	if err := env.Parse(config); err != nil {
		return nil, errors.Wrap(err, "could not parse environment")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

var (
	ErrNoDiscordToken  = errors.New("kartrumble: discord token is required (set discord.token or DISCORD_TOKEN)")
	ErrInvalidPacing   = errors.New("kartrumble: pacing durations must not be negative")
	ErrNoStorePath     = errors.New("kartrumble: store path is required")
	ErrNoCommandPrefix = errors.New("kartrumble: command prefix is required")
)

func (c *Configuration) Validate() error {
	if c.Discord.Token == "" {
		return ErrNoDiscordToken
	}

	if c.Discord.CommandPrefix == "" {
		return ErrNoCommandPrefix
	}

	if c.Store.Path == "" {
		return ErrNoStorePath
	}

	for _, d := range []time.Duration{c.Pacing.JoinWindow, c.Pacing.Announcement, c.Pacing.LapStart, c.Pacing.Event, c.Pacing.Battles, c.Pacing.DuelBeat, c.Pacing.Summary} {
		if d < 0 {
			return ErrInvalidPacing
		}
	}

	return errors.Wrap(c.Race.Validate(), "invalid race tuning")
}
