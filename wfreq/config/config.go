package config

import (
	"errors"
	"fmt"
	"strings"

	internal "github.com/ZanzyTHEbar/wordfreq/wfreq"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file, environment variables or flags.
type Config struct {
	Counter CounterConfig `mapstructure:"counter"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
}

// CounterConfig stores the word counting run parameters.
type CounterConfig struct {
	Root       string   `mapstructure:"root"`
	Threads    int      `mapstructure:"threads"`
	TopM       int      `mapstructure:"top"`
	MinWordLen int      `mapstructure:"minLen"`
	Shards     int      `mapstructure:"shards"`
	MaxDepth   int      `mapstructure:"maxDepth"`
	IgnoreFile string   `mapstructure:"ignoreFile"`
	Ignore     []string `mapstructure:"ignore"`
	Prefix     string   `mapstructure:"prefix"`
	DocFreq    bool     `mapstructure:"docFreq"`
	Progress   bool     `mapstructure:"progress"`
}

// StoreConfig stores the result archive location. Empty disables archiving.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig stores logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// flagKeys maps command line flag names onto config keys
var flagKeys = map[string]string{
	"threads":  "counter.threads",
	"top":      "counter.top",
	"minlen":   "counter.minLen",
	"shards":   "counter.shards",
	"maxdepth": "counter.maxDepth",
	"ignore":   "counter.ignore",
	"prefix":   "counter.prefix",
	"docfreq":  "counter.docFreq",
	"progress": "counter.progress",
	"store":    "store.path",
	"log":      "log.level",
}

// RegisterFlags adds the counter flags to fs. Bind them with LoadConfig.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("threads", internal.DefaultThreads, "number of worker threads")
	fs.Int("top", internal.DefaultTopM, "number of most frequent words to print")
	fs.Int("minlen", internal.DefaultMinWordLen, "minimum word length")
	fs.Int("shards", internal.DefaultShardCount, "number of counter table shards")
	fs.Int("maxdepth", internal.DefaultMaxDepth, "maximum traversal depth (-1 = unlimited)")
	fs.StringSlice("ignore", nil, "gitignore-style patterns to skip")
	fs.String("prefix", "", "rank only words starting with this prefix")
	fs.Bool("docfreq", false, "also report how many files contain each ranked word")
	fs.Bool("progress", false, "show a progress spinner on stderr")
	fs.String("store", "", "archive the ranked result into this bbolt file")
	fs.String("log", internal.DefaultLogLevel, "log level (debug, info, warn, error)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("counter.root", ".")
	v.SetDefault("counter.threads", internal.DefaultThreads)
	v.SetDefault("counter.top", internal.DefaultTopM)
	v.SetDefault("counter.minLen", internal.DefaultMinWordLen)
	v.SetDefault("counter.shards", internal.DefaultShardCount)
	v.SetDefault("counter.maxDepth", internal.DefaultMaxDepth)
	v.SetDefault("counter.ignoreFile", internal.DefaultIgnoreFile)
	v.SetDefault("counter.ignore", []string{})
	v.SetDefault("counter.prefix", "")
	v.SetDefault("counter.docFreq", false)
	v.SetDefault("counter.progress", false)
	v.SetDefault("store.path", "")
	v.SetDefault("log.level", internal.DefaultLogLevel)
}

// LoadConfig reads configuration from file, environment variables and flags.
// flags may be nil; only flags registered by RegisterFlags are bound.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()
	// counter.minLen becomes WORDFREQ_COUNTER_MINLEN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations that must not reach a run. Every returned
// error wraps common.ErrInvalidConfig. A nil fs means the host filesystem.
func (c *CounterConfig) Validate(fs afero.Fs) error {
	vu := common.NewValidationUtils(fs)

	checks := []struct {
		value int
		name  string
	}{
		{c.Threads, "threads"},
		{c.TopM, "top"},
		{c.MinWordLen, "minlen"},
		{c.Shards, "shards"},
	}
	for _, check := range checks {
		if err := vu.ValidateAtLeast(check.value, 1, check.name); err != nil {
			return err
		}
	}
	if c.MaxDepth < -1 {
		return fmt.Errorf("%w: maxdepth must be >= -1, got %d", common.ErrInvalidConfig, c.MaxDepth)
	}

	if err := vu.ValidateDirectoryExists(c.Root); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}
