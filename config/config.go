// Package config loads the recognized option set from §6 via viper (YAML or
// JSON file, BURST_-prefixed environment overrides) into an immutable
// snapshot, and watches the config file and plot directories for changes
// (§10.4, supplementing the original miner's rescan()).
package config

import (
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

// Output mirrors the original miner's MinerConfig::Output verbosity struct
// field-for-field (§12).
type Output struct {
	Progress           bool `mapstructure:"progress"`
	Debug              bool `mapstructure:"debug"`
	NonceFound         bool `mapstructure:"nonceFound"`
	NonceFoundPlot     bool `mapstructure:"nonceFoundPlot"`
	NonceConfirmedPlot bool `mapstructure:"nonceConfirmedPlot"`
	PlotDone           bool `mapstructure:"plotDone"`
	DirDone            bool `mapstructure:"dirDone"`
	LastWinner         bool `mapstructure:"lastWinner"`
}

// Config is the immutable snapshot of §6's recognized options plus the
// defaults this repo applies when a field is absent. Construct only via
// Load; there is no mutable global.
type Config struct {
	PoolURL        string   `mapstructure:"poolUrl"`
	MiningInfoURL  string   `mapstructure:"miningInfoUrl"`
	WalletURL      string   `mapstructure:"walletUrl"`
	Plots          []string `mapstructure:"plots"`
	MaxBufferSizeMB int64   `mapstructure:"maxBufferSizeMB"`

	SubmissionMaxRetry int `mapstructure:"submissionMaxRetry"`
	SendMaxRetry       int `mapstructure:"sendMaxRetry"`
	ReceiveMaxRetry    int `mapstructure:"receiveMaxRetry"`

	TimeoutSeconds        int `mapstructure:"timeout"`
	SendTimeoutSeconds    int `mapstructure:"sendTimeout"`
	ReceiveTimeoutSeconds int `mapstructure:"receiveTimeout"`

	MaxSubmitThreads int `mapstructure:"maxSubmitThreads"`

	Output Output `mapstructure:"output"`
}

// Timeout, SendTimeout and ReceiveTimeout convert the recognized integer
// seconds fields to time.Duration for callers building an http.Client.
func (c *Config) Timeout() time.Duration        { return time.Duration(c.TimeoutSeconds) * time.Second }
func (c *Config) SendTimeout() time.Duration     { return time.Duration(c.SendTimeoutSeconds) * time.Second }
func (c *Config) ReceiveTimeout() time.Duration  { return time.Duration(c.ReceiveTimeoutSeconds) * time.Second }

// defaultMaxBufferSizeFraction is the share of detected system RAM used as
// the arbiter cap when a config file omits maxBufferSizeMB entirely; 128 MiB
// (the spec's hardcoded default) is only used when system memory cannot be
// read at all.
const defaultMaxBufferSizeFraction = 0.05

// setDefaults seeds every recognized option's default except
// maxBufferSizeMB: viper's IsSet/find walks
// override->flag->env->config->kv->defaults and reports true as soon as any
// tier has a value, so a SetDefault'd value would make IsSet("maxBufferSizeMB")
// true unconditionally and the RAM-relative branch in Load would never run.
// maxBufferSizeMB's absence is instead detected before any default exists for
// it and resolved by Load itself.
func setDefaults(v *viper.Viper) {
	v.SetDefault("submissionMaxRetry", 3)
	v.SetDefault("sendMaxRetry", 3)
	v.SetDefault("receiveMaxRetry", 3)
	v.SetDefault("timeout", 30)
	v.SetDefault("sendTimeout", 3)
	v.SetDefault("receiveTimeout", 3)
	v.SetDefault("maxSubmitThreads", 0)
}

// Load reads path (YAML or JSON, by extension) through viper, applies
// BURST_-prefixed environment overrides, and returns an immutable Config.
// If the file omits maxBufferSizeMB, the default is sized against detected
// system RAM (§11 domain stack: shirou/gopsutil) rather than the flat 128 MiB
// fallback, which is used only if RAM detection itself fails.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BURST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, xerrors.Errorf("config: reading %s: %w", path, err)
	}

	maxBufferSizeSet := v.IsSet("maxBufferSizeMB")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, xerrors.Errorf("config: decoding %s: %w", path, err)
	}

	if !maxBufferSizeSet {
		if vm, err := mem.VirtualMemory(); err == nil {
			cfg.MaxBufferSizeMB = int64(float64(vm.Total) * defaultMaxBufferSizeFraction / (1 << 20))
		}
	}
	if cfg.MaxBufferSizeMB <= 0 {
		cfg.MaxBufferSizeMB = 128
	}

	return cfg, nil
}
