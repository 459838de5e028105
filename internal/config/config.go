// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package config

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/siemens-healthineers/rocoknight/internal/host"
	"github.com/siemens-healthineers/rocoknight/internal/logging"
	bos "github.com/siemens-healthineers/rocoknight/internal/os"
	"github.com/siemens-healthineers/rocoknight/internal/primitives/units"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Projector ProjectorConfig `mapstructure:"projector"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Window    WindowConfig    `mapstructure:"window"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Api       ApiConfig       `mapstructure:"api"`
	Speed     SpeedConfig     `mapstructure:"speed"`
	Packet    PacketConfig    `mapstructure:"packet"`
	Log       LogConfig       `mapstructure:"log"`
}

type ProjectorConfig struct {
	Path              string        `mapstructure:"path"`
	FindWindowTimeout time.Duration `mapstructure:"findWindowTimeout"`
	SearchDirs        []string      `mapstructure:"searchDirs"`
}

type CaptureConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	PollInterval     time.Duration `mapstructure:"pollInterval"`
	PathNeedle       string        `mapstructure:"pathNeedle"`
	AssetBaseURL     string        `mapstructure:"assetBaseURL"`
	MaxResponseBytes int           `mapstructure:"maxResponseBytes"`
	DumpResponses    bool          `mapstructure:"dumpResponses"`
}

type WindowConfig struct {
	Title        string          `mapstructure:"title"`
	ToolbarInset int32           `mapstructure:"toolbarInset"`
	ScreenShare  float64         `mapstructure:"screenShare"`
	RefitDelays  []time.Duration `mapstructure:"refitDelays"`
}

type ProxyConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	ListenAddress string   `mapstructure:"listenAddress"`
	AllowedCIDRs  []string `mapstructure:"allowedCIDRs"`
	CaCertFile    string   `mapstructure:"caCertFile"`
	CaKeyFile     string   `mapstructure:"caKeyFile"`
	Verbose       bool     `mapstructure:"verbose"`
}

type ApiConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

type SpeedConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	DllDir     string  `mapstructure:"dllDir"`
	Multiplier float64 `mapstructure:"multiplier"`
}

type PacketConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Verbosity string `mapstructure:"verbosity"`
	Dir       string `mapstructure:"dir"`
	MaxSize   string `mapstructure:"maxSize"`
	TrimSize  string `mapstructure:"trimSize"`

	MaxSizeBytes  units.BytesQuantity `mapstructure:"-"`
	TrimSizeBytes units.BytesQuantity `mapstructure:"-"`
}

type fileReader interface {
	readFile(path string) ([]byte, error)
}

type userConfigValidator interface {
	validate(content []byte) error
}

type embeddedFileReader struct{}

type osFileReader struct{}

type configAccess struct {
	config             *viper.Viper
	embeddedFileReader fileReader
	osFileReader       fileReader
	validator          userConfigValidator
	getenv             func(string) string
}

const (
	envPrefix          = "ROCOKNIGHT"
	dumpLoginEnvVar    = "ROCO_DEBUG_DUMP_LOGIN3"
	defaultConfigPath  = "embed/default.config.yaml"
	userConfigFileName = "config.yaml"
)

var (
	//go:embed embed/*
	embeddedFiles embed.FS

	// flag name -> config key
	flagBindings = map[string]string{
		"verbosity":     "log.verbosity",
		"projector":     "projector.path",
		"api-address":   "api.listenAddress",
		"proxy-address": "proxy.listenAddress",
		"no-proxy":      "proxy.enabled",
		"speed":         "speed.multiplier",
		"dump-login":    "capture.dumpResponses",
	}
)

// Load layers the embedded defaults, the user config file, ROCOKNIGHT_* env vars and the changed CLI flags.
// The user config file is either given explicitly or '%LOCALAPPDATA%\RocoKnight\config.yaml' if present.
func Load(userConfigPath string, flags *pflag.FlagSet) (*Config, error) {
	return newConfigAccess().load(userConfigPath, flags)
}

func newConfigAccess() *configAccess {
	return &configAccess{
		config:             viper.New(),
		embeddedFileReader: &embeddedFileReader{},
		osFileReader:       &osFileReader{},
		validator:          &schemaValidator{},
		getenv:             os.Getenv,
	}
}

func (c *configAccess) load(userConfigPath string, flags *pflag.FlagSet) (*Config, error) {
	if err := c.loadBaseConfig(); err != nil {
		return nil, fmt.Errorf("failed to load embedded config: %w", err)
	}

	if userConfigPath == "" {
		userConfigPath = defaultUserConfigPath()
	}
	if userConfigPath != "" {
		if err := c.loadUserConfig(userConfigPath); err != nil {
			return nil, fmt.Errorf("failed to load config file '%s': %w", userConfigPath, err)
		}
	}

	c.config.SetEnvPrefix(envPrefix)
	c.config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.config.AutomaticEnv()

	if flags != nil {
		if err := c.bindFlags(flags); err != nil {
			return nil, err
		}
	}

	var result Config
	if err := c.config.Unmarshal(&result); err != nil {
		return nil, fmt.Errorf("failed to convert config: %w", err)
	}

	c.applyOverrides(&result, flags)

	if err := result.complete(); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *configAccess) loadBaseConfig() error {
	slog.Debug("Loading embedded config file", "path", defaultConfigPath)

	content, err := c.embeddedFileReader.readFile(defaultConfigPath)
	if err != nil {
		return err
	}

	c.config.SetConfigType("yaml")

	return c.config.ReadConfig(bytes.NewReader(content))
}

func (c *configAccess) loadUserConfig(path string) error {
	slog.Debug("Loading user-provided config file", "path", path)

	content, err := c.osFileReader.readFile(path)
	if err != nil {
		return err
	}

	if err := c.validator.validate(content); err != nil {
		return err
	}

	slog.Debug("Merging user-provided config file")

	return c.config.MergeConfig(bytes.NewReader(content))
}

func (c *configAccess) bindFlags(flags *pflag.FlagSet) error {
	for flagName, key := range flagBindings {
		flag := flags.Lookup(flagName)
		if flag == nil || flagName == "no-proxy" {
			continue
		}
		if err := c.config.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag '%s': %w", flagName, err)
		}
	}
	return nil
}

// applyOverrides handles switches that do not map one-to-one onto a config value
func (c *configAccess) applyOverrides(config *Config, flags *pflag.FlagSet) {
	if flags != nil {
		if flag := flags.Lookup("no-proxy"); flag != nil && flag.Changed && flag.Value.String() == "true" {
			slog.Debug("Login observer disabled by CLI param")
			config.Proxy.Enabled = false
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.getenv(dumpLoginEnvVar))) {
	case "1", "true":
		slog.Debug("Login response dump enabled by env var", "var", dumpLoginEnvVar)
		config.Capture.DumpResponses = true
	}
}

func (config *Config) complete() error {
	var errs []error

	maxSize, maxErr := units.ParseBytes(config.Log.MaxSize)
	if maxErr != nil {
		errs = append(errs, fmt.Errorf("log.maxSize: %w", maxErr))
	}
	trimSize, trimErr := units.ParseBytes(config.Log.TrimSize)
	if trimErr != nil {
		errs = append(errs, fmt.Errorf("log.trimSize: %w", trimErr))
	}
	if maxErr == nil && trimErr == nil && trimSize > maxSize {
		errs = append(errs, fmt.Errorf("log.trimSize (%s) must not exceed log.maxSize (%s)", trimSize, maxSize))
	}
	config.Log.MaxSizeBytes = maxSize
	config.Log.TrimSizeBytes = trimSize

	if config.Speed.Multiplier <= 0 || config.Speed.Multiplier > 16 {
		errs = append(errs, fmt.Errorf("speed.multiplier must be in (0, 16], got %v", config.Speed.Multiplier))
	}
	if config.Capture.Timeout <= 0 {
		errs = append(errs, errors.New("capture.timeout must be positive"))
	}
	if config.Window.ToolbarInset < 0 {
		errs = append(errs, errors.New("window.toolbarInset must not be negative"))
	}

	return errors.Join(errs...)
}

// LogDir returns the configured log dir or the per-user default
func (config *Config) LogDir() string {
	if config.Log.Dir != "" {
		if resolved, err := host.ResolveTildePrefix(config.Log.Dir); err == nil {
			return resolved
		}
		return config.Log.Dir
	}
	return filepath.Dir(logging.GlobalLogFilePath())
}

// DumpDir returns the dir receiving raw login responses; empty when dumping is disabled
func (config *Config) DumpDir() string {
	if !config.Capture.DumpResponses {
		return ""
	}
	return config.LogDir()
}

func defaultUserConfigPath() string {
	dir, err := host.AppDataDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(dir, userConfigFileName)
	if !bos.PathExists(path) {
		return ""
	}
	return path
}

func (*embeddedFileReader) readFile(path string) ([]byte, error) {
	return embeddedFiles.ReadFile(path)
}

func (*osFileReader) readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
