package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "PROCDECK"

type Config struct {
	Path       string
	Server     ServerConfig
	Log        LogConfig
	Supervisor SupervisorConfig
	Logs       LogsConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Address        string
	APIPrefix      string
	RequestTimeout time.Duration
}

type LogConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type SupervisorConfig struct {
	Transport       string
	Binary          string
	Home            string
	Socket          string
	DialTimeout     time.Duration
	ReadyMaxElapsed time.Duration
}

type LogsConfig struct {
	DefaultLines int
	LockTimeout  time.Duration
}

type TelemetryConfig struct {
	CPUSample time.Duration
}

// Load resolves the configuration from flags, environment and the YAML file,
// in that order of precedence, falling back to defaults. fs must have been
// populated by RegisterFlags and parsed.
func Load(flags *flag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// SERVER_ADDRESS is still honoured for existing deployments.
	if err := v.BindEnv(ServerAddressKey, EnvPrefix+"_SERVER_ADDRESS", "SERVER_ADDRESS"); err != nil {
		return nil, err
	}

	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	path := v.GetString(ConfigPathKey)
	if err := mergeFile(v, path); err != nil {
		explicit := flags.Changed("config") || path != DefConfigPath
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		slog.Debug("No configuration file, using flags and environment only", "path", path)
		path = ""
	}

	cfg := &Config{
		Path: path,
		Server: ServerConfig{
			Address:        v.GetString(ServerAddressKey),
			APIPrefix:      strings.TrimSuffix(v.GetString(ServerAPIPrefixKey), "/"),
			RequestTimeout: v.GetDuration(ServerRequestTimeoutKey),
		},
		Log: LogConfig{
			Level:      v.GetString(LogLevelKey),
			Path:       v.GetString(LogPathKey),
			MaxSizeMB:  v.GetInt(LogMaxSizeKey),
			MaxBackups: v.GetInt(LogMaxBackupsKey),
			MaxAgeDays: v.GetInt(LogMaxAgeKey),
		},
		Supervisor: SupervisorConfig{
			Transport:       v.GetString(SupervisorTransportKey),
			Binary:          v.GetString(SupervisorBinaryKey),
			Home:            v.GetString(SupervisorHomeKey),
			Socket:          v.GetString(SupervisorSocketKey),
			DialTimeout:     v.GetDuration(SupervisorDialTimeoutKey),
			ReadyMaxElapsed: v.GetDuration(SupervisorReadyMaxElapsedKey),
		},
		Logs: LogsConfig{
			DefaultLines: v.GetInt(LogsDefaultLinesKey),
			LockTimeout:  v.GetDuration(LogsLockTimeoutKey),
		},
		Telemetry: TelemetryConfig{
			CPUSample: v.GetDuration(TelemetryCPUSampleKey),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigPathKey, DefConfigPath)
	v.SetDefault(ServerAddressKey, DefServerAddress)
	v.SetDefault(ServerRequestTimeoutKey, DefRequestTimeout)
	v.SetDefault(LogLevelKey, DefLogLevel)
	v.SetDefault(LogMaxSizeKey, DefLogMaxSizeMB)
	v.SetDefault(LogMaxBackupsKey, DefLogMaxBackups)
	v.SetDefault(LogMaxAgeKey, DefLogMaxAgeDays)
	v.SetDefault(SupervisorTransportKey, DefSupervisorTransport)
	v.SetDefault(SupervisorBinaryKey, DefSupervisorBinary)
	v.SetDefault(SupervisorDialTimeoutKey, DefSupervisorDialTimeout)
	v.SetDefault(SupervisorReadyMaxElapsedKey, DefSupervisorReadyMaxElapsed)
	v.SetDefault(LogsDefaultLinesKey, DefLogsDefaultLines)
	v.SetDefault(LogsLockTimeoutKey, DefLogsLockTimeout)
	v.SetDefault(TelemetryCPUSampleKey, DefTelemetryCPUSample)
}

// Validate collects every problem so the user sees them all at once.
func (c *Config) Validate() error {
	var err error

	if c.Server.Address == "" {
		err = errors.Join(err, errors.New("server address must not be empty"))
	}
	if c.Server.APIPrefix != "" && !strings.HasPrefix(c.Server.APIPrefix, "/") {
		err = errors.Join(err, fmt.Errorf("api prefix %q must start with /", c.Server.APIPrefix))
	}
	if c.Server.RequestTimeout <= 0 {
		err = errors.Join(err, errors.New("request timeout must be positive"))
	}

	switch c.Supervisor.Transport {
	case "cli":
		if c.Supervisor.Binary == "" {
			err = errors.Join(err, errors.New("cli transport requires a pm2 binary"))
		}
	case "socket":
		if c.Supervisor.Socket == "" {
			err = errors.Join(err, errors.New("socket transport requires a socket path"))
		}
	default:
		err = errors.Join(err, fmt.Errorf("unknown supervisor transport %q", c.Supervisor.Transport))
	}

	if c.Logs.DefaultLines < 1 {
		err = errors.Join(err, fmt.Errorf("default log lines must be positive, got %d", c.Logs.DefaultLines))
	}
	if c.Logs.LockTimeout <= 0 {
		err = errors.Join(err, errors.New("log lock timeout must be positive"))
	}

	return err
}
