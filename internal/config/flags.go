package config

import (
	"time"

	flag "github.com/spf13/pflag"
)

const (
	ConfigPathKey                = "config"
	ServerAddressKey             = "server.address"
	ServerAPIPrefixKey           = "server.api_prefix"
	ServerRequestTimeoutKey      = "server.request_timeout"
	LogLevelKey                  = "log.level"
	LogPathKey                   = "log.path"
	LogMaxSizeKey                = "log.max_size_mb"
	LogMaxBackupsKey             = "log.max_backups"
	LogMaxAgeKey                 = "log.max_age_days"
	SupervisorTransportKey       = "supervisor.transport"
	SupervisorBinaryKey          = "supervisor.binary"
	SupervisorHomeKey            = "supervisor.home"
	SupervisorSocketKey          = "supervisor.socket"
	SupervisorDialTimeoutKey     = "supervisor.dial_timeout"
	SupervisorReadyMaxElapsedKey = "supervisor.ready_max_elapsed"
	LogsDefaultLinesKey          = "logs.default_lines"
	LogsLockTimeoutKey           = "logs.lock_timeout"
	TelemetryCPUSampleKey        = "telemetry.cpu_sample"
)

const (
	DefConfigPath                = "procdeck.yaml"
	DefServerAddress             = ":5051"
	DefRequestTimeout            = 15 * time.Second
	DefLogLevel                  = "info"
	DefLogMaxSizeMB              = 50
	DefLogMaxBackups             = 5
	DefLogMaxAgeDays             = 28
	DefSupervisorTransport       = "cli"
	DefSupervisorBinary          = "pm2"
	DefSupervisorDialTimeout     = 5 * time.Second
	DefSupervisorReadyMaxElapsed = 10 * time.Second
	DefLogsDefaultLines          = 100
	DefLogsLockTimeout           = 2 * time.Second
	DefTelemetryCPUSample        = 200 * time.Millisecond
)

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"config":                       ConfigPathKey,
	"server-address":               ServerAddressKey,
	"api-prefix":                   ServerAPIPrefixKey,
	"request-timeout":              ServerRequestTimeoutKey,
	"log-level":                    LogLevelKey,
	"log-path":                     LogPathKey,
	"supervisor-transport":         SupervisorTransportKey,
	"supervisor-binary":            SupervisorBinaryKey,
	"supervisor-home":              SupervisorHomeKey,
	"supervisor-socket":            SupervisorSocketKey,
	"supervisor-dial-timeout":      SupervisorDialTimeoutKey,
	"supervisor-ready-max-elapsed": SupervisorReadyMaxElapsedKey,
	"logs-default-lines":           LogsDefaultLinesKey,
	"logs-lock-timeout":            LogsLockTimeoutKey,
	"telemetry-cpu-sample":         TelemetryCPUSampleKey,
}

// RegisterFlags adds every configuration flag to fs.
func RegisterFlags(fs *flag.FlagSet) {
	fs.String("config", DefConfigPath,
		"Path to the YAML configuration file. A missing default file is ignored.")

	fs.String("server-address", DefServerAddress,
		"Address the HTTP server listens on.")
	fs.String("api-prefix", "",
		"Path prefix mounted in front of every API route, e.g. /serverApp/api.")
	fs.Duration("request-timeout", DefRequestTimeout,
		"Upper bound for a single API request, including supervisor round trips.")

	fs.String("log-level", DefLogLevel,
		"The desired verbosity level for logging messages. "+
			"Available options, in order of severity from highest to lowest, are: error, warn, info and debug.")
	fs.String("log-path", "",
		"File or directory to write logs to, rotated by size. Logs go to stderr when empty.")

	fs.String("supervisor-transport", DefSupervisorTransport,
		"How to reach the process supervisor: cli (drive the pm2 binary) or socket (JSON bridge).")
	fs.String("supervisor-binary", DefSupervisorBinary,
		"pm2 executable used by the cli transport.")
	fs.String("supervisor-home", "",
		"PM2_HOME passed to the pm2 client. Inherited from the environment when empty.")
	fs.String("supervisor-socket", "",
		"Unix socket of the supervisor bridge used by the socket transport.")
	fs.Duration("supervisor-dial-timeout", DefSupervisorDialTimeout,
		"Upper bound for opening a control channel session.")
	fs.Duration("supervisor-ready-max-elapsed", DefSupervisorReadyMaxElapsed,
		"How long to wait for the supervisor at start-up before serving anyway.")

	fs.Int("logs-default-lines", DefLogsDefaultLines,
		"Number of lines returned by a log tail read when the caller does not ask for a count.")
	fs.Duration("logs-lock-timeout", DefLogsLockTimeout,
		"Upper bound for acquiring the advisory lock on a log file.")

	fs.Duration("telemetry-cpu-sample", DefTelemetryCPUSample,
		"Window over which host CPU load is sampled for /status.")
}
