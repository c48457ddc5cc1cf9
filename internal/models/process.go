package models

// Status is the lifecycle state reported by the supervisor for a process.
type Status string

const (
	StatusOnline    Status = "online"
	StatusStopped   Status = "stopped"
	StatusErrored   Status = "errored"
	StatusLaunching Status = "launching"
	StatusUnknown   Status = "unknown"
)

// StreamKind selects one of the two log files the supervisor keeps per process.
type StreamKind string

const (
	StreamStdout StreamKind = "out"
	StreamStderr StreamKind = "err"
)

// ProcessDescriptor is a point-in-time view of one supervisor-managed process.
// Nil pointers mean the supervisor did not report the value.
type ProcessDescriptor struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Pid           *int    `json:"pid"`
	Status        Status  `json:"status"`
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryBytes   int64   `json:"memoryBytes"`
	RestartCount  int     `json:"restartCount"`
	StdoutLogPath *string `json:"stdoutLogPath"`
	StderrLogPath *string `json:"stderrLogPath"`

	// Raw is the supervisor's record the descriptor was decoded from
	Raw map[string]any `json:"-"`
}

// LogPath returns the path for the given stream and whether one is set.
func (p ProcessDescriptor) LogPath(kind StreamKind) (string, bool) {
	var path *string
	switch kind {
	case StreamStdout:
		path = p.StdoutLogPath
	case StreamStderr:
		path = p.StderrLogPath
	}
	if path == nil || *path == "" {
		return "", false
	}
	return *path, true
}

// ParseStreamKind accepts the short and long names of a log stream.
// An empty string selects stderr.
func ParseStreamKind(s string) (StreamKind, bool) {
	switch s {
	case "", "err", "stderr":
		return StreamStderr, true
	case "out", "stdout":
		return StreamStdout, true
	}
	return "", false
}
