package supervisor

import (
	"errors"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"procdeck/internal/models"
)

// pm2Process mirrors the parts of a PM2 process record we consume.
type pm2Process struct {
	PmID  *int   `mapstructure:"pm_id"`
	Name  string `mapstructure:"name"`
	Pid   int    `mapstructure:"pid"`
	Monit struct {
		Memory int64   `mapstructure:"memory"`
		CPU    float64 `mapstructure:"cpu"`
	} `mapstructure:"monit"`
	Env struct {
		Status      string `mapstructure:"status"`
		RestartTime int    `mapstructure:"restart_time"`
		OutLogPath  string `mapstructure:"pm_out_log_path"`
		ErrLogPath  string `mapstructure:"pm_err_log_path"`
	} `mapstructure:"pm2_env"`
}

var statuses = map[string]models.Status{
	"online":            models.StatusOnline,
	"stopped":           models.StatusStopped,
	"errored":           models.StatusErrored,
	"launching":         models.StatusLaunching,
	"stopping":          models.StatusLaunching,
	"one-launch-status": models.StatusLaunching,
	"waiting restart":   models.StatusLaunching,
}

// Decode validates a raw supervisor record and converts it to a descriptor.
func Decode(r Record) (models.ProcessDescriptor, error) {
	var raw pm2Process

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return models.ProcessDescriptor{}, opError("decode", "", ErrMalformedRecord, err)
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return models.ProcessDescriptor{}, opError("decode", raw.Name, ErrMalformedRecord, err)
	}

	if raw.Name == "" {
		return models.ProcessDescriptor{}, opError("decode", "", ErrMalformedRecord, errors.New("missing name"))
	}
	if raw.PmID == nil {
		return models.ProcessDescriptor{}, opError("decode", raw.Name, ErrMalformedRecord, errors.New("missing pm_id"))
	}

	status, ok := statuses[raw.Env.Status]
	if !ok {
		status = models.StatusUnknown
	}

	desc := models.ProcessDescriptor{
		ID:            *raw.PmID,
		Name:          raw.Name,
		Status:        status,
		CPUPercent:    raw.Monit.CPU,
		MemoryBytes:   raw.Monit.Memory,
		RestartCount:  raw.Env.RestartTime,
		StdoutLogPath: optional(raw.Env.OutLogPath),
		StderrLogPath: optional(raw.Env.ErrLogPath),
		Raw:           r,
	}
	if raw.Pid > 0 {
		pid := raw.Pid
		desc.Pid = &pid
	}

	return desc, nil
}

// Matches reports whether a record answers to the given name or numeric id,
// the two keys the supervisor accepts for restart.
func Matches(d models.ProcessDescriptor, key string) bool {
	if d.Name == key {
		return true
	}
	id, err := strconv.Atoi(key)
	return err == nil && id == d.ID
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
