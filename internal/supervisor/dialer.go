package supervisor

import (
	"fmt"
)

const (
	TransportCLI    = "cli"
	TransportSocket = "socket"
)

// DialerConfig selects and parameterises a transport.
type DialerConfig struct {
	Transport string
	Binary    string
	Home      string
	Socket    string
}

// NewDialer builds the Dialer for the configured transport.
func NewDialer(cfg DialerConfig) (Dialer, error) {
	switch cfg.Transport {
	case TransportCLI, "":
		binary := cfg.Binary
		if binary == "" {
			binary = "pm2"
		}
		return &CLIDialer{Binary: binary, Home: cfg.Home}, nil
	case TransportSocket:
		if cfg.Socket == "" {
			return nil, fmt.Errorf("socket transport requires a socket path")
		}
		return &SocketDialer{Path: cfg.Socket}, nil
	default:
		return nil, fmt.Errorf("unknown supervisor transport %q", cfg.Transport)
	}
}
