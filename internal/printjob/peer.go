package printjob

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultAgentPort is the port an agent listens on unless configured otherwise.
const DefaultAgentPort = 5246

// PeerTarget addresses a remote agent. It is supplied per call and never stored.
type PeerTarget struct {
	Host string
	Port int
}

func (p PeerTarget) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

func (p PeerTarget) Validate() error {
	if strings.TrimSpace(p.Host) == "" {
		return missingField("target host")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("%w: target port must be between 1 and 65535 (got %d)", ErrValidation, p.Port)
	}
	return nil
}

// PrinterSummary describes one printer in a PeerInfo snapshot.
type PrinterSummary struct {
	Name             string `json:"name"`
	IsDefault        bool   `json:"isDefault"`
	IsNetworkPrinter bool   `json:"isNetworkPrinter"`
}

// PeerInfo is an agent's self-description. It is fetched fresh on every query.
type PeerInfo struct {
	Hostname   string           `json:"hostname"`
	IP         string           `json:"ipAddress"`
	Port       int              `json:"port"`
	Version    string           `json:"version"`
	Printers   []PrinterSummary `json:"printers"`
	ObservedAt time.Time        `json:"timestamp"`
}
