package peer

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/mattjoyce/printmesh/internal/printjob"
)

// PrinterSource supplies the printer list for a PeerInfo snapshot.
type PrinterSource interface {
	Summaries(ctx context.Context) []printjob.PrinterSummary
}

// LocalInfo describes this agent to peers.
type LocalInfo struct {
	Port     int
	Version  string
	Printers PrinterSource

	hostname  func() (string, error)
	addresses func() ([]net.Addr, error)
	now       func() time.Time
}

func NewLocalInfo(port int, version string, printers PrinterSource) *LocalInfo {
	return &LocalInfo{
		Port:      port,
		Version:   version,
		Printers:  printers,
		hostname:  os.Hostname,
		addresses: net.InterfaceAddrs,
		now:       time.Now,
	}
}

// Snapshot builds a fresh PeerInfo.
func (l *LocalInfo) Snapshot(ctx context.Context) printjob.PeerInfo {
	host, err := l.hostname()
	if err != nil || host == "" {
		host = "localhost"
	}

	var addrs []net.Addr
	if l.addresses != nil {
		addrs, _ = l.addresses()
	}

	printers := l.Printers.Summaries(ctx)
	if printers == nil {
		printers = []printjob.PrinterSummary{}
	}

	return printjob.PeerInfo{
		Hostname:   host,
		IP:         preferredIPv4(addrs),
		Port:       l.Port,
		Version:    l.Version,
		Printers:   printers,
		ObservedAt: l.now().UTC(),
	}
}

// preferredIPv4 picks a private (RFC 1918) IPv4, then any other non-loopback
// IPv4, then 127.0.0.1.
func preferredIPv4(addrs []net.Addr) string {
	var fallback string
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		ip4 := ip.To4()
		if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
			continue
		}
		if ip4.IsPrivate() {
			return ip4.String()
		}
		if fallback == "" {
			fallback = ip4.String()
		}
	}
	if fallback != "" {
		return fallback
	}
	return "127.0.0.1"
}
