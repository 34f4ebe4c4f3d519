// Package discovery advertises the bearing output sink over mDNS/DNS-SD
// so plotting clients on the local network can find it without manual
// addressing (optional `--announce`).
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

// ServiceType is the DNS-SD service type advertised for the bearing
// stream.
const ServiceType = "_pdoppler-bearing._tcp"

// Announcer advertises the bearing output stream over mDNS until Stop is
// called.
type Announcer struct {
	responder dnssd.Responder
	cancel    context.CancelFunc
}

// Announce starts advertising name (or a default name if empty) on port.
// Failures are logged rather than fatal: an RDF unit with no local
// network is still fully functional.
func Announce(name string, port int, logger *log.Logger) (*Announcer, error) {
	if name == "" {
		name = "pdoppler-bearing"
	}

	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("dns-sd: create service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("dns-sd: create responder: %w", err)
	}

	if _, err := rp.Add(sv); err != nil {
		return nil, fmt.Errorf("dns-sd: add service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Announcer{responder: rp, cancel: cancel}

	if logger != nil {
		logger.Info("dns-sd announcing bearing stream", "name", name, "port", port)
	}

	go func() {
		if err := rp.Respond(ctx); err != nil && ctx.Err() == nil {
			if logger != nil {
				logger.Error("dns-sd responder stopped", "err", err)
			}
		}
	}()

	return a, nil
}

// Stop cancels the responder goroutine.
func (a *Announcer) Stop() {
	a.cancel()
}
