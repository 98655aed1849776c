package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Optional mDNS/DNS-SD advertisement of the TCP rotation feed.
 *
 * Description:	Lets a client on the LAN discover the server without a
 *		fixed host/port. Best-effort: failure to start a responder
 *		is logged at warn and never prevents the TCP listener
 *		itself from accepting connections.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"os"
	"strings"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const mdnsServiceType = "_orbitd._tcp"

// defaultMDNSName returns "orbitd on <hostname>", or just "orbitd" if the
// hostname cannot be read.
func defaultMDNSName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "orbitd"
	}
	hostname, _, _ = strings.Cut(hostname, ".")
	return "orbitd on " + hostname
}

// AdvertiseMDNS starts a background mDNS responder advertising port under
// mdnsServiceType. It returns immediately; the responder runs until ctx is
// cancelled. A failure to build the service or responder is logged at
// warn and the function returns without advertising (best-effort, never
// fatal to startup).
func AdvertiseMDNS(ctx context.Context, port int, name string) {
	logger := log.With("component", "mdns")

	if name == "" {
		name = defaultMDNSName()
	}

	cfg := dnssd.Config{
		Name: name,
		Type: mdnsServiceType,
		Port: port,
	}

	service, err := dnssd.NewService(cfg)
	if err != nil {
		logger.Warn("failed to create mDNS service", "err", err)
		return
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		logger.Warn("failed to create mDNS responder", "err", err)
		return
	}

	if _, err := responder.Add(service); err != nil {
		logger.Warn("failed to register mDNS service", "err", err)
		return
	}

	logger.Info("advertising rotation feed over mDNS", "name", name, "port", port, "type", mdnsServiceType)

	go func() {
		if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("mDNS responder stopped", "err", err)
		}
	}()
}
