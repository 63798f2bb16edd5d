// Package discovery advertises the Wyoming TCP endpoint on the local
// network via mDNS/DNS-SD (RFC 6762/6763), so Wyoming-speaking clients can
// find this gateway without a configured address. No library in the
// reference corpus offers an mDNS responder; the wire codec itself comes
// from golang.org/x/net/dns/dnsmessage (already part of the dependency
// graph transitively) rather than a hand-rolled parser.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"golang.org/x/net/dns/dnsmessage"
)

const ttlSecond = 120

// Advertiser answers mDNS queries for the Wyoming service type, so a LAN
// client running `avahi-browse`/Bonjour discovery (or a Wyoming client
// library's own mDNS lookup) finds this node.
type Advertiser struct {
	instance  string // "<ProgramName>-<ShortHostname>"
	port      uint16
	log       *slog.Logger
	hostLabel string
}

// NewAdvertiser builds an Advertiser for serviceName (the ProgramName
// half of the instance name) and port (the Wyoming TCP listener's port).
func NewAdvertiser(serviceName string, port int, log *slog.Logger) *Advertiser {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	if idx := strings.IndexByte(host, '.'); idx >= 0 {
		host = host[:idx]
	}
	return &Advertiser{
		instance:  fmt.Sprintf("%s-%s", serviceName, host),
		port:      uint16(port),
		log:       log,
		hostLabel: host,
	}
}

// Run listens for mDNS queries on the standard multicast group and
// responds to any question naming the Wyoming service type, until ctx is
// canceled.
func (a *Advertiser) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 5353})
	if err != nil {
		return fmt.Errorf("discovery: listen mdns: %w", err)
	}
	defer conn.Close()

	memberConn, err := joinMulticast(net.ParseIP("224.0.0.251"))
	if err != nil {
		a.log.Warn("discovery: failed to join mdns multicast group", slog.String("error", err.Error()))
	} else {
		defer memberConn.Close()
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, 8192)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.log.Debug("discovery: mdns read error", slog.String("error", err.Error()))
			continue
		}
		a.handleQuery(conn, addr, buf[:n])
	}
}

func (a *Advertiser) handleQuery(conn *net.UDPConn, addr *net.UDPAddr, data []byte) {
	var msg dnsmessage.Message
	if err := msg.Unpack(data); err != nil {
		return
	}
	for _, q := range msg.Questions {
		if !strings.EqualFold(q.Name.String(), serviceFQDN) {
			continue
		}
		resp, err := a.buildResponse(msg.Header.ID)
		if err != nil {
			a.log.Debug("discovery: build mdns response failed", slog.String("error", err.Error()))
			return
		}
		dst := &net.UDPAddr{IP: net.ParseIP("224.0.0.251"), Port: 5353}
		if _, err := conn.WriteToUDP(resp, dst); err != nil {
			a.log.Debug("discovery: mdns respond failed", slog.String("error", err.Error()))
		}
		_ = addr // unicast reply is unnecessary; multicast reaches every listener
		return
	}
}

const serviceFQDN = "_wyoming._tcp.local."

func (a *Advertiser) buildResponse(queryID uint16) ([]byte, error) {
	instanceFQDN := a.instance + "." + serviceFQDN
	hostFQDN := a.hostLabel + ".local."

	b := dnsmessage.NewBuilder(nil, dnsmessage.Header{ID: queryID, Response: true, Authoritative: true})
	b.EnableCompression()

	if err := b.StartQuestions(); err != nil {
		return nil, err
	}
	if err := b.StartAnswers(); err != nil {
		return nil, err
	}

	serviceName, err := dnsmessage.NewName(serviceFQDN)
	if err != nil {
		return nil, err
	}
	instanceName, err := dnsmessage.NewName(instanceFQDN)
	if err != nil {
		return nil, err
	}
	hostName, err := dnsmessage.NewName(hostFQDN)
	if err != nil {
		return nil, err
	}

	if err := b.PTRResource(
		dnsmessage.ResourceHeader{Name: serviceName, Type: dnsmessage.TypePTR, Class: dnsmessage.ClassINET, TTL: ttlSecond},
		dnsmessage.PTRResource{PTR: instanceName},
	); err != nil {
		return nil, err
	}

	if err := b.SRVResource(
		dnsmessage.ResourceHeader{Name: instanceName, Type: dnsmessage.TypeSRV, Class: dnsmessage.ClassINET, TTL: ttlSecond},
		dnsmessage.SRVResource{Priority: 0, Weight: 0, Port: a.port, Target: hostName},
	); err != nil {
		return nil, err
	}

	if err := b.TXTResource(
		dnsmessage.ResourceHeader{Name: instanceName, Type: dnsmessage.TypeTXT, Class: dnsmessage.ClassINET, TTL: ttlSecond},
		dnsmessage.TXTResource{TXT: []string{"protocol=wyoming"}},
	); err != nil {
		return nil, err
	}

	if addrs := localIPv4s(); len(addrs) > 0 {
		for _, ip := range addrs {
			if err := b.AResource(
				dnsmessage.ResourceHeader{Name: hostName, Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET, TTL: ttlSecond},
				dnsmessage.AResource{A: ip},
			); err != nil {
				return nil, err
			}
		}
	}

	return b.Finish()
}

func localIPv4s() [][4]byte {
	var out [][4]byte
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		v4 := ipNet.IP.To4()
		if v4 == nil {
			continue
		}
		var arr [4]byte
		copy(arr[:], v4)
		out = append(out, arr)
	}
	return out
}

// joinMulticast opens a second socket bound to the mDNS group solely to
// register multicast group membership at the OS level; actual reads and
// writes happen on the Advertiser's own unicast-bound socket. Failure is
// non-fatal: some sandboxed/offline environments reject multicast group
// membership, and the responder still answers queries that reach the
// bound socket regardless.
func joinMulticast(group net.IP) (*net.UDPConn, error) {
	return net.ListenMulticastUDP("udp4", nil, &net.UDPAddr{IP: group, Port: 5353})
}
