package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/August26/tlsprobe-go/internal/model"
)

const resolvConf = "/etc/resolv.conf"

var fallbackServers = []string{"8.8.8.8:53"}

// Lookuper returns the IPv4 addresses a hostname resolves to.
type Lookuper interface {
	LookupA(ctx context.Context, host string) ([]string, error)
}

// DNSResolver performs plain A-record queries against a fixed server list.
type DNSResolver struct {
	client  *dns.Client
	tcp     *dns.Client // retry for truncated UDP answers
	servers []string
}

// NewDNSResolver uses servers when given, otherwise the system resolv.conf.
// A zero timeout keeps the client's built-in default.
func NewDNSResolver(servers []string, timeout time.Duration) *DNSResolver {
	if len(servers) == 0 {
		servers = SystemServers()
	}
	return &DNSResolver{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
		servers: servers,
	}
}

// SystemServers reads nameservers from resolv.conf, falling back to a
// public resolver when the file is missing or empty.
func SystemServers() []string {
	cc, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil || len(cc.Servers) == 0 {
		return fallbackServers
	}
	out := make([]string, 0, len(cc.Servers))
	for _, s := range cc.Servers {
		out = append(out, net.JoinHostPort(s, cc.Port))
	}
	return out
}

// LookupA asks each server in turn until one answers. Queries advertise a
// 4096 byte EDNS0 buffer; a truncated reply is repeated over TCP so no
// address is dropped.
func (r *DNSResolver) LookupA(ctx context.Context, host string) ([]string, error) {
	if _, ok := dns.IsDomainName(host); !ok || host == "" {
		return nil, fmt.Errorf("invalid domain name %q", host)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.SetEdns0(4096, false)

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err == nil && resp.Truncated {
			resp, _, err = r.tcp.ExchangeContext(ctx, msg, server)
		}
		if err != nil {
			lastErr = fmt.Errorf("query %s: %w", server, err)
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("resolve %s: %s", host, dns.RcodeToString[resp.Rcode])
		}

		var ips []string
		for _, rr := range resp.Answer {
			if a, ok := rr.(*dns.A); ok {
				ips = append(ips, a.A.String())
			}
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("resolve %s: no A records", host)
		}
		return ips, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no nameservers configured")
	}
	return nil, lastErr
}

// Expand turns parsed entries into targets. Literal entries pass through
// untouched; hostnames become one target per A record. A failed lookup is
// logged and the entry contributes nothing.
func Expand(ctx context.Context, entries []model.Entry, lk Lookuper, log *slog.Logger) []model.Target {
	var out []model.Target
	for _, e := range entries {
		if e.Literal {
			out = append(out, model.Target{Address: e.Host, Port: e.Port, OriginalHost: e.Raw})
			continue
		}

		ips, err := lk.LookupA(ctx, e.Host)
		if err != nil {
			log.Warn("resolve failed", "domain", e.Raw, "err", err)
			continue
		}
		log.Debug("resolved", "domain", e.Raw, "count", len(ips))
		for _, ip := range ips {
			if IsReserved(ip) {
				log.Warn("domain resolved to reserved address", "domain", e.Raw, "ip", ip)
			}
			out = append(out, model.Target{Address: ip, Port: e.Port, OriginalHost: e.Raw})
		}
	}
	return out
}

// Dedupe keeps the first target seen for every address:port pair.
func Dedupe(targets []model.Target) []model.Target {
	seen := make(map[string]struct{}, len(targets))
	out := make([]model.Target, 0, len(targets))
	for _, t := range targets {
		key := t.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
