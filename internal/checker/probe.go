package checker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"github.com/August26/tlsprobe-go/internal/model"
)

// TimeoutReason is the error recorded when a probe runs out of time.
const TimeoutReason = "Timeout"

// Prober checks a single target.
type Prober interface {
	Probe(ctx context.Context, t model.Target) model.ProbeOutcome
}

// TLSProber measures how long a TLS handshake with a target takes.
type TLSProber struct {
	Dialer     proxy.ContextDialer
	ServerName string
	Timeout    time.Duration
}

// NewDialer returns a direct dialer, or one that tunnels through the
// SOCKS5 proxy described by via (socks5://[user:pass@]host:port).
func NewDialer(via string, timeout time.Duration) (proxy.ContextDialer, error) {
	base := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: -1,
	}
	if via == "" {
		return base, nil
	}

	u, err := url.Parse(via)
	if err != nil {
		return nil, fmt.Errorf("parse via url: %w", err)
	}
	d, err := proxy.FromURL(u, base)
	if err != nil {
		return nil, fmt.Errorf("build via dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("via dialer does not implement DialContext")
	}
	return cd, nil
}

// Probe dials the target and completes a TLS handshake with a fixed SNI.
// The certificate is not verified: only handshake reachability matters.
// The single deadline covers dial and handshake, so exactly one outcome
// is produced whichever of error or timeout happens first.
func (p *TLSProber) Probe(ctx context.Context, t model.Target) model.ProbeOutcome {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	start := time.Now()

	raw, err := p.Dialer.DialContext(ctx, "tcp", t.Addr())
	if err != nil {
		return failure(ctx, err)
	}

	conn := tls.Client(raw, &tls.Config{
		ServerName:         p.ServerName,
		InsecureSkipVerify: true,
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		abort(raw)
		return failure(ctx, err)
	}

	latency := time.Since(start).Milliseconds()
	_ = conn.Close()

	return model.ProbeOutcome{Success: true, LatencyMs: latency}
}

func failure(ctx context.Context, err error) model.ProbeOutcome {
	reason := err.Error()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		reason = TimeoutReason
	}
	return model.ProbeOutcome{Success: false, Error: reason}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// abort drops the connection with a reset instead of a FIN.
func abort(c net.Conn) {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
	}
	_ = c.Close()
}
