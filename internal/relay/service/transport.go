// Package service provides the outbound HTTP machinery used by the relay.
package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// TransportConfig configures the shared upstream transport.
type TransportConfig struct {
	// ConnectTimeout bounds dialing and the TLS handshake.
	ConnectTimeout time.Duration
	// MaxConnsPerHost caps dialing, active and idle connections per upstream host.
	MaxConnsPerHost int
	// MaxIdleConnsPerHost caps keep-alive connections kept per upstream host.
	MaxIdleConnsPerHost int
	// IdleConnTimeout is how long an idle keep-alive connection is kept.
	IdleConnTimeout time.Duration
	// LocalAddressV4 binds connections to IPv4 upstreams to this source IP when not empty.
	LocalAddressV4 string
	// LocalAddressV6 binds connections to IPv6 upstreams to this source IP when not empty.
	LocalAddressV6 string
}

// NewTransport creates the transport shared by every relay call.
//
// There is no overall client timeout: bodies may be unbounded live streams, so
// deadlines are enforced per phase by the relay itself.
func NewTransport(cfg TransportConfig) (*http.Transport, error) {
	dial, err := newDialFunc(cfg)
	if err != nil {
		return nil, err
	}

	maxIdlePerHost := cfg.MaxIdleConnsPerHost
	if cfg.MaxConnsPerHost > 0 && (maxIdlePerHost <= 0 || maxIdlePerHost > cfg.MaxConnsPerHost) {
		maxIdlePerHost = cfg.MaxConnsPerHost
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dial,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: time.Second,
	}, nil
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func newDialFunc(cfg TransportConfig) (dialFunc, error) {
	newDialer := func() *net.Dialer {
		return &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
	}

	if cfg.LocalAddressV4 == "" && cfg.LocalAddressV6 == "" {
		return newDialer().DialContext, nil
	}

	fd := &familyDialer{v4: newDialer(), v6: newDialer()}
	if cfg.LocalAddressV4 != "" {
		ip := net.ParseIP(cfg.LocalAddressV4)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("invalid relay IPv4 local address %q", cfg.LocalAddressV4)
		}
		fd.v4.LocalAddr = &net.TCPAddr{IP: ip}
	}
	if cfg.LocalAddressV6 != "" {
		ip := net.ParseIP(cfg.LocalAddressV6)
		if ip == nil || ip.To4() != nil {
			return nil, fmt.Errorf("invalid relay IPv6 local address %q", cfg.LocalAddressV6)
		}
		fd.v6.LocalAddr = &net.TCPAddr{IP: ip}
	}
	return fd.DialContext, nil
}

// familyDialer picks the source address by the family of the upstream address.
// Host names are tried over IPv4 first, then IPv6.
type familyDialer struct {
	v4 *net.Dialer
	v6 *net.Dialer
}

func (f *familyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	switch network {
	case "tcp4":
		return f.v4.DialContext(ctx, network, addr)
	case "tcp6":
		return f.v6.DialContext(ctx, network, addr)
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			return f.v4.DialContext(ctx, "tcp4", addr)
		}
		return f.v6.DialContext(ctx, "tcp6", addr)
	}

	conn, err := f.v4.DialContext(ctx, "tcp4", addr)
	if err == nil || ctx.Err() != nil {
		return conn, err
	}
	if conn6, err6 := f.v6.DialContext(ctx, "tcp6", addr); err6 == nil {
		return conn6, nil
	}
	return nil, err
}
