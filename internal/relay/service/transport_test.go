package service

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransport(t *testing.T) {
	t.Run("limits", func(t *testing.T) {
		transport, err := NewTransport(TransportConfig{
			ConnectTimeout:      5 * time.Second,
			MaxConnsPerHost:     200,
			MaxIdleConnsPerHost: 50,
			IdleConnTimeout:     90 * time.Second,
		})
		require.NoError(t, err)
		defer transport.CloseIdleConnections()

		assert.Equal(t, 200, transport.MaxConnsPerHost)
		assert.Equal(t, 50, transport.MaxIdleConnsPerHost)
		assert.Equal(t, 90*time.Second, transport.IdleConnTimeout)
		assert.Equal(t, 5*time.Second, transport.TLSHandshakeTimeout)
		assert.False(t, transport.DisableKeepAlives)
	})

	t.Run("idle capped by max conns", func(t *testing.T) {
		transport, err := NewTransport(TransportConfig{MaxConnsPerHost: 10, MaxIdleConnsPerHost: 100})
		require.NoError(t, err)
		assert.Equal(t, 10, transport.MaxIdleConnsPerHost)
	})

	t.Run("IPv4 source for IPv4 upstream", func(t *testing.T) {
		transport, err := NewTransport(TransportConfig{LocalAddressV4: "127.0.0.1"})
		require.NoError(t, err)

		ln, err := net.Listen("tcp4", "127.0.0.1:0")
		require.NoError(t, err)
		defer func() { _ = ln.Close() }()

		c, err := transport.DialContext(t.Context(), "tcp", ln.Addr().String())
		require.NoError(t, err)
		defer func() { _ = c.Close() }()

		assert.Equal(t, "127.0.0.1", c.LocalAddr().(*net.TCPAddr).IP.String())
	})

	t.Run("host name dialed over IPv4 first", func(t *testing.T) {
		transport, err := NewTransport(TransportConfig{LocalAddressV4: "127.0.0.1"})
		require.NoError(t, err)

		ln, err := net.Listen("tcp4", "127.0.0.1:0")
		require.NoError(t, err)
		defer func() { _ = ln.Close() }()

		_, port, err := net.SplitHostPort(ln.Addr().String())
		require.NoError(t, err)

		c, err := transport.DialContext(t.Context(), "tcp", net.JoinHostPort("localhost", port))
		require.NoError(t, err)
		defer func() { _ = c.Close() }()

		assert.Equal(t, "127.0.0.1", c.LocalAddr().(*net.TCPAddr).IP.String())
	})

	t.Run("IPv6 source for IPv6 upstream", func(t *testing.T) {
		ln, err := net.Listen("tcp6", "[::1]:0")
		if err != nil {
			t.Skip("IPv6 loopback unavailable")
		}
		defer func() { _ = ln.Close() }()

		transport, err := NewTransport(TransportConfig{LocalAddressV4: "127.0.0.1", LocalAddressV6: "::1"})
		require.NoError(t, err)

		c, err := transport.DialContext(t.Context(), "tcp", ln.Addr().String())
		require.NoError(t, err)
		defer func() { _ = c.Close() }()

		assert.Equal(t, "::1", c.LocalAddr().(*net.TCPAddr).IP.String())
	})

	t.Run("unbound family dials without a source address", func(t *testing.T) {
		ln, err := net.Listen("tcp6", "[::1]:0")
		if err != nil {
			t.Skip("IPv6 loopback unavailable")
		}
		defer func() { _ = ln.Close() }()

		transport, err := NewTransport(TransportConfig{LocalAddressV4: "127.0.0.1"})
		require.NoError(t, err)

		c, err := transport.DialContext(t.Context(), "tcp", ln.Addr().String())
		require.NoError(t, err)
		_ = c.Close()
	})

	t.Run("invalid local addresses", func(t *testing.T) {
		for _, cfg := range []TransportConfig{
			{LocalAddressV4: "not-an-ip"},
			{LocalAddressV4: "::1"},
			{LocalAddressV6: "127.0.0.1"},
			{LocalAddressV6: "garbage"},
		} {
			_, err := NewTransport(cfg)
			assert.Error(t, err, "%+v", cfg)
		}
	})
}
