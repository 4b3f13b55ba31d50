package http

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/allisson/streamgate/internal/config"
	relayDomain "github.com/allisson/streamgate/internal/relay/domain"
)

// Selector decides which upstream a relay request goes to and with which headers.
// Client headers are never forwarded; the outbound set is fixed by configuration.
type Selector struct {
	channels      map[string]string
	allowedAgents []string
	header        http.Header
}

// NewSelector builds a Selector from the RELAY_* settings. RELAY_CHANNELS is a
// comma-separated list of name=url pairs; every url must be an absolute http(s) URL.
func NewSelector(cfg *config.Config) (*Selector, error) {
	channels, err := ParseChannels(cfg.RelayChannels)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if cfg.RelayUserAgent != "" {
		header.Set("User-Agent", cfg.RelayUserAgent)
	}
	if cfg.RelayAccept != "" {
		header.Set("Accept", cfg.RelayAccept)
	}
	if cfg.RelayReferer != "" {
		header.Set("Referer", cfg.RelayReferer)
	}
	if cfg.RelayOrigin != "" {
		header.Set("Origin", cfg.RelayOrigin)
	}

	return &Selector{
		channels:      channels,
		allowedAgents: splitList(cfg.RelayAllowedAgents),
		header:        header,
	}, nil
}

// ParseChannels parses "name=url,name2=url2".
func ParseChannels(raw string) (map[string]string, error) {
	channels := make(map[string]string)
	for _, entry := range splitList(raw) {
		name, target, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		target = strings.TrimSpace(target)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid channel entry %q: expected name=url", entry)
		}
		if _, err := relayDomain.ParseTarget(target); err != nil {
			return nil, fmt.Errorf("invalid url for channel %q: %w", name, err)
		}
		if _, dup := channels[name]; dup {
			return nil, fmt.Errorf("duplicate channel %q", name)
		}
		channels[name] = target
	}
	return channels, nil
}

// Authorize applies the User-Agent allow-list. An empty list allows everyone.
func (s *Selector) Authorize(userAgent string) error {
	if len(s.allowedAgents) == 0 {
		return nil
	}
	for _, allowed := range s.allowedAgents {
		if strings.Contains(userAgent, allowed) {
			return nil
		}
	}
	return relayDomain.ErrAgentNotAllowed
}

// ProxyRequest relays an explicit target URL.
func (s *Selector) ProxyRequest(targetURL string) (*relayDomain.Request, error) {
	if strings.TrimSpace(targetURL) == "" {
		return nil, relayDomain.ErrTargetMissing
	}
	if _, err := relayDomain.ParseTarget(targetURL); err != nil {
		return nil, err
	}
	return &relayDomain.Request{TargetURL: targetURL, Header: s.header.Clone()}, nil
}

// ChannelRequest relays a configured channel.
func (s *Selector) ChannelRequest(name string) (*relayDomain.Request, error) {
	target, ok := s.channels[name]
	if !ok {
		return nil, relayDomain.ErrChannelNotFound
	}
	return &relayDomain.Request{TargetURL: target, Header: s.header.Clone()}, nil
}

// Channels returns the configured channel names in sorted order.
func (s *Selector) Channels() []string {
	names := slices.AppendSeq(make([]string, 0, len(s.channels)), maps.Keys(s.channels))
	slices.Sort(names)
	return names
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
