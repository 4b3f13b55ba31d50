package app

import (
	"fmt"
	nethttp "net/http"
	"sync"

	relayHTTP "github.com/allisson/streamgate/internal/relay/http"
	relayService "github.com/allisson/streamgate/internal/relay/service"
	relayUseCase "github.com/allisson/streamgate/internal/relay/usecase"
)

type relayComponents struct {
	transport    *nethttp.Transport
	httpClient   *nethttp.Client
	relayUseCase relayUseCase.RelayUseCase
	selector     *relayHTTP.Selector
	relayHandler *relayHTTP.RelayHandler

	transportInit    sync.Once
	relayUseCaseInit sync.Once
	selectorInit     sync.Once
	relayHandlerInit sync.Once
}

// HTTPClient returns the upstream client. Its transport is shared by every relay call.
func (c *Container) HTTPClient() (*nethttp.Client, error) {
	c.transportInit.Do(func() {
		var err error
		c.transport, err = c.initTransport()
		c.recordError("transport", err)
		if err == nil {
			// Redirects are followed. There is no client timeout, phases are bounded by the relay.
			c.httpClient = &nethttp.Client{Transport: c.transport}
		}
	})
	return c.httpClient, c.storedError("transport")
}

// RelayUseCase returns the stream relay.
func (c *Container) RelayUseCase() (relayUseCase.RelayUseCase, error) {
	c.relayUseCaseInit.Do(func() {
		var err error
		c.relayUseCase, err = c.initRelayUseCase()
		c.recordError("relayUseCase", err)
	})
	return c.relayUseCase, c.storedError("relayUseCase")
}

// Selector returns the upstream selection rules built from RELAY_* settings.
func (c *Container) Selector() (*relayHTTP.Selector, error) {
	c.selectorInit.Do(func() {
		var err error
		c.selector, err = relayHTTP.NewSelector(c.config)
		c.recordError("selector", err)
	})
	return c.selector, c.storedError("selector")
}

// RelayHandler returns the relay route handler.
func (c *Container) RelayHandler() (*relayHTTP.RelayHandler, error) {
	c.relayHandlerInit.Do(func() {
		var err error
		c.relayHandler, err = c.initRelayHandler()
		c.recordError("relayHandler", err)
	})
	return c.relayHandler, c.storedError("relayHandler")
}

func (c *Container) initTransport() (*nethttp.Transport, error) {
	transport, err := relayService.NewTransport(relayService.TransportConfig{
		ConnectTimeout:      c.config.RelayConnectTimeout,
		MaxConnsPerHost:     c.config.RelayMaxConnsPerHost,
		MaxIdleConnsPerHost: c.config.RelayMaxIdleConnsPerHost,
		IdleConnTimeout:     c.config.RelayIdleConnTimeout,
		LocalAddressV4:      c.config.RelayLocalAddressV4,
		LocalAddressV6:      c.config.RelayLocalAddressV6,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create relay transport: %w", err)
	}
	return transport, nil
}

func (c *Container) initRelayUseCase() (relayUseCase.RelayUseCase, error) {
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get http client for relay use case: %w", err)
	}

	baseUseCase := relayUseCase.NewRelayUseCase(c.config, client)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for relay use case: %w", err)
		}
		relayMetrics, err := c.RelayMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get relay metrics for relay use case: %w", err)
		}
		return relayUseCase.NewRelayUseCaseWithMetrics(baseUseCase, businessMetrics, relayMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initRelayHandler() (*relayHTTP.RelayHandler, error) {
	useCase, err := c.RelayUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get relay use case for relay handler: %w", err)
	}

	selector, err := c.Selector()
	if err != nil {
		return nil, fmt.Errorf("failed to get selector for relay handler: %w", err)
	}

	return relayHTTP.NewRelayHandler(useCase, selector, c.Logger()), nil
}
