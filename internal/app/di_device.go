package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	deviceHTTP "github.com/allisson/streamgate/internal/device/http"
	deviceRepository "github.com/allisson/streamgate/internal/device/repository"
	deviceService "github.com/allisson/streamgate/internal/device/service"
	deviceUseCase "github.com/allisson/streamgate/internal/device/usecase"
)

// signingKeyLoadTimeout bounds the KMS round trip made while loading the signing key.
const signingKeyLoadTimeout = 30 * time.Second

type deviceComponents struct {
	adminKeyService deviceService.AdminKeyService
	kmsService      deviceService.KMSService
	tokenSigner     deviceService.TokenSigner
	deviceRepo      deviceUseCase.DeviceRepository
	deviceUseCase   deviceUseCase.DeviceUseCase
	deviceHandler   *deviceHTTP.DeviceHandler

	adminKeyServiceInit sync.Once
	kmsServiceInit      sync.Once
	tokenSignerInit     sync.Once
	deviceRepoInit      sync.Once
	deviceUseCaseInit   sync.Once
	deviceHandlerInit   sync.Once
}

// AdminKeyService returns the admin key hashing service.
func (c *Container) AdminKeyService() deviceService.AdminKeyService {
	c.adminKeyServiceInit.Do(func() {
		c.adminKeyService = deviceService.NewAdminKeyService()
	})
	return c.adminKeyService
}

// KMSService returns the KMS service used to unwrap the signing key.
func (c *Container) KMSService() deviceService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = deviceService.NewKMSService()
	})
	return c.kmsService
}

// TokenSigner returns the device token signer.
func (c *Container) TokenSigner() (deviceService.TokenSigner, error) {
	c.tokenSignerInit.Do(func() {
		var err error
		c.tokenSigner, err = c.initTokenSigner()
		c.recordError("tokenSigner", err)
	})
	return c.tokenSigner, c.storedError("tokenSigner")
}

// DeviceRepository returns the device registry selected by DB_DRIVER.
func (c *Container) DeviceRepository() (deviceUseCase.DeviceRepository, error) {
	c.deviceRepoInit.Do(func() {
		var err error
		c.deviceRepo, err = c.initDeviceRepository()
		c.recordError("deviceRepo", err)
	})
	return c.deviceRepo, c.storedError("deviceRepo")
}

// DeviceUseCase returns the token authority.
func (c *Container) DeviceUseCase() (deviceUseCase.DeviceUseCase, error) {
	c.deviceUseCaseInit.Do(func() {
		var err error
		c.deviceUseCase, err = c.initDeviceUseCase()
		c.recordError("deviceUseCase", err)
	})
	return c.deviceUseCase, c.storedError("deviceUseCase")
}

// DeviceHandler returns the device admin handler.
func (c *Container) DeviceHandler() (*deviceHTTP.DeviceHandler, error) {
	c.deviceHandlerInit.Do(func() {
		var err error
		c.deviceHandler, err = c.initDeviceHandler()
		c.recordError("deviceHandler", err)
	})
	return c.deviceHandler, c.storedError("deviceHandler")
}

func (c *Container) initTokenSigner() (deviceService.TokenSigner, error) {
	ctx, cancel := context.WithTimeout(context.Background(), signingKeyLoadTimeout)
	defer cancel()

	key, err := deviceService.LoadSigningKey(
		ctx,
		c.KMSService(),
		c.config.KMSKeyURI,
		c.config.TokenSigningKey,
		c.config.TokenSigningKeyCiphertext,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load token signing key: %w", err)
	}

	return deviceService.NewTokenSigner(key)
}

func (c *Container) initDeviceRepository() (deviceUseCase.DeviceRepository, error) {
	if c.config.DBDriver == "memory" {
		return deviceRepository.NewMemoryDeviceRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for device repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return deviceRepository.NewPostgreSQLDeviceRepository(db), nil
	case "mysql":
		return deviceRepository.NewMySQLDeviceRepository(db), nil
	case "sqlite":
		return deviceRepository.NewSQLiteDeviceRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initDeviceUseCase() (deviceUseCase.DeviceUseCase, error) {
	deviceRepo, err := c.DeviceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get device repository for device use case: %w", err)
	}

	tokenSigner, err := c.TokenSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get token signer for device use case: %w", err)
	}

	baseUseCase := deviceUseCase.NewDeviceUseCase(c.config, deviceRepo, tokenSigner, c.Clock())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for device use case: %w", err)
		}
		return deviceUseCase.NewDeviceUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initDeviceHandler() (*deviceHTTP.DeviceHandler, error) {
	useCase, err := c.DeviceUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get device use case for device handler: %w", err)
	}
	return deviceHTTP.NewDeviceHandler(useCase, c.Logger()), nil
}
