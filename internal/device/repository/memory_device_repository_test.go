package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
)

func TestMemoryDeviceRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDeviceRepository()

	device := &deviceDomain.Device{ID: "dev1", Token: "a.b", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Upsert(ctx, device))

	device.Revoked = true

	got, err := repo.Get(ctx, "dev1")
	require.NoError(t, err)
	assert.False(t, got.Revoked)

	got.Token = "mutated"
	again, err := repo.Get(ctx, "dev1")
	require.NoError(t, err)
	assert.Equal(t, "a.b", again.Token)
}

func TestMemoryDeviceRepository_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDeviceRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("dev%d", i%5)
			_ = repo.Upsert(ctx, &deviceDomain.Device{ID: id, Token: "t"})
			_, _ = repo.Get(ctx, id)
			_ = repo.Revoke(ctx, id, time.Now())
			_, _ = repo.List(ctx)
		}(i)
	}
	wg.Wait()

	devices, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 5)
}
