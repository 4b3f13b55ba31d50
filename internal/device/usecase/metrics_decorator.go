package usecase

import (
	"context"
	"time"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	"github.com/allisson/streamgate/internal/metrics"
)

// deviceUseCaseWithMetrics decorates DeviceUseCase with metrics instrumentation.
type deviceUseCaseWithMetrics struct {
	next    DeviceUseCase
	metrics metrics.BusinessMetrics
}

// NewDeviceUseCaseWithMetrics wraps a DeviceUseCase with metrics recording.
func NewDeviceUseCaseWithMetrics(useCase DeviceUseCase, m metrics.BusinessMetrics) DeviceUseCase {
	return &deviceUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (d *deviceUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "device", operation, status)
	d.metrics.RecordDuration(ctx, "device", operation, time.Since(start), status)
}

// Issue records metrics for token issuance operations.
func (d *deviceUseCaseWithMetrics) Issue(
	ctx context.Context,
	input *deviceDomain.IssueTokenInput,
) (*deviceDomain.IssueTokenOutput, error) {
	start := time.Now()
	output, err := d.next.Issue(ctx, input)
	d.record(ctx, "device_issue", start, err)
	return output, err
}

// Verify records metrics for token verification. Rejections are reported as "rejected".
func (d *deviceUseCaseWithMetrics) Verify(ctx context.Context, token, deviceID string) bool {
	start := time.Now()
	ok := d.next.Verify(ctx, token, deviceID)

	status := "success"
	if !ok {
		status = "rejected"
	}

	d.metrics.RecordOperation(ctx, "device", "device_verify", status)
	d.metrics.RecordDuration(ctx, "device", "device_verify", time.Since(start), status)

	return ok
}

// Authenticate records metrics for token authentication operations.
func (d *deviceUseCaseWithMetrics) Authenticate(
	ctx context.Context,
	token, deviceID string,
) (*deviceDomain.Device, error) {
	start := time.Now()
	device, err := d.next.Authenticate(ctx, token, deviceID)
	d.record(ctx, "device_authenticate", start, err)
	return device, err
}

// Revoke records metrics for device revocation operations.
func (d *deviceUseCaseWithMetrics) Revoke(ctx context.Context, deviceID string) error {
	start := time.Now()
	err := d.next.Revoke(ctx, deviceID)
	d.record(ctx, "device_revoke", start, err)
	return err
}

// List records metrics for device list operations.
func (d *deviceUseCaseWithMetrics) List(ctx context.Context) ([]*deviceDomain.Device, error) {
	start := time.Now()
	devices, err := d.next.List(ctx)
	d.record(ctx, "device_list", start, err)
	return devices, err
}

// Delete records metrics for device deletion operations.
func (d *deviceUseCaseWithMetrics) Delete(ctx context.Context, deviceID string) error {
	start := time.Now()
	err := d.next.Delete(ctx, deviceID)
	d.record(ctx, "device_delete", start, err)
	return err
}
