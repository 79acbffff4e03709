package link

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/pkg/errors"
)

// coreMethods abstracts the handful of radio-level calls the manager makes,
// so tests can run the full state machine against scripted hardware.
type coreMethods interface {
	SetDefaultDevice() error
	Scan(ctx context.Context, h ble.AdvHandler) error
	Dial(ctx context.Context, addr ble.Addr) (ble.Client, error)
}

type realCoreMethods struct{}

func (rc *realCoreMethods) SetDefaultDevice() error {
	device, err := linux.NewDevice()
	if err != nil {
		return errors.Wrap(err, "NewDevice issue: ")
	}
	ble.SetDefaultDevice(device)
	return nil
}

func (rc *realCoreMethods) Scan(ctx context.Context, h ble.AdvHandler) error {
	return ble.Scan(ctx, false, h, nil)
}

func (rc *realCoreMethods) Dial(ctx context.Context, addr ble.Addr) (ble.Client, error) {
	return ble.Dial(ctx, addr)
}
