package internal

import (
	"github.com/go-ble/ble"

	"github.com/IMMZEK/tamuhackx/pkg/models"
)

// GetTestService builds a service whose characteristics carry the given
// property bits, in order.
func GetTestService(serviceUUID string, props ...ble.Property) *ble.Service {
	u, _ := ble.Parse(serviceUUID)
	svc := ble.NewService(u)
	for i, p := range props {
		cu, _ := ble.Parse(charUUIDAt(i))
		char := ble.NewCharacteristic(cu)
		char.Property = p
		svc.Characteristics = append(svc.Characteristics, char)
	}
	return svc
}

func charUUIDAt(i int) string {
	digits := "0123456789abcdef"
	return "0001000" + string(digits[i%16]) + "-0001-1000-8000-00805f9b34fb"
}

// TestListener records link callbacks on buffered channels so tests can
// await transitions without polling.
type TestListener struct {
	ConnectedCh    chan string
	ReadyCh        chan models.WritableCapability
	DisconnectedCh chan struct{}
	FailedCh       chan error
	InternalErrCh  chan error
}

func NewTestListener() *TestListener {
	return &TestListener{
		ConnectedCh:    make(chan string, 8),
		ReadyCh:        make(chan models.WritableCapability, 8),
		DisconnectedCh: make(chan struct{}, 8),
		FailedCh:       make(chan error, 8),
		InternalErrCh:  make(chan error, 8),
	}
}

func (l *TestListener) OnConnected(addr string, rssi int)     { l.ConnectedCh <- addr }
func (l *TestListener) OnReady(cap models.WritableCapability) { l.ReadyCh <- cap }
func (l *TestListener) OnDisconnected()                       { l.DisconnectedCh <- struct{}{} }
func (l *TestListener) OnLinkFailed(err error)                { l.FailedCh <- err }
func (l *TestListener) OnInternalError(err error)             { l.InternalErrCh <- err }
