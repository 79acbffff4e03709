package link

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gotest.tools/assert"

	. "github.com/IMMZEK/tamuhackx/internal"
	"github.com/IMMZEK/tamuhackx/pkg/models"
)

const (
	testTargetName  = "BT24"
	testTargetAddr  = "11:22:33:44:55:66"
	testOtherAddr   = "AA:BB:CC:DD:EE:FF"
	testServiceUUID = "0000ffe0-0000-1000-8000-00805f9b34fb"
	testMTU         = 203 // 200 usable bytes per write
	awaitTimeout    = 2 * time.Second
)

// testCoreMethods scripts the radio: a fixed advertisement sequence, then a
// fixed dial result.
type testCoreMethods struct {
	advs      []ble.Advertisement
	client    ble.Client
	dialErr   error
	scanCount atomic.Int32
}

func (tc *testCoreMethods) SetDefaultDevice() error { return nil }

func (tc *testCoreMethods) Scan(ctx context.Context, h ble.AdvHandler) error {
	tc.scanCount.Add(1)
	for _, a := range tc.advs {
		h(a)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (tc *testCoreMethods) Dial(ctx context.Context, addr ble.Addr) (ble.Client, error) {
	if tc.dialErr != nil {
		return nil, tc.dialErr
	}
	return tc.client, nil
}

func writableService() *ble.Service {
	return GetTestService(testServiceUUID, ble.CharRead, ble.CharWriteNR|ble.CharWrite)
}

func newTestManager(t *testing.T, methods *testCoreMethods) (*Manager, *TestListener) {
	t.Helper()
	listener := NewTestListener()
	m := newManager(Config{TargetName: testTargetName}, listener, zerolog.Nop(), methods)
	t.Cleanup(m.Close)
	return m, listener
}

func awaitReady(t *testing.T, listener *TestListener) models.WritableCapability {
	t.Helper()
	select {
	case cap := <-listener.ReadyCh:
		return cap
	case err := <-listener.FailedCh:
		t.Fatalf("link failed instead of becoming ready: %v", err)
	case <-time.After(awaitTimeout):
		t.Fatal("timed out waiting for link to become ready")
	}
	return models.WritableCapability{}
}

func TestDiscoveryConnectsOnExactNameMatch(t *testing.T) {
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{writableService()})
	methods := &testCoreMethods{
		advs: []ble.Advertisement{
			DummyAdv{Name: "BT24-other", Address: DummyAddr{Address: testOtherAddr}, Rssi: -40},
			DummyAdv{Name: "", Address: DummyAddr{Address: testOtherAddr}, Rssi: -40},
			DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60},
		},
		client: client,
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())

	addr := <-listener.ConnectedCh
	assert.Equal(t, testTargetAddr, addr)
	cap := awaitReady(t, listener)
	assert.Equal(t, testMTU-3, cap.MaxPayloadBytes)
	assert.Check(t, cap.AcklessWrite)
	assert.Equal(t, Ready, m.State())
	assert.Check(t, m.Connected())
}

func TestDiscoveryIgnoresOtherNames(t *testing.T) {
	methods := &testCoreMethods{
		advs: []ble.Advertisement{
			DummyAdv{Name: "HC-05", Address: DummyAddr{Address: testOtherAddr}, Rssi: -40},
			DummyAdv{Name: "bt24", Address: DummyAddr{Address: testOtherAddr}, Rssi: -40},
		},
	}
	m, _ := newTestManager(t, methods)
	assert.NilError(t, m.Start())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, Scanning, m.State())
	assert.Check(t, !m.Connected())
}

func TestSendWhileDisconnected(t *testing.T) {
	m, _ := newTestManager(t, &testCoreMethods{})
	err := m.Send([]byte("1.0,2.0"))
	assert.Equal(t, ErrNotConnected, err)
	assert.Equal(t, uint64(0), m.Stats().ChunksWritten)
}

func TestSendChunksOversizedPayload(t *testing.T) {
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{writableService()})
	methods := &testCoreMethods{
		advs:   []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		client: client,
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())
	awaitReady(t, listener)

	payload := make([]byte, 600)
	for i := range payload {
		payload[i] = byte('0' + i%10)
	}
	assert.NilError(t, m.Send(payload))
	assert.Equal(t, Streaming, m.State())

	written := client.Written()
	assert.Equal(t, 3, len(written))
	for _, chunk := range written {
		assert.Equal(t, 200, len(chunk))
	}
	assert.Check(t, bytes.Equal(payload, bytes.Join(written, nil)))

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.PayloadsSent)
	assert.Equal(t, uint64(3), stats.ChunksWritten)
	assert.Equal(t, uint64(0), stats.WriteFailures)
}

func TestSendSmallPayloadSingleWrite(t *testing.T) {
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{writableService()})
	methods := &testCoreMethods{
		advs:   []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		client: client,
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())
	awaitReady(t, listener)

	assert.NilError(t, m.Send([]byte("0.5,0.5,0.5,0.5")))
	written := client.Written()
	assert.Equal(t, 1, len(written))
	assert.Equal(t, "0.5,0.5,0.5,0.5", string(written[0]))
}

func TestSendEmptyPayload(t *testing.T) {
	m, _ := newTestManager(t, &testCoreMethods{})
	assert.Equal(t, ErrEmptyPayload, m.Send(nil))
}

func TestSendWriteFailureCountedNotRetried(t *testing.T) {
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{writableService()})
	methods := &testCoreMethods{
		advs:   []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		client: client,
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())
	awaitReady(t, listener)

	client.WriteErr = errors.New("att write rejected")
	err := m.Send([]byte("1.0"))
	assert.ErrorContains(t, err, "att write rejected")

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.WriteFailures)
	assert.Equal(t, uint64(0), stats.PayloadsSent)
	assert.Equal(t, 0, len(client.Written()))
}

func TestNoWritableCharacteristic(t *testing.T) {
	readOnly := GetTestService(testServiceUUID, ble.CharRead, ble.CharNotify)
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{readOnly})
	methods := &testCoreMethods{
		advs:   []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		client: client,
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())

	select {
	case err := <-listener.FailedCh:
		assert.Equal(t, ErrNoWritableCharacteristic, errors.Cause(err))
	case <-time.After(awaitTimeout):
		t.Fatal("timed out waiting for failure callback")
	}
	assert.Equal(t, Failed, m.State())
	assert.Equal(t, ErrNoWritableCharacteristic, errors.Cause(m.LastError()))
	assert.Equal(t, ErrNotConnected, m.Send([]byte("1.0")))
}

func TestFirstWritableCharacteristicWins(t *testing.T) {
	svc := GetTestService(testServiceUUID, ble.CharWriteNR, ble.CharWriteNR)
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{svc})
	methods := &testCoreMethods{
		advs:   []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		client: client,
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())
	awaitReady(t, listener)

	m.mu.Lock()
	selected := m.lctx.char
	m.mu.Unlock()
	assert.Equal(t, svc.Characteristics[0], selected)
}

func TestPeripheralDisconnectTearsDownLink(t *testing.T) {
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{writableService()})
	methods := &testCoreMethods{
		advs:   []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		client: client,
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())
	awaitReady(t, listener)

	client.DropLink()
	select {
	case <-listener.DisconnectedCh:
	case <-time.After(awaitTimeout):
		t.Fatal("timed out waiting for disconnect callback")
	}
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, ErrNotConnected, m.Send([]byte("1.0")))
}

func TestConnectFailureResumesScanning(t *testing.T) {
	methods := &testCoreMethods{
		advs:    []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		dialErr: errors.New("connect timeout"),
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())

	select {
	case <-listener.InternalErrCh:
	case <-time.After(awaitTimeout):
		t.Fatal("timed out waiting for internal error callback")
	}
	// Scanning resumes; with the dial permanently failing the machine keeps
	// cycling Scanning -> Connecting.
	deadline := time.After(awaitTimeout)
	for methods.scanCount.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("scan was not restarted after connect failure")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStopIsIdempotentFromAnyState(t *testing.T) {
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{writableService()})
	methods := &testCoreMethods{
		advs:   []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		client: client,
	}
	m, listener := newTestManager(t, methods)

	m.Stop() // before Start
	assert.Equal(t, Disconnected, m.State())

	assert.NilError(t, m.Start())
	awaitReady(t, listener)
	m.Stop()
	m.Stop()
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, ErrNotConnected, m.Send([]byte("1.0")))
}

func TestReconnectAfterStop(t *testing.T) {
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{writableService()})
	methods := &testCoreMethods{
		advs:   []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		client: client,
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())
	awaitReady(t, listener)
	m.Stop()

	// The dummy client's disconnect channel is spent, so hand out a fresh one.
	methods.client = NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{writableService()})
	assert.NilError(t, m.Start())
	awaitReady(t, listener)
	assert.Check(t, m.Connected())
}

func TestDiscoveryErrorSurfacesAsFailure(t *testing.T) {
	client := NewDummyCoreClient(testTargetAddr, testMTU, []*ble.Service{writableService()})
	client.ServicesErr = errors.New("gatt unavailable")
	methods := &testCoreMethods{
		advs:   []ble.Advertisement{DummyAdv{Name: testTargetName, Address: DummyAddr{Address: testTargetAddr}, Rssi: -60}},
		client: client,
	}
	m, listener := newTestManager(t, methods)
	assert.NilError(t, m.Start())

	select {
	case err := <-listener.FailedCh:
		assert.ErrorContains(t, err, "gatt unavailable")
	case <-time.After(awaitTimeout):
		t.Fatal("timed out waiting for failure callback")
	}
	assert.Equal(t, Failed, m.State())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "Disconnected", Disconnected.String())
	assert.Equal(t, "Scanning", Scanning.String())
	assert.Equal(t, "DiscoveringCharacteristics", DiscoveringCharacteristics.String())
	assert.Equal(t, "Streaming", Streaming.String())
}
