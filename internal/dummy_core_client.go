package internal

import (
	"sync"

	"github.com/go-ble/ble"
)

// DummyCoreClient is a scripted ble.Client. Tests configure the services it
// exposes and the MTU it grants, then inspect the chunks written to it.
type DummyCoreClient struct {
	TestAddr     string
	GrantedMTU   int
	ServicesList []*ble.Service

	// Failure injection, nil for the happy path.
	MTUErr      error
	ServicesErr error
	CharsErr    error
	WriteErr    error

	mutex        sync.Mutex
	writtenData  [][]byte
	disconnected chan struct{}
	cancelOnce   sync.Once
}

func NewDummyCoreClient(addr string, mtu int, services []*ble.Service) *DummyCoreClient {
	return &DummyCoreClient{
		TestAddr:     addr,
		GrantedMTU:   mtu,
		ServicesList: services,
		disconnected: make(chan struct{}),
	}
}

// Written returns a copy of every chunk written so far, in write order.
func (c *DummyCoreClient) Written() [][]byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([][]byte, len(c.writtenData))
	copy(out, c.writtenData)
	return out
}

// DropLink simulates a link-level disconnect event from the peripheral side.
func (c *DummyCoreClient) DropLink() {
	c.cancelOnce.Do(func() { close(c.disconnected) })
}

func (c *DummyCoreClient) WriteCharacteristic(char *ble.Characteristic, value []byte, noRsp bool) error {
	if c.WriteErr != nil {
		return c.WriteErr
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	c.mutex.Lock()
	c.writtenData = append(c.writtenData, buf)
	c.mutex.Unlock()
	return nil
}

func (c *DummyCoreClient) ExchangeMTU(rxMTU int) (int, error) {
	if c.MTUErr != nil {
		return 0, c.MTUErr
	}
	return c.GrantedMTU, nil
}

func (c *DummyCoreClient) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	if c.ServicesErr != nil {
		return nil, c.ServicesErr
	}
	return c.ServicesList, nil
}

func (c *DummyCoreClient) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	if c.CharsErr != nil {
		return nil, c.CharsErr
	}
	return s.Characteristics, nil
}

func (c *DummyCoreClient) Addr() ble.Addr     { return ble.NewAddr(c.TestAddr) }
func (c *DummyCoreClient) Name() string       { return "dummy" }
func (c *DummyCoreClient) Profile() *ble.Profile {
	return &ble.Profile{Services: c.ServicesList}
}
func (c *DummyCoreClient) DiscoverProfile(force bool) (*ble.Profile, error) {
	return c.Profile(), nil
}
func (c *DummyCoreClient) DiscoverIncludedServices(filter []ble.UUID, s *ble.Service) ([]*ble.Service, error) {
	return nil, nil
}
func (c *DummyCoreClient) DiscoverDescriptors(filter []ble.UUID, char *ble.Characteristic) ([]*ble.Descriptor, error) {
	return nil, nil
}
func (c *DummyCoreClient) ReadCharacteristic(char *ble.Characteristic) ([]byte, error) {
	return nil, nil
}
func (c *DummyCoreClient) ReadLongCharacteristic(char *ble.Characteristic) ([]byte, error) {
	return nil, nil
}
func (c *DummyCoreClient) ReadDescriptor(d *ble.Descriptor) ([]byte, error)  { return nil, nil }
func (c *DummyCoreClient) WriteDescriptor(d *ble.Descriptor, v []byte) error { return nil }
func (c *DummyCoreClient) ReadRSSI() int                                     { return 0 }
func (c *DummyCoreClient) Subscribe(char *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	return nil
}
func (c *DummyCoreClient) Unsubscribe(char *ble.Characteristic, ind bool) error { return nil }
func (c *DummyCoreClient) ClearSubscriptions() error                            { return nil }
func (c *DummyCoreClient) CancelConnection() error {
	c.DropLink()
	return nil
}
func (c *DummyCoreClient) Disconnected() <-chan struct{} { return c.disconnected }
func (c *DummyCoreClient) Conn() ble.Conn                { return nil }
