package internal

import "github.com/go-ble/ble"

// DummyAddr is a scripted ble.Addr for tests.
type DummyAddr struct {
	Address string
}

func (addr DummyAddr) String() string { return addr.Address }

// DummyAdv is a scripted advertisement. Only the fields the link manager
// looks at (local name, address, rssi) are configurable.
type DummyAdv struct {
	Name    string
	Address DummyAddr
	Rssi    int
}

func (a DummyAdv) LocalName() string              { return a.Name }
func (a DummyAdv) ManufacturerData() []byte       { return nil }
func (a DummyAdv) ServiceData() []ble.ServiceData { return nil }
func (a DummyAdv) Services() []ble.UUID           { return nil }
func (a DummyAdv) OverflowService() []ble.UUID    { return nil }
func (a DummyAdv) TxPowerLevel() int              { return 0 }
func (a DummyAdv) Connectable() bool              { return true }
func (a DummyAdv) SolicitedService() []ble.UUID   { return nil }
func (a DummyAdv) RSSI() int                      { return a.Rssi }
func (a DummyAdv) Addr() ble.Addr                 { return a.Address }
