package link

import "github.com/go-ble/ble"

// Link events form a closed set consumed one at a time by the manager's
// event loop; state transitions happen nowhere else. Events produced by a
// connection attempt carry the attempt's session id so stragglers from a
// torn-down attempt are ignored.
type event interface {
	isEvent()
}

type evDeviceDiscovered struct {
	name string
	addr ble.Addr
	rssi int
}

type evConnected struct {
	session string
	client  ble.Client
	addr    string
	rssi    int
}

type evConnectFailed struct {
	session string
	err     error
}

type evServicesFound struct {
	session  string
	client   ble.Client
	services []*ble.Service
	mtu      int
}

type evCharacteristicFound struct {
	session string
	char    *ble.Characteristic
	mtu     int
}

type evDiscoveryFailed struct {
	session string
	err     error
}

type evDisconnected struct {
	session string
}

func (evDeviceDiscovered) isEvent()    {}
func (evConnected) isEvent()           {}
func (evConnectFailed) isEvent()       {}
func (evServicesFound) isEvent()       {}
func (evCharacteristicFound) isEvent() {}
func (evDiscoveryFailed) isEvent()     {}
func (evDisconnected) isEvent()        {}
