package models

// LinkListener receives lifecycle callbacks from the link manager. Callbacks
// are invoked from the manager's event loop, one at a time, so implementations
// may rely on ordering but must not block.
type LinkListener interface {
	OnConnected(addr string, rssi int)
	OnReady(cap WritableCapability)
	OnDisconnected()
	OnLinkFailed(err error)
	OnInternalError(err error)
}
