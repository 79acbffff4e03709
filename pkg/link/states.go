package link

// State is an enum for all lifecycle phases of the wireless link.
type State int

const (
	// Disconnected means no link activity is in progress.
	Disconnected State = iota
	// Scanning means passive discovery is running, waiting for the target.
	Scanning
	// Connecting means a connection attempt against the matched device is in
	// flight.
	Connecting
	// DiscoveringServices means the low-level connection is up and the
	// service list is being fetched.
	DiscoveringServices
	// DiscoveringCharacteristics means services are known and each one is
	// being probed for a writable characteristic.
	DiscoveringCharacteristics
	// Ready means a write-without-response characteristic was selected and
	// payloads may be sent.
	Ready
	// Streaming means at least one payload has gone out on this connection.
	Streaming
	// Failed means the current connection attempt ended in an unrecoverable
	// error; LastError carries the reason.
	Failed
)

func (s State) String() string {
	return []string{
		"Disconnected",
		"Scanning",
		"Connecting",
		"DiscoveringServices",
		"DiscoveringCharacteristics",
		"Ready",
		"Streaming",
		"Failed",
	}[s]
}
