// Package link owns the wireless-link lifecycle: passive discovery, the
// connection attempt against the configured target, capability negotiation,
// and serialized chunked writes. A single event loop applies every state
// transition, so no transition is ever applied concurrently with another.
package link

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/IMMZEK/tamuhackx/pkg/models"
	"github.com/IMMZEK/tamuhackx/pkg/util"
)

const (
	// DefaultConnectTimeout bounds the dial against a matched device.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultDiscoverTimeout bounds each discovery step individually.
	DefaultDiscoverTimeout = 10 * time.Second

	eventQueueSize = 32
)

var (
	// ErrNotConnected is returned by Send outside of Ready/Streaming.
	ErrNotConnected = errors.New("link is not connected")
	// ErrNoWritableCharacteristic means no service on the peripheral offers
	// a write-without-response characteristic. Terminal for the attempt.
	ErrNoWritableCharacteristic = errors.New("no writable characteristic found on peripheral")
	// ErrEmptyPayload is returned by Send for zero-length payloads.
	ErrEmptyPayload = errors.New("empty payload provided, skip writing")
)

// Config holds the tunables of a link manager.
type Config struct {
	TargetName      string
	ConnectTimeout  time.Duration
	DiscoverTimeout time.Duration
	PreferredMTU    int
}

func (c Config) withDefaults() Config {
	if c.TargetName == "" {
		c.TargetName = util.DefaultTargetName
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.DiscoverTimeout == 0 {
		c.DiscoverTimeout = DefaultDiscoverTimeout
	}
	if c.PreferredMTU == 0 {
		c.PreferredMTU = util.PreferredMTU
	}
	return c
}

// Stats are cumulative transmit counters. Acknowledgment-less writes give no
// delivery confirmation, so WriteFailures only counts local stack errors;
// sustained silent loss shows up operationally as payloads sent with nothing
// arriving, which is why these are exported at all.
type Stats struct {
	PayloadsSent  uint64
	ChunksWritten uint64
	WriteFailures uint64
}

// linkContext is the per-connection state: the BLE client, the selected
// characteristic and the negotiated write capability. It is owned by the
// event loop and replaced wholesale on every attempt; there is no ambient
// connection state anywhere else.
type linkContext struct {
	session string
	client  ble.Client
	char    *ble.Characteristic
	cap     models.WritableCapability
}

// Manager drives the link state machine. All transitions are applied by the
// event loop under the manager's lock; Send serializes on its own lock so at
// most one chunk sequence is in flight at a time.
type Manager struct {
	cfg      Config
	methods  coreMethods
	listener models.LinkListener
	log      zerolog.Logger

	mu          sync.Mutex
	state       State
	lctx        *linkContext
	lastErr     error
	scanCancel  context.CancelFunc
	deviceReady bool

	sendMu sync.Mutex

	events chan event
	done   chan struct{}
	once   sync.Once

	payloadsSent  atomic.Uint64
	chunksWritten atomic.Uint64
	writeFailures atomic.Uint64
}

// NewManager creates a manager bound to the real radio. Call Start to begin
// discovery and Close when the manager is no longer needed.
func NewManager(cfg Config, listener models.LinkListener, log zerolog.Logger) *Manager {
	return newManager(cfg, listener, log, &realCoreMethods{})
}

func newManager(cfg Config, listener models.LinkListener, log zerolog.Logger, methods coreMethods) *Manager {
	m := &Manager{
		cfg:      cfg.withDefaults(),
		methods:  methods,
		listener: listener,
		log:      log.With().Str("component", "link").Logger(),
		state:    Disconnected,
		events:   make(chan event, eventQueueSize),
		done:     make(chan struct{}),
	}
	go m.loop()
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports true only while the link can accept payloads.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Ready || m.state == Streaming
}

// LastError returns the reason for the most recent Failed transition.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Stats returns cumulative transmit counters.
func (m *Manager) Stats() Stats {
	return Stats{
		PayloadsSent:  m.payloadsSent.Load(),
		ChunksWritten: m.chunksWritten.Load(),
		WriteFailures: m.writeFailures.Load(),
	}
}

// Start begins passive discovery. It is a no-op while a connection attempt
// or connection is already in progress; from Disconnected or Failed it
// (re)enters Scanning. Reconnection after a disconnect is never automatic,
// the owner requests it here.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.state != Disconnected && m.state != Failed {
		m.mu.Unlock()
		return nil
	}
	if !m.deviceReady {
		if err := m.methods.SetDefaultDevice(); err != nil {
			m.mu.Unlock()
			return errors.Wrap(err, "SetDefaultDevice issue: ")
		}
		m.deviceReady = true
	}
	m.lastErr = nil
	m.startScanLocked()
	m.mu.Unlock()
	return nil
}

// startScanLocked moves to Scanning and launches the scan goroutine. Caller
// holds m.mu.
func (m *Manager) startScanLocked() {
	m.setStateLocked(Scanning)
	ctx, cancel := context.WithCancel(context.Background())
	m.scanCancel = cancel
	go m.scan(ctx)
}

func (m *Manager) scan(ctx context.Context) {
	err := m.methods.Scan(ctx, func(a ble.Advertisement) {
		m.postScan(evDeviceDiscovered{name: a.LocalName(), addr: a.Addr(), rssi: a.RSSI()})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		m.listener.OnInternalError(errors.Wrap(err, "Scan issue: "))
	}
}

// Stop unconditionally tears the link down. Safe to call from any state and
// idempotent; queued sends fail with ErrNotConnected rather than going out
// on a dead link.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.scanCancel != nil {
		m.scanCancel()
		m.scanCancel = nil
	}
	var client ble.Client
	if m.lctx != nil {
		client = m.lctx.client
	}
	m.lctx = nil
	m.setStateLocked(Disconnected)
	m.mu.Unlock()
	if client != nil {
		client.CancelConnection()
	}
}

// Close stops the link and shuts the event loop down for good.
func (m *Manager) Close() {
	m.Stop()
	m.once.Do(func() { close(m.done) })
}

// Send transmits one payload. Valid only in Ready or Streaming. Payloads
// larger than the negotiated maximum are split into sequential chunks and
// written in order; a concurrent Send queues behind the one in flight rather
// than interleaving chunks. Failed writes are not retried, only counted.
func (m *Manager) Send(payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	m.mu.Lock()
	if m.state != Ready && m.state != Streaming {
		m.mu.Unlock()
		return ErrNotConnected
	}
	lctx := m.lctx
	if m.state == Ready {
		m.setStateLocked(Streaming)
	}
	m.mu.Unlock()

	chunks := util.SplitChunks(payload, lctx.cap.MaxPayloadBytes)
	for i, chunk := range chunks {
		if err := lctx.client.WriteCharacteristic(lctx.char, chunk, lctx.cap.AcklessWrite); err != nil {
			m.writeFailures.Add(1)
			m.log.Warn().Err(err).
				Str("session", lctx.session).
				Int("chunk", i).
				Int("chunks", len(chunks)).
				Msg("characteristic write failed, payload abandoned")
			return errors.Wrap(err, "WriteCharacteristic issue: ")
		}
		m.chunksWritten.Add(1)
	}
	m.payloadsSent.Add(1)
	return nil
}

func (m *Manager) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// postScan drops on a full queue: advertisements arrive in bursts and any
// one of them is disposable, but the radio callback must never block.
func (m *Manager) postScan(ev event) {
	select {
	case m.events <- ev:
	default:
	}
}

func (m *Manager) loop() {
	for {
		select {
		case <-m.done:
			return
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev event) {
	switch ev := ev.(type) {
	case evDeviceDiscovered:
		m.handleDeviceDiscovered(ev)
	case evConnected:
		m.handleConnected(ev)
	case evConnectFailed:
		m.handleConnectFailed(ev)
	case evServicesFound:
		m.handleServicesFound(ev)
	case evCharacteristicFound:
		m.handleCharacteristicFound(ev)
	case evDiscoveryFailed:
		m.handleDiscoveryFailed(ev)
	case evDisconnected:
		m.handleDisconnected(ev)
	}
}

// sessionCurrent reports whether ev belongs to the attempt the manager is
// still tracking. Caller holds m.mu.
func (m *Manager) sessionCurrent(session string) bool {
	return m.lctx != nil && m.lctx.session == session
}

func (m *Manager) handleDeviceDiscovered(ev evDeviceDiscovered) {
	m.mu.Lock()
	if m.state != Scanning {
		m.mu.Unlock()
		return
	}
	if ev.name != m.cfg.TargetName {
		m.mu.Unlock()
		return
	}
	if m.scanCancel != nil {
		m.scanCancel()
		m.scanCancel = nil
	}
	session := uuid.NewString()
	m.lctx = &linkContext{session: session}
	m.setStateLocked(Connecting)
	m.mu.Unlock()
	m.log.Info().Str("session", session).Str("addr", ev.addr.String()).Int("rssi", ev.rssi).Msg("target found, connecting")
	go m.connect(session, ev.addr, ev.rssi)
}

func (m *Manager) connect(session string, addr ble.Addr, rssi int) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
	defer cancel()
	client, err := m.methods.Dial(ctx, addr)
	if err != nil {
		m.post(evConnectFailed{session: session, err: errors.Wrap(err, "Dial issue: ")})
		return
	}
	m.post(evConnected{session: session, client: client, addr: addr.String(), rssi: rssi})
}

func (m *Manager) handleConnected(ev evConnected) {
	m.mu.Lock()
	if m.state != Connecting || !m.sessionCurrent(ev.session) {
		m.mu.Unlock()
		ev.client.CancelConnection()
		return
	}
	m.lctx.client = ev.client
	m.setStateLocked(DiscoveringServices)
	m.mu.Unlock()
	go func() {
		<-ev.client.Disconnected()
		m.post(evDisconnected{session: ev.session})
	}()
	m.listener.OnConnected(ev.addr, ev.rssi)
	go m.discoverServices(ev.session, ev.client)
}

func (m *Manager) handleConnectFailed(ev evConnectFailed) {
	m.mu.Lock()
	if m.state != Connecting || !m.sessionCurrent(ev.session) {
		m.mu.Unlock()
		return
	}
	m.lctx = nil
	m.startScanLocked()
	m.mu.Unlock()
	m.log.Warn().Err(ev.err).Str("session", ev.session).Msg("connect attempt failed, scanning again")
	m.listener.OnInternalError(ev.err)
}

func (m *Manager) discoverServices(session string, client ble.Client) {
	mtu, err := client.ExchangeMTU(m.cfg.PreferredMTU)
	if err != nil {
		m.post(evDiscoveryFailed{session: session, err: errors.Wrap(err, "ExchangeMTU issue: ")})
		return
	}
	var services []*ble.Service
	err = util.Timeout(func() error {
		var e error
		services, e = client.DiscoverServices(nil)
		return e
	}, m.cfg.DiscoverTimeout)
	if err != nil {
		m.post(evDiscoveryFailed{session: session, err: errors.Wrap(err, "DiscoverServices issue: ")})
		return
	}
	m.post(evServicesFound{session: session, client: client, services: services, mtu: mtu})
}

func (m *Manager) handleServicesFound(ev evServicesFound) {
	m.mu.Lock()
	if m.state != DiscoveringServices || !m.sessionCurrent(ev.session) {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(DiscoveringCharacteristics)
	m.mu.Unlock()
	go m.probeCharacteristics(ev.session, ev.client, ev.services, ev.mtu)
}

// probeCharacteristics walks every discovered service, no filtering, and
// selects the first characteristic that supports write-without-response.
func (m *Manager) probeCharacteristics(session string, client ble.Client, services []*ble.Service, mtu int) {
	probed := mapset.NewSet[string]()
	for _, svc := range services {
		if !probed.Add(svc.UUID.String()) {
			continue
		}
		var chars []*ble.Characteristic
		err := util.Timeout(func() error {
			var e error
			chars, e = client.DiscoverCharacteristics(nil, svc)
			return e
		}, m.cfg.DiscoverTimeout)
		if err != nil {
			m.post(evDiscoveryFailed{session: session, err: errors.Wrap(err, "DiscoverCharacteristics issue: ")})
			return
		}
		for _, char := range chars {
			if char.Property&ble.CharWriteNR != 0 {
				m.post(evCharacteristicFound{session: session, char: char, mtu: mtu})
				return
			}
		}
	}
	m.post(evDiscoveryFailed{session: session, err: ErrNoWritableCharacteristic})
}

func (m *Manager) handleCharacteristicFound(ev evCharacteristicFound) {
	m.mu.Lock()
	if m.state != DiscoveringCharacteristics || !m.sessionCurrent(ev.session) {
		m.mu.Unlock()
		return
	}
	m.lctx.char = ev.char
	m.lctx.cap = models.WritableCapability{
		MaxPayloadBytes: ev.mtu - util.AttWriteHeaderBytes,
		AcklessWrite:    true,
	}
	capability := m.lctx.cap
	m.setStateLocked(Ready)
	m.mu.Unlock()
	m.log.Info().Str("session", ev.session).Int("maxPayloadBytes", capability.MaxPayloadBytes).Msg("link ready")
	m.listener.OnReady(capability)
}

func (m *Manager) handleDiscoveryFailed(ev evDiscoveryFailed) {
	m.mu.Lock()
	if !m.sessionCurrent(ev.session) {
		m.mu.Unlock()
		return
	}
	var client ble.Client
	if m.lctx != nil {
		client = m.lctx.client
	}
	m.lctx = nil
	m.lastErr = ev.err
	m.setStateLocked(Failed)
	m.mu.Unlock()
	if client != nil {
		client.CancelConnection()
	}
	m.log.Warn().Err(ev.err).Str("session", ev.session).Msg("connection attempt failed")
	m.listener.OnLinkFailed(ev.err)
}

func (m *Manager) handleDisconnected(ev evDisconnected) {
	m.mu.Lock()
	if !m.sessionCurrent(ev.session) {
		m.mu.Unlock()
		return
	}
	m.lctx = nil
	m.setStateLocked(Disconnected)
	m.mu.Unlock()
	m.listener.OnDisconnected()
}

// setStateLocked applies a transition. Caller holds m.mu.
func (m *Manager) setStateLocked(next State) {
	if m.state == next {
		return
	}
	m.log.Debug().Stringer("from", m.state).Stringer("to", next).Msg("link state")
	m.state = next
}
