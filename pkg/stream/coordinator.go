// Package stream glues the depth pipeline to the wireless link: each
// incoming frame is reduced to a grid summary, encoded, and handed to the
// link for transmission. It is the only component aware of both sensor data
// and the link.
package stream

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/IMMZEK/tamuhackx/pkg/depth"
	"github.com/IMMZEK/tamuhackx/pkg/models"
	"github.com/IMMZEK/tamuhackx/pkg/telemetry"
	"github.com/IMMZEK/tamuhackx/pkg/util"
)

// Sender is the slice of the link manager the coordinator needs.
type Sender interface {
	Send(payload []byte) error
	Connected() bool
}

// Config holds the grid shape applied to every frame.
type Config struct {
	GridRows uint32
	GridCols uint32
}

func (c Config) withDefaults() Config {
	if c.GridRows == 0 {
		c.GridRows = util.DefaultGridRows
	}
	if c.GridCols == 0 {
		c.GridCols = util.DefaultGridCols
	}
	return c
}

// Stats are cumulative pipeline counters.
type Stats struct {
	FramesReduced uint64
	FramesSkipped uint64
	FramesDropped uint64
	PayloadsSent  uint64
	SendFailures  uint64
}

// Coordinator runs the frame-to-payload pipeline. OnFrame is cheap and
// synchronous; transmission happens on a single worker goroutine with one
// payload slot, so at most one send is in flight and a frame arriving while
// the link is busy is dropped rather than queued without bound.
type Coordinator struct {
	cfg    Config
	sender Sender
	log    zerolog.Logger

	mu      sync.Mutex
	pending chan []byte
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool

	framesReduced uint64
	framesSkipped uint64
	framesDropped uint64
	payloadsSent  uint64
	sendFailures  uint64
}

// NewCoordinator wires a coordinator to a link. Call Start before delivering
// frames.
func NewCoordinator(cfg Config, sender Sender, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:    cfg.withDefaults(),
		sender: sender,
		log:    log.With().Str("component", "stream").Logger(),
	}
}

// Start launches the send worker. Idempotent.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.pending = make(chan []byte, 1)
	c.stop = make(chan struct{})
	c.running = true
	c.wg.Add(1)
	go c.sendLoop(c.pending, c.stop)
}

// Stop halts the send worker and discards any queued payload. Idempotent and
// safe to call from any state.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	c.mu.Unlock()
	c.wg.Wait()
}

// Halt transmits the reserved stop/off control token. Best effort: if the
// link is down the token is simply not sent.
func (c *Coordinator) Halt() error {
	if err := c.sender.Send(telemetry.Stop()); err != nil {
		return errors.Wrap(err, "stop token send issue: ")
	}
	return nil
}

// Connected reports whether the underlying link can accept payloads.
func (c *Coordinator) Connected() bool {
	return c.sender.Connected()
}

// Stats returns cumulative pipeline counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		FramesReduced: atomic.LoadUint64(&c.framesReduced),
		FramesSkipped: atomic.LoadUint64(&c.framesSkipped),
		FramesDropped: atomic.LoadUint64(&c.framesDropped),
		PayloadsSent:  atomic.LoadUint64(&c.payloadsSent),
		SendFailures:  atomic.LoadUint64(&c.sendFailures),
	}
}

// OnFrame accepts one depth frame from the capture collaborator. It must
// return quickly since it gates delivery of the next frame: reduction and
// encoding run inline, transmission is handed off. Frames without a usable
// sample buffer are skipped; a frame that cannot be reduced is dropped and
// the pipeline continues.
func (c *Coordinator) OnFrame(frame models.DepthFrame) {
	if !frame.HasSamples() {
		atomic.AddUint64(&c.framesSkipped, 1)
		c.log.Debug().Msg("frame skipped: no sample buffer")
		return
	}
	summary, err := depth.Reduce(frame, c.cfg.GridRows, c.cfg.GridCols)
	if err != nil {
		atomic.AddUint64(&c.framesDropped, 1)
		c.log.Warn().Err(err).Msg("frame dropped: reduction failed")
		return
	}
	atomic.AddUint64(&c.framesReduced, 1)
	payload := telemetry.Encode(summary.Values)

	c.mu.Lock()
	pending := c.pending
	running := c.running
	c.mu.Unlock()
	if !running {
		atomic.AddUint64(&c.framesDropped, 1)
		return
	}
	select {
	case pending <- payload:
	default:
		// A send is already in flight; newer data supersedes this frame.
		atomic.AddUint64(&c.framesDropped, 1)
		c.log.Debug().Msg("frame dropped: send in flight")
	}
}

func (c *Coordinator) sendLoop(pending chan []byte, stop chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-stop:
			return
		case payload := <-pending:
			if err := c.sender.Send(payload); err != nil {
				atomic.AddUint64(&c.sendFailures, 1)
				c.log.Warn().Err(err).Int("bytes", len(payload)).Msg("payload not sent")
				continue
			}
			atomic.AddUint64(&c.payloadsSent, 1)
		}
	}
}
