// depthstreamd streams reduced depth telemetry to a BLE peripheral. Without
// a sensor attached it generates synthetic frames, which is enough to
// exercise discovery, negotiation and the full send path end to end.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/IMMZEK/tamuhackx/pkg/link"
	"github.com/IMMZEK/tamuhackx/pkg/models"
	"github.com/IMMZEK/tamuhackx/pkg/stream"
)

type daemonListener struct {
	log zerolog.Logger
}

func (l *daemonListener) OnConnected(addr string, rssi int) {
	l.log.Info().Str("addr", addr).Int("rssi", rssi).Msg("peripheral connected")
}

func (l *daemonListener) OnReady(cap models.WritableCapability) {
	l.log.Info().Int("maxPayloadBytes", cap.MaxPayloadBytes).Msg("peripheral ready for telemetry")
}

func (l *daemonListener) OnDisconnected() {
	l.log.Warn().Msg("peripheral disconnected; restart discovery to resume")
}

func (l *daemonListener) OnLinkFailed(err error) {
	l.log.Error().Err(err).Msg("link attempt failed")
}

func (l *daemonListener) OnInternalError(err error) {
	l.log.Warn().Err(err).Msg("link internal error")
}

func run() error {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	listener := &daemonListener{log: log}
	manager := link.NewManager(cfg.Link, listener, log)
	defer manager.Close()
	coordinator := stream.NewCoordinator(cfg.Stream, manager, log)

	if err := manager.Start(); err != nil {
		return err
	}
	coordinator.Start()
	defer coordinator.Stop()

	source := newSyntheticSource(cfg.FrameWidth, cfg.FrameHeight)
	ticker := time.NewTicker(cfg.FrameInterval)
	defer ticker.Stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	statsEvery := time.NewTicker(10 * time.Second)
	defer statsEvery.Stop()

	log.Info().Str("target", cfg.Link.TargetName).
		Uint32("gridRows", cfg.Stream.GridRows).
		Uint32("gridCols", cfg.Stream.GridCols).
		Msg("depthstreamd started")

	for {
		select {
		case <-ticker.C:
			coordinator.OnFrame(source.Next())
		case <-statsEvery.C:
			ss := coordinator.Stats()
			ls := manager.Stats()
			log.Info().
				Uint64("framesReduced", ss.FramesReduced).
				Uint64("framesDropped", ss.FramesDropped).
				Uint64("payloadsSent", ls.PayloadsSent).
				Uint64("chunksWritten", ls.ChunksWritten).
				Uint64("writeFailures", ls.WriteFailures).
				Bool("connected", coordinator.Connected()).
				Msg("pipeline stats")
		case <-sigs:
			log.Info().Msg("shutting down")
			if err := coordinator.Halt(); err != nil {
				log.Warn().Err(err).Msg("stop token not delivered")
			}
			return nil
		}
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "depthstreamd: %v\n", err)
		os.Exit(1)
	}
}
