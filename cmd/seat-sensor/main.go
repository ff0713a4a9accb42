// Command seat-sensor samples a seat presence input, debounces it into an
// occupied/free status and publishes status changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/seat-sensor/internal/config"
	"github.com/sweeney/seat-sensor/internal/logic"
	"github.com/sweeney/seat-sensor/internal/metrics"
	"github.com/sweeney/seat-sensor/internal/mqtt"
	"github.com/sweeney/seat-sensor/internal/sensor"
	"github.com/sweeney/seat-sensor/internal/status"
	"github.com/sweeney/seat-sensor/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.LookupEnv)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	for _, w := range cfg.Warnings() {
		log.Printf("config warning: %s", w)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config) error {
	reader, err := sensor.NewRealReader(cfg.GPIO)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer reader.Close()

	if cfg.PrintState {
		present, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Printf("seat %s: %s\n", cfg.SeatID, presenceString(present))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	publisher, err := mqtt.NewRealPublisher(ctx, mqtt.Options{
		Broker:   cfg.Broker,
		Username: cfg.Username,
		Password: cfg.Password,
		Identity: mqtt.Identity{SeatID: cfg.SeatID, Channel: cfg.Sensor.WirelessChannel},
	})
	stop()
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	startTime := time.Now()
	detector, err := logic.NewDetector(cfg.Sensor, startTime)
	if err != nil {
		return err
	}

	tracker := status.NewTracker(startTime, status.Config{
		SeatID:              cfg.SeatID,
		WirelessChannel:     cfg.Sensor.WirelessChannel,
		PollIntervalSeconds: cfg.Sensor.PollIntervalSeconds,
		FreeTimeoutSeconds:  cfg.Sensor.FreeTimeoutSeconds,
		HeartbeatSeconds:    int64(cfg.Heartbeat.Seconds()),
		Broker:              cfg.Broker,
		HTTPAddr:            cfg.HTTPAddr,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	m := metrics.New(cfg.SeatID, cfg.Sensor.WirelessChannel)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
		m.PublishError("system")
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: seat=%s channel=%d poll=%ds free-timeout=%ds broker=%s heartbeat=%v",
		cfg.SeatID, cfg.Sensor.WirelessChannel, cfg.Sensor.PollIntervalSeconds,
		cfg.Sensor.FreeTimeoutSeconds, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Sensor.PollInterval())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		reader:     reader,
		publisher:  publisher,
		mqttStatus: publisher,
		detector:   detector,
		tracker:    tracker,
		metrics:    m,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}
	return l.run(ticker.C, sigCh)
}

// loop is the sampling loop. It owns the detector; nothing else touches it.
type loop struct {
	reader     sensor.Reader
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	detector   *logic.Detector
	tracker    *status.Tracker  // may be nil
	metrics    *metrics.Metrics // may be nil
	heartbeat  time.Duration
	now        func() time.Time
}

// run samples once per tick (the first sample is taken immediately) until a
// signal arrives, then publishes SHUTDOWN.
func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	l.sample()

	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case <-tick:
			l.sample()
		}
	}
}

func (l *loop) sample() {
	t := l.now()
	present, err := l.reader.Read()
	if err != nil {
		log.Printf("sensor read error: %v", err)
		if l.tracker != nil {
			l.tracker.RecordReadError()
		}
		if l.metrics != nil {
			l.metrics.ReadError()
		}
		return
	}

	events := l.detector.Process(logic.Input{Present: present, Time: t})
	for _, event := range events {
		log.Printf("event: %s (status=%s)", event.Type, event.Status)
		if l.metrics != nil {
			l.metrics.ObserveTransition(event)
		}
		if err := l.publisher.Publish(event); err != nil {
			// Don't crash on publish failure
			log.Printf("publish error: %v", err)
			if l.metrics != nil {
				l.metrics.PublishError("event")
			}
		}
	}

	connected := l.mqttStatus != nil && l.mqttStatus.IsConnected()
	emptySince, emptyRun := l.detector.EmptySince()
	if l.tracker != nil {
		l.tracker.Update(l.detector.CurrentStatus(), emptySince, l.detector.EventCountsSnapshot())
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(connected)
		}
	}
	if l.metrics != nil {
		var emptyFor float64
		if emptyRun {
			emptyFor = t.Sub(emptySince).Seconds()
		}
		l.metrics.ObserveSample(present, l.detector.CurrentStatus(), emptyFor)
		l.metrics.SetMQTTConnected(connected)
	}

	if hb := l.detector.CheckHeartbeat(t, l.heartbeat); hb != nil {
		log.Printf("heartbeat: uptime=%v occupied=%d free=%d", hb.Uptime, hb.Counts.Occupied, hb.Counts.Free)

		hbEvent := mqtt.SystemEvent{
			Timestamp: hb.Timestamp,
			Event:     "HEARTBEAT",
		}
		if l.tracker != nil {
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				l.tracker.SetNetwork(net)
			}
			hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
		}
		if err := l.publisher.PublishSystem(hbEvent); err != nil {
			log.Printf("heartbeat publish error: %v", err)
			if l.metrics != nil {
				l.metrics.PublishError("system")
			}
		}
	}
}

func (l *loop) shutdown(s os.Signal) {
	log.Printf("received %v, shutting down", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

// Network helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func presenceString(present bool) string {
	if present {
		return "PRESENT"
	}
	return "ABSENT"
}
