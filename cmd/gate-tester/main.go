// Command gate-tester drives a logic-gate test fixture: it exercises the
// gate sockets with every input combination, compares the observed truth
// tables against the selected device and shows the verdicts on LEDs.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/gate-tester/internal/gpio"
	"github.com/sweeney/gate-tester/internal/indicator"
	"github.com/sweeney/gate-tester/internal/irq"
	"github.com/sweeney/gate-tester/internal/mqtt"
	"github.com/sweeney/gate-tester/internal/selector"
	"github.com/sweeney/gate-tester/internal/status"
	"github.com/sweeney/gate-tester/internal/tester"
	"github.com/sweeney/gate-tester/internal/truth"
	"github.com/sweeney/gate-tester/internal/watchdog"
	"github.com/sweeney/gate-tester/internal/web"
)

type config struct {
	chip       string
	interval   time.Duration
	settle     time.Duration
	watchdog   time.Duration
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	verbose    bool
	printState bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.chip, "chip", "gpiochip0", "GPIO character device")
	flag.DurationVar(&cfg.interval, "interval", 100*time.Millisecond, "Pause between test iterations (0 to run back to back)")
	flag.DurationVar(&cfg.settle, "settle", 0, "Delay between driving gate inputs and sampling the output")
	flag.DurationVar(&cfg.watchdog, "watchdog", 5*time.Second, "Exit if an iteration takes longer than this (0 to disable)")
	flag.StringVar(&cfg.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&cfg.httpAddr, "http", "", "HTTP status address (empty to disable)")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Log every iteration, not only changes")
	flag.BoolVar(&cfg.printState, "print-state", false, "Exercise every channel once, print the observed tables and exit")

	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// validate rejects timing flags under which a healthy loop would trip the
// watchdog: it is fed once per iteration, so it must outlast the pause
// between iterations plus the settle waits of a full pass.
func (c config) validate() error {
	if c.watchdog <= 0 {
		return nil
	}
	busiest := c.interval + time.Duration(len(truth.Combinations)*gpio.NumChannels)*c.settle
	if c.watchdog <= busiest {
		return fmt.Errorf("--watchdog %v must exceed --interval plus settle time per iteration (%v)", c.watchdog, busiest)
	}
	return nil
}

func run(cfg config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	sel := selector.New()
	mask := &irq.Mask{}
	board := &irq.Slot[*gpio.Board]{}
	handler := irq.NewHandler(mask, board, sel)
	ctrl := irq.NewController(handler)

	// Edges arriving before Unmask are latched and serviced afterwards.
	hw, err := gpio.OpenReal(cfg.chip, gpio.DefaultBindings(), ctrl.Raise)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer hw.Close()
	for _, c := range hw.Board.Channels {
		c.Settle = cfg.settle
	}

	if cfg.printState {
		return printState(os.Stdout, hw.Board)
	}

	panel := indicator.New(hw.LEDs)
	defer panel.Clear()

	var publisher mqtt.Publisher = discardPublisher{}
	var mqttStatus mqtt.ConnectionStatus = discardPublisher{}
	if cfg.broker != "" {
		p := mqtt.NewRealPublisher(cfg.broker, "gate-tester")
		defer p.Close()
		publisher, mqttStatus = p, p
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:        cfg.chip,
		IntervalMs:  cfg.interval.Milliseconds(),
		SettleUs:    cfg.settle.Microseconds(),
		WatchdogMs:  cfg.watchdog.Milliseconds(),
		HeartbeatMs: cfg.heartbeat.Milliseconds(),
		Broker:      cfg.broker,
		HTTPAddr:    cfg.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker, 10*cfg.watchdog)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	// Handoff: the handler sees the board only once it is fully configured.
	irq.Publish(mask, board, hw.Board)
	ctrl.Unmask()

	var feed tester.Feeder
	if cfg.watchdog > 0 {
		wd := watchdog.New(cfg.watchdog, func() {
			log.Fatalf("watchdog: no completed iteration in %v", cfg.watchdog)
		})
		defer wd.Stop()
		feed = wd
	}
	orch := tester.New(mask, board, sel, panel, feed)

	var pace <-chan time.Time
	if cfg.interval > 0 {
		ticker := time.NewTicker(cfg.interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	obs := newObserver(publisher, mqttStatus, tracker, handler.Fired, cfg.heartbeat, cfg.verbose, time.Now)

	log.Printf("started: chip=%s interval=%v settle=%v watchdog=%v broker=%q heartbeat=%v",
		cfg.chip, cfg.interval, cfg.settle, cfg.watchdog, cfg.broker, cfg.heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	reason, err := runLoop(context.Background(), ctrl, orch, pace, obs.observe, sigCh)
	obs.shutdown(reason)
	return err
}

// runLoop runs the interrupt controller and the foreground loop until a
// signal arrives or either of them fails. It returns the shutdown reason.
func runLoop(ctx context.Context, ctrl *irq.Controller, orch *tester.Orchestrator, pace <-chan time.Time, observe func(tester.Report), sig <-chan os.Signal) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reason := "ERROR"
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			reason = signalName(s)
			cancel()
		case <-ctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		if err := ctrl.Run(ctx); err != nil {
			return fmt.Errorf("interrupt: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := orch.Run(ctx, pace, observe); err != nil {
			return fmt.Errorf("test loop: %w", err)
		}
		return nil
	})

	err := g.Wait()
	return reason, err
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// observer consumes foreground reports: it logs the diagnostic line,
// updates the status tracker and mirrors changes to MQTT.
type observer struct {
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	interrupts func() uint64
	heartbeat  time.Duration
	verbose    bool
	now        func() time.Time

	changes       *tester.Changes
	lastHeartbeat time.Time
}

func newObserver(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, interrupts func() uint64, heartbeat time.Duration, verbose bool, now func() time.Time) *observer {
	return &observer{
		publisher:     publisher,
		mqttStatus:    mqttStatus,
		tracker:       tracker,
		interrupts:    interrupts,
		heartbeat:     heartbeat,
		verbose:       verbose,
		now:           now,
		changes:       tester.NewChanges(),
		lastHeartbeat: now(),
	}
}

func (o *observer) observe(r tester.Report) {
	changed, transitions := o.changes.Process(r)
	if changed || o.verbose {
		log.Print(r.Line())
	}

	o.tracker.Update(r, o.changes.Counts())
	o.tracker.SetInterrupts(o.interrupts())
	o.tracker.SetMQTTConnected(o.mqttStatus.IsConnected())

	if changed {
		if err := o.publisher.PublishResult(r); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
	for _, t := range transitions {
		log.Printf("channel %d: %s", t.Channel, t.Type)
		if err := o.publisher.PublishTransition(t); err != nil {
			log.Printf("publish error: %v", err)
		}
	}

	o.checkHeartbeat()
}

func (o *observer) checkHeartbeat() {
	if o.heartbeat <= 0 {
		return
	}
	t := o.now()
	if t.Sub(o.lastHeartbeat) < o.heartbeat {
		return
	}
	o.lastHeartbeat = t

	if net := readNetworkInfo(); net != nil {
		o.tracker.SetNetwork(net)
	}
	snap := o.tracker.Snapshot()
	log.Printf("heartbeat: uptime=%v iterations=%d interrupts=%d",
		snap.Uptime().Truncate(time.Second), snap.Counts.Iterations, snap.Interrupts)
	if err := o.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  t,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (o *observer) shutdown(reason string) {
	o.tracker.SetMQTTConnected(o.mqttStatus.IsConnected())
	snap := o.tracker.Snapshot()
	if err := o.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  o.now(),
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	}); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

// printState exercises every channel once and prints the observed tables.
func printState(w io.Writer, board *gpio.Board) error {
	for _, c := range board.Channels {
		got, err := c.Exercise()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "channel %d: %s %s\n", c.ID, got, truth.Classify(got).Name())
	}
	return nil
}

// discardPublisher stands in when no broker is configured.
type discardPublisher struct{}

func (discardPublisher) PublishResult(tester.Report) error { return nil }
func (discardPublisher) PublishTransition(tester.Transition) error { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error { return nil }
func (discardPublisher) IsConnected() bool { return false }

// pi-helper env var names (written to /run/pi-helper.env).
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
