// gate is a line-oriented scanner: every line read from stdin is one scanned
// payload, every line written to stdout is the rendered verdict. Type
// "recent" to list the last results.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"event-ticket-gate/internal/gate"
	"event-ticket-gate/internal/qrcode"
	"event-ticket-gate/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		serverURL string
		token     string
		gateID    string
		eventFlag string
		qrSecret  string
		previous  []string
		timeout   time.Duration
		retries   int
		history   int
		logLevel  string
	)

	flagSet := pflag.NewFlagSet("gate", pflag.ContinueOnError)
	flagSet.StringVar(&serverURL, "server", envOr("GATE_SERVER", "http://localhost:8080"), "validation API base URL")
	flagSet.StringVar(&token, "token", os.Getenv("GATE_TOKEN"), "bearer token with the gate role")
	flagSet.StringVar(&gateID, "gate-id", envOr("GATE_ID", ""), "identifier recorded on every scan")
	flagSet.StringVar(&eventFlag, "event-id", os.Getenv("GATE_EVENT_ID"), "only admit tickets for this event")
	flagSet.StringVar(&qrSecret, "qr-secret", os.Getenv("QR_SECRET"), "secret used to verify payload signatures")
	flagSet.StringSliceVar(&previous, "qr-previous-secret", nil, "retired secrets still accepted (repeatable)")
	flagSet.DurationVar(&timeout, "timeout", 3*time.Second, "per-request timeout")
	flagSet.IntVar(&retries, "retries", 1, "retries on connection failure")
	flagSet.IntVar(&history, "history", 50, "results kept for review")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := logger.Configure(logger.Options{Level: logLevel, Console: true}); err != nil {
		return err
	}
	defer logger.L.Sync()

	if token == "" {
		return errors.New("--token is required")
	}
	if gateID == "" {
		host, _ := os.Hostname()
		gateID = "gate-" + host
	}

	codec, err := qrcode.NewCodec(qrSecret, previous...)
	if err != nil {
		return err
	}

	cfg := gate.Config{
		GateID:      gateID,
		Retries:     retries,
		HistorySize: history,
	}
	if eventFlag != "" {
		eventID, err := uuid.Parse(eventFlag)
		if err != nil {
			return fmt.Errorf("invalid --event-id: %w", err)
		}
		cfg.EventID = &eventID
	}

	client := gate.NewClient(codec, gate.NewHTTPValidator(serverURL, token, timeout), cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return scanLoop(ctx, client, bufio.NewScanner(os.Stdin))
}

func scanLoop(ctx context.Context, client *gate.Client, in *bufio.Scanner) error {
	for in.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "recent":
			for _, r := range client.Recent() {
				fmt.Printf("%s  %s  %s\n", r.ScannedAt.Format(time.TimeOnly), r.TicketID, r)
			}
			continue
		}

		fmt.Println(client.Scan(ctx, line))
	}
	return in.Err()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
