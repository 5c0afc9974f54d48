package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"testdrive/pkg/client"
	"testdrive/pkg/config"
	kafka_config "testdrive/pkg/kafka/config"
	"testdrive/pkg/logger"
	"testdrive/pkg/timeslot"
	"testdrive/pkg/watcher"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

const ServiceName = "slot-watcher"

func main() {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "follow the slot grid of one vehicle and date",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "slot service address",
				Value:   "http://localhost:" + config.DefaultPort,
				EnvVars: []string{"SLOTS_BASE_URL"},
			},
			&cli.StringFlag{
				Name:     "resource",
				Aliases:  []string{"r"},
				Usage:    "vehicle id",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "date",
				Aliases:  []string{"d"},
				Usage:    "event date (YYYY-MM-DD)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "session id to report holds for (random when empty)",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "poll interval",
				Value: 5 * time.Second,
			},
			&cli.BoolFlag{
				Name:    "follow-changes",
				Usage:   "also refresh on the Kafka change feed (reads KAFKA_* settings)",
				EnvVars: []string{config.EnvKafkaEnabled},
			},
			&cli.StringFlag{
				Name:    "topic",
				Usage:   "slot events topic",
				Value:   config.DefaultSlotEventsTopic,
				EnvVars: []string{config.EnvSlotEventsTopic},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print snapshots as JSON lines",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   config.DefaultLogLevel,
				EnvVars: []string{config.EnvLogLevel},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	date := c.String("date")
	if !timeslot.ValidDate(date) {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	if c.Duration("interval") <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	log := logger.New(logger.Config{
		Level:   c.String("log-level"),
		Format:  logger.TEXT,
		Output:  os.Stderr,
		Service: ServiceName,
	})

	sessionID := c.String("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	slots := client.NewSlotsClient(c.String("base-url"), sessionID)

	var opts []watcher.Option
	if c.Bool("follow-changes") {
		kafkaCfg := kafka_config.FromEnv()
		if err := kafkaCfg.Validate(); err != nil {
			return fmt.Errorf("invalid Kafka configuration: %w", err)
		}
		opts = append(opts, watcher.WithFeed(watcher.NewKafkaFeed(kafkaCfg, c.String("topic"), log)))
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watcher.New(slots, c.String("resource"), date, c.Duration("interval"), log, opts...)
	emit := printSummary
	if c.Bool("json") {
		emit = printJSON
	}

	log.Info("Watching slots", "resource_id", c.String("resource"), "date", date, "session_id", sessionID)
	return w.Run(ctx, func(s watcher.Snapshot) {
		emit(c.App.Writer, s)
	})
}

func printJSON(out io.Writer, s watcher.Snapshot) {
	record := map[string]any{
		"trigger": s.Trigger,
		"at":      s.At,
		"status":  s.Status,
	}
	if s.Err != nil {
		record["error"] = s.Err.Error()
	}
	_ = json.NewEncoder(out).Encode(record)
}

func printSummary(out io.Writer, s watcher.Snapshot) {
	st := s.Status
	mine := "-"
	if st.MyHold != nil {
		mine = st.MyHold.TimeLabel
	}

	line := fmt.Sprintf("%s [%s] booked=%s held=%s mine=%s free=%s",
		s.At.Format(time.TimeOnly), s.Trigger,
		join(st.Booked), join(st.HeldByOther), mine, join(st.Free))
	if st.IsClosed() {
		line += " unavailable=" + join(st.Unavailable)
	}
	if s.Err != nil {
		line += " error=" + s.Err.Error()
	}
	fmt.Fprintln(out, line)
}

func join(labels []string) string {
	if len(labels) == 0 {
		return "-"
	}
	return strings.Join(labels, ",")
}
