package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cyp0633/caldora-events/davclient"
	"github.com/cyp0633/caldora-events/internal/config"
	"github.com/emersion/go-ical"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const separator = "------------------"

type options struct {
	configPath  string
	start       string
	end         string
	summary     bool
	logLevel    string
	metricsFile string
	concurrency int
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "caldav-events",
		Short: "List the events of every calendar on a CalDAV account",
		Long: `caldav-events discovers the account's principal, calendar home and
calendars, then prints every VEVENT that overlaps the given time range.
Times use the UTC basic format, e.g. 20201102T000000Z.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("concurrency") {
				opts.concurrency = 0
			}
			return run(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")
	flags.StringVar(&opts.start, "start", "", "start of the time range, e.g. 20201102T000000Z")
	flags.StringVar(&opts.end, "end", "", "end of the time range, exclusive")
	flags.BoolVar(&opts.summary, "summary", false, "print DTSTART and SUMMARY instead of the raw events")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write request metrics in Prometheus text format to this file")
	flags.IntVar(&opts.concurrency, "concurrency", 1, "calendars queried at once; overrides the config")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	cfg, err := config.LoadFromFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	levelName := cfg.Logging.Level
	if opts.logLevel != "" {
		levelName = opts.logLevel
	}
	level, err := config.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	clientCfg := davclient.DefaultConfig()
	clientCfg.URL = cfg.Server.URL
	clientCfg.Username = cfg.Server.Username
	clientCfg.Password = cfg.Server.Password
	clientCfg.Timeout = cfg.Server.Timeout
	clientCfg.ServiceDiscovery = cfg.Server.ServiceDiscovery
	clientCfg.Concurrency = cfg.Query.Concurrency
	if opts.concurrency > 0 {
		clientCfg.Concurrency = opts.concurrency
	}
	clientCfg.Logger = logger

	var reg *prometheus.Registry
	if opts.metricsFile != "" {
		reg = prometheus.NewRegistry()
		clientCfg.Registerer = reg
	}

	client, err := davclient.New(clientCfg)
	if err != nil {
		return err
	}

	started := time.Now()
	events, fetchErr := client.FetchEvents(ctx, opts.start, opts.end)
	logger.Info("query finished",
		"events", len(events),
		"duration", time.Since(started),
		"ok", fetchErr == nil)

	if reg != nil {
		if err := prometheus.WriteToTextfile(opts.metricsFile, reg); err != nil {
			logger.Warn("failed to write metrics", "file", opts.metricsFile, "error", err)
		}
	}
	if fetchErr != nil {
		return fetchErr
	}

	var out bytes.Buffer
	if opts.summary {
		parsed, err := davclient.ParseEvents(events)
		if err != nil {
			return err
		}
		writeSummary(&out, parsed)
	} else {
		writeEvents(&out, events)
	}
	_, err = out.WriteTo(stdout)
	return err
}

// writeEvents prints each event after a separator line, one line of
// iCalendar text per output line.
func writeEvents(w io.Writer, events []string) {
	for _, event := range events {
		fmt.Fprintln(w, separator)
		for _, line := range strings.Split(strings.TrimRight(event, "\r\n"), "\n") {
			fmt.Fprintln(w, strings.TrimRight(line, "\r"))
		}
	}
}

func writeSummary(w io.Writer, events []ical.Event) {
	for _, event := range events {
		start := ""
		if t, err := event.DateTimeStart(time.UTC); err == nil {
			start = t.Format(time.RFC3339)
		} else if prop := event.Props.Get(ical.PropDateTimeStart); prop != nil {
			start = prop.Value
		}
		summary, _ := event.Props.Text(ical.PropSummary)
		fmt.Fprintf(w, "%s  %s\n", start, summary)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
