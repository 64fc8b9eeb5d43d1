package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/PratikDhanave/capture-client/internal/capture"
	"github.com/PratikDhanave/capture-client/internal/config"
	"github.com/PratikDhanave/capture-client/internal/logger"
	"github.com/PratikDhanave/capture-client/internal/models"
	"github.com/PratikDhanave/capture-client/internal/sink"
)

// globals shared by every subcommand.
type globals struct {
	cfgFile    string
	distinctID string
	out        io.Writer
}

func (g *globals) resolveDistinctID() string {
	if g.distinctID != "" {
		return g.distinctID
	}
	return "capture-cli-" + uuid.New().String()
}

// send loads the configuration and posts p, printing the decoded response.
func (g *globals) send(ctx context.Context, p models.Payload) error {
	cfg, err := config.Load(g.cfgFile)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)

	resp, err := capture.NewClient(cfg).Capture(ctx, p)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(resp.Body, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode response")
	}
	_, err = fmt.Fprintln(g.out, string(b))
	return err
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globals{out: out}

	root := &cobra.Command{
		Use:           "capture",
		Short:         "capture sends example events to a PostHog-compatible capture API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "YAML config file (environment variables take precedence)")
	root.PersistentFlags().StringVar(&g.distinctID, "distinct-id", "", "distinct id to send events as (default capture-cli-<uuid>)")

	root.AddCommand(
		newEventCmd(g),
		newBatchCmd(g),
		newAliasCmd(g),
		newIdentifyCmd(g),
		newExceptionCmd(g),
		newTimestampedCmd(g),
		newSinkCmd(),
	)
	return root
}

func newEventCmd(g *globals) *cobra.Command {
	var event string
	var props []string

	cmd := &cobra.Command{
		Use:   "event",
		Short: "Capture a single event",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProps(props)
			if err != nil {
				return err
			}
			return g.send(cmd.Context(), models.BuildCaptureEvent(g.resolveDistinctID(), event, p))
		},
	}
	cmd.Flags().StringVar(&event, "event", "request", "event name")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "event property as key=value (repeatable)")
	return cmd
}

func newBatchCmd(g *globals) *cobra.Command {
	var event string
	var count int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Capture several events in one batch request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 0 {
				return errors.New("--count must not be negative")
			}
			distinctID := g.resolveDistinctID()
			items := make([]models.BatchItem, count)
			for i := range items {
				items[i] = models.BatchItem{
					Event: event,
					Properties: models.Properties{
						"distinct_id":     distinctID,
						"number_in_batch": i + 1,
					},
				}
			}
			return g.send(cmd.Context(), models.BuildBatch(items))
		},
	}
	cmd.Flags().StringVar(&event, "event", "batched_event", "event name for every entry")
	cmd.Flags().IntVar(&count, "count", 2, "number of events in the batch")
	return cmd
}

func newAliasCmd(g *globals) *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Link an alias to the distinct id",
		RunE: func(cmd *cobra.Command, args []string) error {
			distinctID := g.resolveDistinctID()
			a := alias
			if a == "" {
				a = distinctID + "-alias"
			}
			return g.send(cmd.Context(), models.BuildAlias(distinctID, a))
		},
	}
	cmd.Flags().StringVar(&alias, "alias", "", "alias to link (default <distinct-id>-alias)")
	return cmd
}

func newIdentifyCmd(g *globals) *cobra.Command {
	var set []string

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Set person properties on the distinct id",
		RunE: func(cmd *cobra.Command, args []string) error {
			distinctID := g.resolveDistinctID()
			props, err := parseProps(set)
			if err != nil {
				return err
			}
			if len(props) == 0 {
				props = models.Properties{
					"email":   distinctID + "@example.com",
					"is_cool": false,
				}
			}
			return g.send(cmd.Context(), models.BuildIdentify(distinctID, props))
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "person property as key=value (repeatable)")
	return cmd
}

// demoFrames is the stack attached to the example exception.
var demoFrames = []models.StackFrame{
	{
		Platform: "custom", Lang: "go", Function: "error_event_go", Filename: "commands.go",
		Lineno: 15, Colno: 1, Module: "exception_handler", Resolved: true, InApp: true,
	},
	{
		Platform: "custom", Lang: "go", Function: "simulateError", Filename: "error_simulator.go",
		Lineno: 8, Colno: 5, Module: "testing", Resolved: true, InApp: true,
	},
	{
		Platform: "custom", Lang: "go", Function: "main", Filename: "main.go",
		Lineno: 42, Colno: 12, Module: "application", Resolved: false, InApp: false,
	},
}

func newExceptionCmd(g *globals) *cobra.Command {
	var exc models.ExceptionInput

	cmd := &cobra.Command{
		Use:   "exception",
		Short: "Capture a handled exception with a stack trace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.send(cmd.Context(), models.BuildException(g.resolveDistinctID(), exc, demoFrames))
		},
	}
	cmd.Flags().StringVar(&exc.Type, "type", "Error", "exception type")
	cmd.Flags().StringVar(&exc.Value, "value", "error_event_go: This is a simulated error for testing", "exception message")
	return cmd
}

func newTimestampedCmd(g *globals) *cobra.Command {
	var event, timestamp string
	var props []string

	cmd := &cobra.Command{
		Use:   "timestamped",
		Short: "Capture an event with an explicit timestamp",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := time.Now()
			if timestamp != "" {
				var err error
				if ts, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
					return errors.Wrap(err, "--timestamp must be RFC3339")
				}
			}
			p, err := parseProps(props)
			if err != nil {
				return err
			}
			if len(p) == 0 {
				p = models.Properties{"request_size": "big", "api_request": true}
			}
			return g.send(cmd.Context(), models.BuildTimestampedCapture(g.resolveDistinctID(), event, p, ts))
		},
	}
	cmd.Flags().StringVar(&event, "event", "big_request", "event name")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "event time in RFC3339 (default now)")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "event property as key=value (repeatable)")
	return cmd
}

func newSinkCmd() *cobra.Command {
	var addr string
	var keys []string

	cmd := &cobra.Command{
		Use:   "sink",
		Short: "Run a local recording endpoint for dry runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.GetLogger()
			router := sink.NewRouter(sink.NewRecorder(), keys, log)

			log.Infof("sink listening on %s", addr)
			return router.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringArrayVar(&keys, "api-key", nil, "accepted api_key (repeatable, default any)")
	return cmd
}

// parseProps turns key=value pairs into properties. Values that are JSON
// literals (numbers, booleans, null, quoted strings, objects) keep their
// type; anything else is a string.
func parseProps(pairs []string) (models.Properties, error) {
	props := models.Properties{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf("property %q must be key=value", pair)
		}

		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		props[key] = v
	}
	return props, nil
}
