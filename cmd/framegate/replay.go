package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/framegate/framegate"
	"github.com/framegate/framegate/probe"
	"github.com/framegate/framegate/settings"
)

var tracePath string

var replayCmd = &cobra.Command{
	Use:   "replay [entries...]",
	Short: "Feed a trace of samples through the governor and print each decision",
	Long: `Feed a trace of samples through the governor and print each decision.

Entries are given as arguments or read from --trace, one per line. An entry is
an FPS value (60), an update delta time in seconds (dt:0.05), or - for a host
that reports nothing. Lines starting with # are ignored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		hosts, err := replayHosts(args)
		if err != nil {
			return err
		}
		return replay(cmd.OutOrStdout(), s, hosts)
	},
}

func init() {
	replayCmd.Flags().StringVar(&tracePath, "trace", "", "trace file, one entry per line (- for stdin)")
}

func replayHosts(args []string) ([]*simHost, error) {
	if tracePath == "" {
		return readTrace(strings.NewReader(strings.Join(args, "\n")))
	}
	if tracePath == "-" {
		return readTrace(os.Stdin)
	}
	f, err := os.Open(tracePath)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	return readTrace(f)
}

func replay(w io.Writer, s settings.Settings, hosts []*simHost) error {
	p := probe.Builder(probe.DefaultSources()...).
		OnSourceFailed(framegate.LogSourceFailed(logger, time.Minute)).
		Build()
	store := settings.NewStore(s)
	governor := framegate.Builder(p).
		WithConfigProvider(store).
		WithLogger(logger).
		Build()

	if _, err := fmt.Fprintln(w, "tick\tsample\tsource\tdecision"); err != nil {
		return err
	}
	for i, host := range hosts {
		result := p.Resolve(host)
		decision := "run"
		if !governor.Allow(host) {
			decision = "skip"
		}
		source := result.Source
		if result.Defaulted {
			source = "default"
		}
		if _, err := fmt.Fprintf(w, "%d\t%.2f\t%s\t%s\n", i+1, result.Value, source, decision); err != nil {
			return err
		}
	}

	m := governor.Gate().Metrics()
	logger.Info("replay complete",
		"ticks", len(hosts),
		"skipped", governor.Skipped(),
		"transitions", m.Transitions(),
		"state", governor.Gate().State().String())
	return nil
}
