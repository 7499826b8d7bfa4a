package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/mountref/cmd/mountsim/internal/scenario"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario",
		Long: `Replay the mount passes of a scenario file and print the result.

Usage:
  mountsim run feed.yaml
  mountsim run feed.yaml --output text --trace`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runScenario(c, opts, args[0])
		},
	}
	c.Flags().String("session", "", "Session id (UUID); generated when empty")
	c.Flags().StringP("output", "o", "yaml", "Output format: yaml, text")
	return c
}

func runScenario(c *cobra.Command, opts *globalOptions, path string) error {
	output, _ := c.Flags().GetString("output")
	if output != "yaml" && output != "text" {
		return fmt.Errorf("invalid output format %q: must be 'yaml' or 'text'", output)
	}
	var session uuid.UUID
	if raw, _ := c.Flags().GetString("session"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", raw, err)
		}
		session = id
	}

	res, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := opts.newLogger(c, res)
	if err != nil {
		return err
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	result, runErr := scenario.NewRunner(res, logger, session).Run(sc)
	if result != nil {
		if err := writeResult(c.OutOrStdout(), output, result); err != nil {
			return err
		}
	}
	return runErr
}

func writeResult(w io.Writer, format string, res *scenario.Result) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "session %s (%s)\n", res.Session, res.Name)
	for _, st := range res.Steps {
		fmt.Fprintf(w, "pass %d %-6s visible=%s mounted=%v\n", st.Pass, st.Op, st.Visible, st.Mounted)
		for _, h := range st.Host {
			fmt.Fprintf(w, "  host   %s\n", h)
		}
		for _, e := range st.Events {
			fmt.Fprintf(w, "  event  %s\n", e)
		}
		if len(st.Disappearing) > 0 {
			fmt.Fprintf(w, "  disappearing %v\n", st.Disappearing)
		}
	}
	if len(res.Trace) > 0 {
		fmt.Fprintf(w, "trace (%d sections)\n  %s\n", len(res.Trace), strings.Join(res.Trace, "\n  "))
	}
	return nil
}
