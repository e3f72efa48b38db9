package cmd

import (
	"fmt"
	"strings"

	"container-monitor/application/monitor"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
)

// containers command flags
var containersFilter string

var containersCmd = &cobra.Command{
	Use:   "containers",
	Short: "Sample every container once and print the result",
	Long: `Run one sampling cycle and print name, image, state and memory
usage of every container. Nothing is written to the sinks.`,
	Example: `  container-monitor containers
  container-monitor containers --filter 'image contains "postgres"'`,
	Aliases: []string{"ps"},
	Args:    cobra.NoArgs,
	RunE:    runContainers,
}

func init() {
	containersCmd.Flags().StringVarP(&containersFilter, "filter", "f", "",
		"Container filter expression over id, name, image, state and status")
}

func runContainers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("filter") {
		cfg.ContainerFilter = containersFilter
	}

	filter, err := monitor.CompileFilter(cfg.ContainerFilter)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	m := monitor.New(newDockerClient(cfg, logger), monitor.MultiSink{}, logger, clock.New(), monitor.Options{Filter: filter})

	samples, err := m.Sample(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-24s %-32s %-10s %12s\n", "NAME", "IMAGE", "STATE", "MEMORY")
	fmt.Fprintln(out, strings.Repeat("-", 81))
	for _, s := range samples {
		fmt.Fprintf(out, "%-24s %-32s %-10s %12s\n",
			s.Container.Name(), s.Container.Image, s.Container.State, formatBytes(s.Stats.MemoryStats.Usage))
	}
	fmt.Fprintf(out, "\n%d container(s)\n", len(samples))

	return nil
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
