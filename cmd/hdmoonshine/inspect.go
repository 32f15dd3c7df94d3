package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/gekko3d/hdmoonshine/hdhost"
	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <scene.yaml>",
	Short: "Sync a scene once and print engine resources and delegate metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	s, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer s.close()

	engine := &hdhost.Engine{}
	if err := engine.SyncAll(cmd.Context(), s.index); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if stats, ok := s.delegate.Engine().(interface{ Stats() moonshine.Stats }); ok {
		st := stats.Stats()
		fmt.Fprintln(out, "engine resources:")
		fmt.Fprintf(out, "  meshes     %d\n", st.Meshes)
		fmt.Fprintf(out, "  textures   %d\n", st.Textures)
		fmt.Fprintf(out, "  materials  %d\n", st.Materials)
		fmt.Fprintf(out, "  instances  %d\n", st.Instances)
		fmt.Fprintf(out, "  sensors    %d\n", st.Sensors)
		fmt.Fprintf(out, "  lenses     %d\n", st.Lenses)
	}
	return printMetrics(out, s)
}

func printMetrics(out io.Writer, s *session) error {
	families, err := s.delegate.Registry().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	fmt.Fprintln(out, "metrics:")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(out, "  %s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(out, "  %s count=%d sum=%g\n", name, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
