package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/teleop/internal/config"
	"github.com/san-kum/teleop/internal/control"
	"github.com/san-kum/teleop/internal/storage"
)

type options struct {
	dataDir    string
	configFile string
	preset     string
	linear     float64
	angular    float64
	gravity    float64
	headless   bool
	script     string
	record     bool
	telemetry  string
	logLevel   string
	logFile    string
}

// main runs the teleop demo when no subcommand is given. Any returned
// error exits with status 1.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "teleop",
		Short:         "drive a robot around a simulated world from the keyboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeleop(cmd, opts)
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data", ".teleop", "session recording directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the teleop demo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeleop(cmd, opts)
		},
	}
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		addRunFlags(c, opts)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSessions(cmd, opts)
		},
	}

	plotCmd := &cobra.Command{
		Use:   "plot [session_id]",
		Short: "plot a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return plotSession(cmd, opts, args[0])
		},
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [session_id]",
		Short: "write a recorded session's poses as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(opts.dataDir).ExportCSV(args[0], cmd.OutOrStdout())
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "presets:")
			for _, p := range config.ListPresets() {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return nil
		},
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "show the key bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showKeys(cmd, opts)
		},
	}
	keysCmd.Flags().StringVar(&opts.configFile, "config", "", "config file path (yaml)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, presetsCmd, keysCmd)
	return rootCmd
}

func addRunFlags(c *cobra.Command, opts *options) {
	f := c.Flags()
	f.StringVar(&opts.configFile, "config", "", "config file path (yaml)")
	f.StringVar(&opts.preset, "preset", "", "apply a named preset")
	f.Float64Var(&opts.linear, "linear", config.DefaultLinear, "linear speed (m/s)")
	f.Float64Var(&opts.angular, "angular", config.DefaultAngular, "angular speed (rad/s)")
	f.Float64Var(&opts.gravity, "gravity", config.DefaultGravity, "gravity magnitude (m/s²)")
	f.BoolVar(&opts.headless, "headless", false, "run without the terminal UI")
	f.StringVar(&opts.script, "script", "", "replay key presses from a yaml script")
	f.BoolVar(&opts.record, "record", false, "record the session")
	f.StringVar(&opts.telemetry, "telemetry", "", "websocket listen address, e.g. :9003")
	f.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error, silent)")
	f.StringVar(&opts.logFile, "log-file", "", "write logs to a file")
}

// resolveConfig layers defaults, the config file, the preset and any flag
// the user set explicitly.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if opts.preset != "" {
		apply, ok := config.Presets[opts.preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset: %s", opts.preset)
		}
		apply(cfg)
	}

	flags := cmd.Flags()
	if flags.Changed("linear") {
		cfg.Speeds.Linear = opts.linear
	}
	if flags.Changed("angular") {
		cfg.Speeds.Angular = opts.angular
	}
	if flags.Changed("gravity") {
		cfg.World.Gravity = opts.gravity
	}
	if flags.Changed("telemetry") {
		cfg.Telemetry.Addr = opts.telemetry
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	return cfg, cfg.Validate()
}

func listSessions(cmd *cobra.Command, opts *options) error {
	sessions, err := storage.New(opts.dataDir).List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "no sessions found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROBOT\tTIME\tDURATION\tTICKS\tEXIT\tDISTANCE")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%d\t%s\t%.2fm\n",
			s.ID,
			s.Robot,
			s.Timestamp.Format("2006-01-02 15:04:05"),
			s.Duration,
			s.Ticks,
			s.Exit,
			s.Metrics["distance"],
		)
	}
	return w.Flush()
}

func plotSession(cmd *cobra.Command, opts *options, id string) error {
	st := storage.New(opts.dataDir)
	meta, err := st.Load(id)
	if err != nil {
		return err
	}
	poses, err := st.LoadPoses(id)
	if err != nil {
		return err
	}
	if len(poses) == 0 {
		return fmt.Errorf("no data to plot")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session: %s\n", meta.ID)
	fmt.Fprintf(out, "robot: %s\n", meta.Robot)
	fmt.Fprintf(out, "samples: %d\n\n", len(poses))

	series := []struct {
		caption string
		value   func(storage.PoseRecord) float64
	}{
		{"x (m)", func(p storage.PoseRecord) float64 { return p.Pose.Position.X }},
		{"y (m)", func(p storage.PoseRecord) float64 { return p.Pose.Position.Y }},
		{"yaw (rad)", func(p storage.PoseRecord) float64 { return p.Pose.Orientation.Yaw() }},
	}
	for _, s := range series {
		data := make([]float64, len(poses))
		for i, p := range poses {
			data[i] = s.value(p)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}
	return nil
}

func showKeys(cmd *cobra.Command, opts *options) error {
	cfg := config.DefaultConfig()
	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	keymap, err := control.DefaultKeymap().With(cfg.Keymap)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, keymap.Instructions())
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTION\tKEYS")
	for _, a := range []control.Action{control.Forward, control.Backward, control.TurnLeft, control.TurnRight, control.Stop, control.Reset, control.Quit} {
		keys := keymap.Keys(a)
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = string(k)
		}
		fmt.Fprintf(w, "%s\t%v\n", a, names)
	}
	return w.Flush()
}
