package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/sarchlab/vcache/datarecording"
	"github.com/sarchlab/vcache/mem/trace"
	"github.com/sarchlab/vcache/monitoring"
	"github.com/sarchlab/vcache/sim/hooking"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay an access trace.",
	Long: "`run --trace file` replays a text access trace and prints the " +
		"hit and miss statistics of every cache and the MMU.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts, err := readRunOptions(cmd)
		if err != nil {
			return err
		}

		return runTrace(ctx, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("trace", "", "Trace file to replay. Required.")
	f.String("record", "", "Record every access into this sqlite database.")
	f.Bool("monitor", false, "Serve the monitoring page while replaying.")
	f.Int("monitor-port", 0,
		"Port of the monitoring page. Overrides the monitor.port parameter.")
	f.Bool("open-browser", false, "Open the monitoring page in a browser.")
	f.Bool("log", false, "Log every access to stderr.")
	f.Bool("keep-going", false, "Continue after failed operations.")
	f.Bool("identity-map", false,
		"Map the address space onto itself and turn the MMU on.")

	_ = runCmd.MarkFlagRequired("trace")
}

type runOptions struct {
	tracePath   string
	recordPath  string
	monitor     bool
	monitorPort int
	devAssets   bool
	openBrowser bool
	logAccesses bool
	keepGoing   bool
	identityMap bool

	system *system
}

func readRunOptions(cmd *cobra.Command) (runOptions, error) {
	f := cmd.Flags()
	o := runOptions{}

	o.tracePath, _ = f.GetString("trace")
	o.recordPath, _ = f.GetString("record")
	o.monitor, _ = f.GetBool("monitor")
	o.openBrowser, _ = f.GetBool("open-browser")
	o.logAccesses, _ = f.GetBool("log")
	o.keepGoing, _ = f.GetBool("keep-going")
	o.identityMap, _ = f.GetBool("identity-map")

	c, err := loadConfig(cmd)
	if err != nil {
		return o, err
	}

	o.monitorPort = c.Monitor.Port
	if f.Changed("monitor-port") {
		o.monitorPort, _ = f.GetInt("monitor-port")
	}

	o.devAssets = c.Monitor.DevAssets

	o.system, err = buildSystem(c)

	return o, err
}

func runTrace(ctx context.Context, o runOptions, out io.Writer) error {
	ops, err := readTrace(o.tracePath)
	if err != nil {
		return err
	}

	comp := o.system.comp

	if o.identityMap {
		if err := o.system.identityMap(ctx); err != nil {
			return err
		}
	}

	counter := hooking.NewCountingHook()
	comp.AcceptHook(counter)

	if o.logAccesses {
		comp.AcceptHook(hooking.NewLogHook(log.New(os.Stderr, "", 0)))
	}

	runID := xid.New().String()

	if o.recordPath != "" {
		accessRecorder, finish := startRecording(o, runID)
		defer finish()

		comp.AcceptHook(accessRecorder)
	}

	replayer := trace.NewReplayer(comp, nil)
	replayer.KeepGoing = o.keepGoing

	if o.monitor {
		bar, err := startMonitor(o, uint64(len(ops)))
		if err != nil {
			return err
		}

		bar.IncrementInProgress(uint64(len(ops)))
		replayer.OnOutcome = func(trace.Outcome) {
			bar.MoveInProgressToFinished(1)
		}
	}

	summary, err := replayer.Replay(ctx, ops)

	fmt.Fprintf(out, "Run %s: %d operations, %d errors\n",
		runID, summary.Ops, summary.Errors)
	printStats(out, counter, comp.Hookables())

	if err != nil {
		return err
	}

	if o.monitor {
		fmt.Fprintln(os.Stderr, "Replay done. Press Ctrl-C to exit.")
		<-ctx.Done()
	}

	return nil
}

func readTrace(path string) ([]trace.Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return trace.Parse(f)
}

// startRecording records the run and returns the hook that records the
// accesses, together with the function that completes the database.
func startRecording(
	o runOptions,
	runID string,
) (*datarecording.AccessRecorder, func()) {
	rec := datarecording.New(o.recordPath)

	exec := datarecording.NewExecRecorder(rec)
	exec.Start(
		datarecording.ExecInfo{Property: "Run ID", Value: runID},
		datarecording.ExecInfo{Property: "Trace", Value: o.tracePath},
	)

	finish := func() {
		exec.End()

		if err := rec.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close the recording: %v\n", err)
		}
	}

	return datarecording.NewAccessRecorder(rec), finish
}

func startMonitor(
	o runOptions,
	total uint64,
) (*monitoring.ProgressBar, error) {
	m := monitoring.NewMonitor().WithDevAssets(o.devAssets)
	if o.monitorPort != 0 {
		m.WithPortNumber(o.monitorPort)
	}
	for _, h := range o.system.comp.Hookables() {
		m.RegisterComponent(h)
	}

	bar := m.CreateProgressBar("Replay", total)

	port, err := m.StartServer()
	if err != nil {
		return nil, err
	}

	if o.openBrowser {
		url := fmt.Sprintf("http://localhost:%d", port)
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", url, err)
		}
	}

	return bar, nil
}

func printStats(
	out io.Writer,
	counter *hooking.CountingHook,
	components []hooking.Hookable,
) {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "component\treads\thits\tmisses\twrites\twrite hits\t"+
		"bypass\ttlb hits\ttlb misses\tfaults\t")

	for _, c := range components {
		s := counter.Stats(c.Name())
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			c.Name(), s.Reads, s.ReadHits, s.ReadMisses, s.Writes,
			s.WriteHits, s.Bypasses, s.TLBHits, s.TLBMisses, s.Faults)
	}

	w.Flush()
}
