package cmd

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sarchlab/desim/examples/bank"
	"github.com/sarchlab/desim/model"
	"github.com/sarchlab/desim/random"
	"github.com/sarchlab/desim/sim"
	"github.com/sarchlab/desim/simulation"
	"github.com/sarchlab/desim/tracing"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bank model.",
	Long: "`run` simulates a bank where customers with exponential " +
		"inter-arrival and service times wait in line for tellers.",
	RunE: runBank,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("config", "", "Experiment yaml file")
	f.Int("replications", 1, "Number of replications")
	f.Float64("length", 480, "Length of each replication")
	f.Float64("warmup", 0, "Warm-up length of each replication")
	f.Float64("interarrival", 1.0, "Mean time between two customers")
	f.Float64("service", 0.8, "Mean service time")
	f.Int("tellers", 1, "Number of tellers")
	f.Int("seed-advances", 0,
		"Number of substreams to skip before the first replication")
	f.Bool("antithetic", false, "Pair replications with antithetic ones")
	f.String("record", "", "Record the results to <path>.sqlite3")
	f.Bool("monitor", false, "Serve the monitoring API while running")
	f.Int("monitor-port", 0, "Port of the monitoring API")
	f.Bool("trace", false, "Log every executed event, needs --log-level debug")
	f.Bool("trace-processes", false,
		"Record every customer process, needs --record")
}

func runBank(cmd *cobra.Command, _ []string) error {
	experiment, err := experimentFromFlags(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	interArrival, _ := f.GetFloat64("interarrival")
	service, _ := f.GetFloat64("service")
	tellers, _ := f.GetInt("tellers")

	executive := sim.NewExecutive()
	if trace, _ := f.GetBool("trace"); trace {
		executive.AcceptHook(sim.NewEventLogger(logrus.StandardLogger()))
	}

	streams := random.NewStreamProvider()
	m := model.NewModel("Town", executive)
	b := bank.MakeBuilder().
		WithInterArrival(random.NewExponential(
			interArrival, streams.Stream("arrivals"))).
		WithServiceTime(random.NewExponential(
			service, streams.Stream("service"))).
		WithNumTellers(tellers).
		Build("Bank", m)

	builder := simulation.MakeBuilder().
		WithModel(m).
		WithExperiment(experiment).
		WithStreams(streams)

	if path, _ := f.GetString("record"); path != "" {
		builder = builder.WithDataRecorder(path)
	}

	if monitor, _ := f.GetBool("monitor"); monitor {
		port, _ := f.GetInt("monitor-port")
		builder = builder.WithMonitorPort(port)
	} else {
		builder = builder.WithoutMonitoring()
	}

	s := builder.Build()
	defer s.Terminate()

	if traceProcesses, _ := f.GetBool("trace-processes"); traceProcesses {
		if s.DataRecorder() == nil {
			return errors.New("--trace-processes needs --record")
		}

		tracer := tracing.NewDBTracer(m, s.DataRecorder())
		defer tracer.Terminate()
		b.AcceptProcessHook(tracer)
	}

	err = s.Run()
	printSummary(cmd.OutOrStdout(), s, b)

	return err
}

// experimentFromFlags reads the experiment file if one is given. Flags set on
// the command line override the file.
func experimentFromFlags(cmd *cobra.Command) (simulation.Experiment, error) {
	f := cmd.Flags()

	e := simulation.DefaultExperiment()
	path, _ := f.GetString("config")
	if path != "" {
		var err error

		e, err = simulation.LoadExperiment(path)
		if err != nil {
			return e, err
		}
	}

	use := func(name string) bool {
		return path == "" || f.Changed(name)
	}

	e.Name = "Bank"
	if use("replications") {
		e.NumReplications, _ = f.GetInt("replications")
	}
	if use("length") {
		e.ReplicationLength, _ = f.GetFloat64("length")
	}
	if use("warmup") {
		e.WarmUpLength, _ = f.GetFloat64("warmup")
	}
	if use("seed-advances") {
		e.NumStreamAdvances, _ = f.GetInt("seed-advances")
	}
	if use("antithetic") {
		e.Antithetic, _ = f.GetBool("antithetic")
	}

	return e, e.Validate()
}

func printSummary(w io.Writer, s *simulation.Simulation, b *bank.Bank) {
	fmt.Fprintf(w, "%-12s %-16s %12s %12s\n",
		"Replication", "End Reason", "End Time", "Events")

	for _, r := range s.Results() {
		fmt.Fprintf(w, "%-12d %-16s %12.4f %12d\n",
			r.Number, r.EndReason, r.EndTime, r.EventsExecuted)
	}

	fmt.Fprintf(w, "\n%-20s %12s\n", "Response", "Average")
	fmt.Fprintf(w, "%-20s %12.4f\n", "Served",
		average(b.Served.ReplicationTotals()))
	fmt.Fprintf(w, "%-20s %12.4f\n", "Waiting Time",
		average(b.WaitingTime.ReplicationAverages()))
	fmt.Fprintf(w, "%-20s %12.4f\n", "Time In System",
		average(b.TimeInSystem.ReplicationAverages()))
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
