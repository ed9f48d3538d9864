package simulation

import (
	"fmt"
	"time"

	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/model"
	"github.com/sarchlab/desim/monitoring"
	"github.com/sarchlab/desim/random"
	"github.com/sarchlab/desim/sim"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle state of a Simulation.
type State int

// Simulation states.
const (
	StateCreated State = iota
	StateRunning
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateEnded:
		return "Ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ReplicationResult summarizes how a replication ended.
type ReplicationResult struct {
	Number         int
	EndReason      string
	EndTime        float64
	EventsExecuted uint64
	WallTime       float64
}

// experimentRecord is the flat form of an Experiment stored by the data
// recorder.
type experimentRecord struct {
	ID                  string
	Name                string
	NumReplications     int
	ReplicationLength   float64
	WarmUpLength        float64
	TimedUpdateInterval float64
	Antithetic          bool
}

const (
	replicationTable = "replication"
	experimentTable  = "experiment"
)

// A Simulation runs the replications of an experiment on a model.
type Simulation struct {
	id         string
	model      *model.Model
	executive  *sim.Executive
	experiment Experiment
	streams    *random.StreamProvider

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	progressBar  *monitoring.ProgressBar

	state          State
	replication    int
	stopExperiment bool
	results        []ReplicationResult
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Model returns the simulated model.
func (s *Simulation) Model() *model.Model {
	return s.model
}

// Executive returns the executive that runs the model.
func (s *Simulation) Executive() *sim.Executive {
	return s.executive
}

// Experiment returns the settings of the replications.
func (s *Simulation) Experiment() Experiment {
	return s.experiment
}

// Streams returns the random streams managed by the simulation. It may be
// nil.
func (s *Simulation) Streams() *random.StreamProvider {
	return s.streams
}

// DataRecorder returns the data recorder. It is nil unless recording is on.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor. It is nil unless monitoring is on.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// State returns the lifecycle state of the simulation.
func (s *Simulation) State() State {
	return s.state
}

// NumReplicationsCompleted returns how many replications have been run.
func (s *Simulation) NumReplicationsCompleted() int {
	return len(s.results)
}

// Results returns the results of the replications run so far.
func (s *Simulation) Results() []ReplicationResult {
	return append([]ReplicationResult(nil), s.results...)
}

// HasMoreReplications tells if the experiment has replications left to run.
func (s *Simulation) HasMoreReplications() bool {
	return s.state != StateEnded &&
		!s.stopExperiment &&
		s.replication < s.experiment.NumReplications
}

// Run runs all the remaining replications of the experiment.
func (s *Simulation) Run() error {
	if s.state == StateEnded {
		return sim.NewIllegalStateError("Run", s.state)
	}

	defer s.releaseOnPanic()

	s.begin()

	for s.HasMoreReplications() {
		err := s.runReplication()
		if err != nil {
			s.finish()
			return err
		}
	}

	s.finish()

	return nil
}

// RunNextReplication runs a single replication. It returns false once the
// experiment has ended.
func (s *Simulation) RunNextReplication() (bool, error) {
	if s.state == StateEnded {
		return false, sim.NewIllegalStateError("RunNextReplication", s.state)
	}

	defer s.releaseOnPanic()

	s.begin()

	err := s.runReplication()
	if err != nil {
		s.finish()
		return false, err
	}

	if !s.HasMoreReplications() {
		s.finish()
		return false, nil
	}

	return true, nil
}

// Stop ends the replication being run. The next replication, if any, still
// runs.
func (s *Simulation) Stop() {
	s.executive.Stop()
}

// StopExperiment makes the experiment end after the replication being run.
func (s *Simulation) StopExperiment() {
	s.stopExperiment = true
}

// Terminate releases the data recorder and the monitoring server.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil {
		err := s.dataRecorder.Close()
		if err != nil {
			logrus.Errorf("failed to close data recorder: %v", err)
		}
	}

	if s.monitor != nil {
		s.monitor.StopServer()
	}
}

func (s *Simulation) begin() {
	if s.state != StateCreated {
		return
	}

	s.state = StateRunning

	logrus.Infof("experiment %s started, %d replications",
		s.experiment.Name, s.experiment.NumReplications)

	if s.dataRecorder != nil {
		s.dataRecorder.CreateTable(experimentTable, experimentRecord{})
		s.dataRecorder.InsertData(experimentTable, experimentRecord{
			ID:                  s.id,
			Name:                s.experiment.Name,
			NumReplications:     s.experiment.NumReplications,
			ReplicationLength:   s.experiment.ReplicationLength,
			WarmUpLength:        s.experiment.WarmUpLength,
			TimedUpdateInterval: s.experiment.TimedUpdateInterval,
			Antithetic:          s.experiment.Antithetic,
		})
		s.dataRecorder.CreateTable(replicationTable, ReplicationResult{})
	}

	if s.monitor != nil {
		s.progressBar = s.monitor.CreateProgressBar(
			s.experiment.Name, uint64(s.experiment.NumReplications))
	}

	s.model.SetRunning(true)
	s.model.Propagate(model.ObserverStateBeforeExperiment)
}

func (s *Simulation) finish() {
	s.model.Propagate(model.ObserverStateAfterExperiment)
	s.model.SetRunning(false)
	s.state = StateEnded

	if s.dataRecorder != nil {
		s.dataRecorder.Flush()
	}

	if s.monitor != nil && s.progressBar != nil {
		s.monitor.CompleteProgressBar(s.progressBar)
	}

	logrus.Infof("experiment %s ended after %d replications",
		s.experiment.Name, len(s.results))
}

// releaseOnPanic ends the experiment and frees the model when a replication
// panics. The panic keeps unwinding.
func (s *Simulation) releaseOnPanic() {
	r := recover()
	if r == nil {
		return
	}

	s.model.SetRunning(false)
	s.state = StateEnded

	logrus.Errorf("experiment %s aborted in replication %d: %v",
		s.experiment.Name, s.replication, r)

	panic(r)
}

func (s *Simulation) runReplication() error {
	s.replication++
	n := s.replication

	s.prepareStreams(n)

	err := s.executive.Initialize()
	if err != nil {
		return fmt.Errorf("replication %d: %w", n, err)
	}

	s.executive.SetEndTime(sim.VTimeInSec(s.experiment.ReplicationLength))
	s.executive.SetEndCondition(s.experiment.EndCondition)
	s.executive.SetMaxWallClockTime(s.experiment.MaxWallClockTime)

	s.model.SetCurrentReplication(n)
	if s.monitor != nil {
		s.monitor.ReplicationStarted(n)
	}
	if s.progressBar != nil {
		s.progressBar.IncrementInProgress(1)
	}

	s.model.Propagate(model.ObserverStateBeforeReplication)
	s.model.Propagate(model.ObserverStateInitialized)
	if s.experiment.MonteCarlo {
		s.model.Propagate(model.ObserverStateMonteCarlo)
	}

	s.scheduleWarmUp()
	s.scheduleTimedUpdate()

	start := time.Now()
	err = s.executive.Run()
	wallTime := time.Since(start)

	s.recordResult(n, wallTime)

	if err != nil {
		logrus.Errorf("replication %d aborted at %.10f: %v",
			n, s.executive.CurrentTime(), err)
		return fmt.Errorf("replication %d: %w", n, err)
	}

	if s.executive.EndReason() == sim.EndReasonTimedOut {
		logrus.Warnf("replication %d timed out at %.10f",
			n, s.executive.CurrentTime())
	}

	s.model.Propagate(model.ObserverStateReplicationEnded)
	s.model.Propagate(model.ObserverStateAfterReplication)

	if s.monitor != nil {
		s.monitor.ReplicationCompleted()
	}
	if s.progressBar != nil {
		s.progressBar.MoveInProgressToFinished(1)
	}

	logrus.Infof("replication %d ended at %.10f: %s, %d events",
		n, s.executive.CurrentTime(), s.executive.EndReason(),
		s.executive.NumEventsExecuted())

	return nil
}

// prepareStreams positions the random streams for replication n.
func (s *Simulation) prepareStreams(n int) {
	if s.streams == nil {
		return
	}

	exp := s.experiment

	if n == 1 {
		if exp.ResetStartStream {
			s.streams.ResetStartStreams()
		}

		for i := 0; i < exp.NumStreamAdvances; i++ {
			s.streams.AdvanceToNextSubstreams()
		}

		return
	}

	if exp.Antithetic {
		if n%2 == 0 {
			s.streams.ResetStartSubstreams()
			s.streams.SetAntithetic(true)

			return
		}

		s.streams.SetAntithetic(false)
	}

	if exp.AdvanceNextSubstream {
		s.streams.AdvanceToNextSubstreams()
	}
}

func (s *Simulation) scheduleWarmUp() {
	if s.experiment.WarmUpLength <= 0 {
		return
	}

	s.executive.Schedule(
		sim.HandlerFunc(s.handleWarmUp),
		sim.VTimeInSec(s.experiment.WarmUpLength),
		sim.WithPriority(sim.PriorityWarmUp),
		sim.WithName("WarmUp"),
	)
}

func (s *Simulation) handleWarmUp(_ *sim.Event) error {
	logrus.Debugf("warm-up ended at %.10f", s.executive.CurrentTime())
	s.model.Propagate(model.ObserverStateWarmUp)

	return nil
}

func (s *Simulation) scheduleTimedUpdate() {
	if s.experiment.TimedUpdateInterval <= 0 {
		return
	}

	s.executive.Schedule(
		sim.HandlerFunc(s.handleTimedUpdate),
		sim.VTimeInSec(s.experiment.TimedUpdateInterval),
		sim.WithPriority(sim.PriorityTimedUpdate),
		sim.WithName("TimedUpdate"),
	)
}

// handleTimedUpdate reschedules itself only while other events are pending,
// so that it never keeps a replication alive on its own.
func (s *Simulation) handleTimedUpdate(_ *sim.Event) error {
	s.model.Propagate(model.ObserverStateTimedUpdate)

	if s.executive.NumPendingEvents() > 0 {
		s.scheduleTimedUpdate()
	}

	return nil
}

func (s *Simulation) recordResult(n int, wallTime time.Duration) {
	result := ReplicationResult{
		Number:         n,
		EndReason:      s.executive.EndReason().String(),
		EndTime:        float64(s.executive.CurrentTime()),
		EventsExecuted: s.executive.NumEventsExecuted(),
		WallTime:       wallTime.Seconds(),
	}

	s.results = append(s.results, result)

	if s.dataRecorder != nil {
		s.dataRecorder.InsertData(replicationTable, result)
	}
}
