package simulation

import (
	"math"
	"os"
	"time"

	"github.com/sarchlab/desim/sim"
	"gopkg.in/yaml.v3"
)

// An Experiment holds the settings of a series of replications.
type Experiment struct {
	Name string `yaml:"name"`

	// NumReplications is the number of replications to run.
	NumReplications int `yaml:"num_replications"`

	// ReplicationLength is the simulated time at which each replication is
	// cut. It may be +Inf, written .inf in yaml.
	ReplicationLength float64 `yaml:"replication_length"`

	// WarmUpLength is the simulated time after which statistics restart.
	// Zero disables the warm-up.
	WarmUpLength float64 `yaml:"warm_up_length"`

	// MaxWallClockTime bounds the real time of each replication. Zero means
	// no limit.
	MaxWallClockTime time.Duration `yaml:"max_wall_clock_time"`

	// TimedUpdateInterval is the simulated time between two timed updates.
	// Zero disables timed updates.
	TimedUpdateInterval float64 `yaml:"timed_update_interval"`

	// Antithetic makes every even replication use the antithetic numbers
	// of the replication before it.
	Antithetic bool `yaml:"antithetic"`

	// ResetStartStream rewinds the random streams before the first
	// replication.
	ResetStartStream bool `yaml:"reset_start_stream"`

	// AdvanceNextSubstream moves the random streams to their next substream
	// between replications.
	AdvanceNextSubstream bool `yaml:"advance_next_substream"`

	// NumStreamAdvances is the number of substreams skipped before the first
	// replication.
	NumStreamAdvances int `yaml:"num_stream_advances"`

	// MonteCarlo makes the model go through the MonteCarlo phase after
	// initialization.
	MonteCarlo bool `yaml:"monte_carlo"`

	// EndCondition ends a replication when it returns true.
	EndCondition func() bool `yaml:"-"`
}

// DefaultExperiment returns an experiment of a single replication that runs
// until no event is left.
func DefaultExperiment() Experiment {
	return Experiment{
		Name:                 "Experiment",
		NumReplications:      1,
		ReplicationLength:    math.Inf(1),
		AdvanceNextSubstream: true,
	}
}

// LoadExperiment reads an experiment from a yaml file. Settings missing from
// the file keep their default values.
func LoadExperiment(path string) (Experiment, error) {
	e := DefaultExperiment()

	f, err := os.Open(path)
	if err != nil {
		return e, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)

	err = decoder.Decode(&e)
	if err != nil {
		return e, err
	}

	err = e.Validate()
	if err != nil {
		return e, err
	}

	return e, nil
}

// Validate checks that the settings are consistent.
func (e Experiment) Validate() error {
	if e.NumReplications < 1 {
		return sim.NewConfigError(
			"number of replications must be positive, got %d",
			e.NumReplications)
	}

	if math.IsNaN(e.ReplicationLength) || e.ReplicationLength <= 0 {
		return sim.NewConfigError(
			"replication length must be positive, got %v",
			e.ReplicationLength)
	}

	if math.IsNaN(e.WarmUpLength) || e.WarmUpLength < 0 {
		return sim.NewConfigError(
			"warm-up length must not be negative, got %v", e.WarmUpLength)
	}

	if e.WarmUpLength > 0 && e.WarmUpLength >= e.ReplicationLength {
		return sim.NewConfigError(
			"warm-up length %v must be less than replication length %v",
			e.WarmUpLength, e.ReplicationLength)
	}

	if e.MaxWallClockTime < 0 {
		return sim.NewConfigError(
			"max wall-clock time must not be negative, got %s",
			e.MaxWallClockTime)
	}

	if math.IsNaN(e.TimedUpdateInterval) || e.TimedUpdateInterval < 0 {
		return sim.NewConfigError(
			"timed update interval must not be negative, got %v",
			e.TimedUpdateInterval)
	}

	if e.NumStreamAdvances < 0 {
		return sim.NewConfigError(
			"number of stream advances must not be negative, got %d",
			e.NumStreamAdvances)
	}

	return nil
}
