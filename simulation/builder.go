package simulation

import (
	"github.com/rs/xid"
	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/model"
	"github.com/sarchlab/desim/monitoring"
	"github.com/sarchlab/desim/random"
	"github.com/sarchlab/desim/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	model       *model.Model
	experiment  Experiment
	streams     *random.StreamProvider
	recordOn    bool
	recordPath  string
	monitorOn   bool
	monitorPort int
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		experiment: DefaultExperiment(),
		monitorOn:  true,
	}
}

// WithModel sets the model to simulate.
func (b Builder) WithModel(m *model.Model) Builder {
	b.model = m
	return b
}

// WithExperiment sets the settings of the replications.
func (b Builder) WithExperiment(e Experiment) Builder {
	b.experiment = e
	return b
}

// WithStreams sets the random streams that the simulation rewinds and
// advances between replications.
func (b Builder) WithStreams(p *random.StreamProvider) Builder {
	b.streams = p
	return b
}

// WithDataRecorder makes the simulation record its results in <path>.sqlite3.
// An empty path generates a file name from the simulation ID.
func (b Builder) WithDataRecorder(path string) Builder {
	b.recordOn = true
	b.recordPath = path

	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.model == nil {
		panic(sim.NewConfigError("simulation requires a model"))
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic(sim.NewConfigError(
			"monitor port cannot be set when monitoring is disabled"))
	}

	err := b.experiment.Validate()
	if err != nil {
		panic(err)
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:         xid.New().String(),
		model:      b.model,
		executive:  b.model.Executive(),
		experiment: b.experiment,
		streams:    b.streams,
	}

	if b.recordOn {
		path := b.recordPath
		if path == "" {
			path = "desim_results_" + s.id
		}

		s.dataRecorder = datarecording.NewDataRecorder(path)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterExecutive(s.executive)
		s.monitor.RegisterModel(s.model)
		s.monitor.StartServer()
	}

	return s
}
