package model

import (
	"fmt"

	"github.com/sarchlab/desim/sim"
)

// ObserverState tags the lifecycle phase an element is currently going
// through. Observers registered as hooks receive the phase as the hook
// position.
type ObserverState int

// Observer states.
const (
	ObserverStateNone ObserverState = iota
	ObserverStateBeforeExperiment
	ObserverStateInitialized
	ObserverStateBeforeReplication
	ObserverStateWarmUp
	ObserverStateTimedUpdate
	ObserverStateMonteCarlo
	ObserverStateReplicationEnded
	ObserverStateAfterReplication
	ObserverStateAfterExperiment
	ObserverStateUpdate
	ObserverStateRemovedFromModel
)

var observerStateNames = map[ObserverState]string{
	ObserverStateNone:              "None",
	ObserverStateBeforeExperiment:  "BeforeExperiment",
	ObserverStateInitialized:       "Initialized",
	ObserverStateBeforeReplication: "BeforeReplication",
	ObserverStateWarmUp:            "WarmUp",
	ObserverStateTimedUpdate:       "TimedUpdate",
	ObserverStateMonteCarlo:        "MonteCarlo",
	ObserverStateReplicationEnded:  "ReplicationEnded",
	ObserverStateAfterReplication:  "AfterReplication",
	ObserverStateAfterExperiment:   "AfterExperiment",
	ObserverStateUpdate:            "Update",
	ObserverStateRemovedFromModel:  "RemovedFromModel",
}

func (s ObserverState) String() string {
	name, found := observerStateNames[s]
	if !found {
		return fmt.Sprintf("ObserverState(%d)", int(s))
	}

	return name
}

// Hook positions fired on elements, one per lifecycle phase.
var (
	HookPosBeforeExperiment  = &sim.HookPos{Name: "BeforeExperiment"}
	HookPosInitialized       = &sim.HookPos{Name: "Initialized"}
	HookPosBeforeReplication = &sim.HookPos{Name: "BeforeReplication"}
	HookPosWarmUp            = &sim.HookPos{Name: "WarmUp"}
	HookPosTimedUpdate       = &sim.HookPos{Name: "TimedUpdate"}
	HookPosMonteCarlo        = &sim.HookPos{Name: "MonteCarlo"}
	HookPosReplicationEnded  = &sim.HookPos{Name: "ReplicationEnded"}
	HookPosAfterReplication  = &sim.HookPos{Name: "AfterReplication"}
	HookPosAfterExperiment   = &sim.HookPos{Name: "AfterExperiment"}
	HookPosUpdate            = &sim.HookPos{Name: "Update"}
	HookPosRemovedFromModel  = &sim.HookPos{Name: "RemovedFromModel"}
)

var observerHookPos = map[ObserverState]*sim.HookPos{
	ObserverStateBeforeExperiment:  HookPosBeforeExperiment,
	ObserverStateInitialized:       HookPosInitialized,
	ObserverStateBeforeReplication: HookPosBeforeReplication,
	ObserverStateWarmUp:            HookPosWarmUp,
	ObserverStateTimedUpdate:       HookPosTimedUpdate,
	ObserverStateMonteCarlo:        HookPosMonteCarlo,
	ObserverStateReplicationEnded:  HookPosReplicationEnded,
	ObserverStateAfterReplication:  HookPosAfterReplication,
	ObserverStateAfterExperiment:   HookPosAfterExperiment,
	ObserverStateUpdate:            HookPosUpdate,
	ObserverStateRemovedFromModel:  HookPosRemovedFromModel,
}

// HookPos returns the hook position fired when an element enters the state.
// It returns nil for ObserverStateNone.
func (s ObserverState) HookPos() *sim.HookPos {
	return observerHookPos[s]
}

// IsTeardown tells if the phase visits children before their parent.
func (s ObserverState) IsTeardown() bool {
	switch s {
	case ObserverStateReplicationEnded,
		ObserverStateAfterReplication,
		ObserverStateAfterExperiment,
		ObserverStateRemovedFromModel:
		return true
	default:
		return false
	}
}
