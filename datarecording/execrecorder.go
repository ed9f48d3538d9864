package datarecording

import (
	"os"
	"runtime"
	"strings"
	"time"
)

const execTableName = "exec_info"

const timeLayout = "2006-01-02 15:04:05.000000000"

// execInfo is a property of the program run that produced the database.
type execInfo struct {
	Property string
	Value    string
}

// execRecorder describes the program run in the exec_info table.
type execRecorder struct {
	recorder DataRecorder
	entries  []execInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	recorder.CreateTable(execTableName, execInfo{})

	return &execRecorder{recorder: recorder}
}

func (e *execRecorder) add(property, value string) {
	e.entries = append(e.entries, execInfo{Property: property, Value: value})
}

// Start collects the properties known when the program starts.
func (e *execRecorder) Start() {
	e.add("Start Time", time.Now().Format(timeLayout))
	e.add("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	e.add("Working Directory", cwd)

	e.add("Go Version", runtime.Version())
}

// End writes the properties along with the end time.
func (e *execRecorder) End() {
	e.add("End Time", time.Now().Format(timeLayout))

	for _, entry := range e.entries {
		e.recorder.InsertData(execTableName, entry)
	}

	e.entries = nil
}
