package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecTableName is the table that holds the execution properties.
const ExecTableName = "exec_info"

const execTimeFormat = "2006-01-02 15:04:05.000000000"

// An ExecRecorder records the command line and the start and end time of a
// run.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates the execution table in the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(ExecTableName, ExecInfo{})

	return &ExecRecorder{recorder: recorder}
}

// Start logs the current execution. Extra properties, such as the run ID,
// are given as property-value pairs.
func (e *ExecRecorder) Start(props ...ExecInfo) {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", time.Now().Format(execTimeFormat)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	cwd, err := os.Getwd()
	if err == nil {
		e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
	}

	e.entries = append(e.entries, props...)
}

// End writes the collected properties along with the end time.
func (e *ExecRecorder) End() {
	e.entries = append(e.entries,
		ExecInfo{"End Time", time.Now().Format(execTimeFormat)})

	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTableName, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
