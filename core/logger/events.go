package logger

// LogEntry is one line of the event log. Exactly one of the event fields is
// set.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionId       string `json:"session_id,omitempty"`

	RunLine     *RunLine     `json:"run_line,omitempty"`
	Spawn       *Spawn       `json:"spawn,omitempty"`
	ChildStatus *ChildStatus `json:"child_status,omitempty"`
	Builtin     *Builtin     `json:"builtin,omitempty"`
	LineError   *LineError   `json:"error,omitempty"`
}

// LogType is implemented by every event that can be stored in a LogEntry.
type LogType interface {
	setOn(le *LogEntry)
}

// GetLogType returns the event held by the entry, or nil if it has none.
func (le *LogEntry) GetLogType() LogType {
	switch {
	case le.RunLine != nil:
		return le.RunLine
	case le.Spawn != nil:
		return le.Spawn
	case le.ChildStatus != nil:
		return le.ChildStatus
	case le.Builtin != nil:
		return le.Builtin
	case le.LineError != nil:
		return le.LineError
	default:
		return nil
	}
}

// RunLine is logged for every non-empty line the shell executes.
type RunLine struct {
	Line   string     `json:"line"`
	Mode   string     `json:"mode"`
	Groups [][]string `json:"groups,omitempty"`
}

func (e *RunLine) setOn(le *LogEntry) { le.RunLine = e }

// Spawn is logged when a child is started or fails to start.
type Spawn struct {
	Command []string `json:"command"`
	Pid     int      `json:"pid,omitempty"`
	// Stdout is the redirection target, if any.
	Stdout string `json:"stdout,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (e *Spawn) setOn(le *LogEntry) { le.Spawn = e }

// ChildStatus is logged whenever a wait observes a child change state.
type ChildStatus struct {
	Command []string `json:"command"`
	Pid     int      `json:"pid,omitempty"`
	Status  string   `json:"status"`
	// Killed is set when the shell sent SIGKILL after seeing the status.
	Killed bool `json:"killed,omitempty"`
}

func (e *ChildStatus) setOn(le *LogEntry) { le.ChildStatus = e }

// Builtin is logged when a command runs inside the shell process.
type Builtin struct {
	Command []string `json:"command"`
	Error   string   `json:"error,omitempty"`
}

func (e *Builtin) setOn(le *LogEntry) { le.Builtin = e }

// LineError is logged when a whole line is refused.
type LineError struct {
	Line  string `json:"line"`
	Error string `json:"error"`
}

func (e *LineError) setOn(le *LogEntry) { le.LineError = e }
