package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Sessions    SessionReport     `json:"session_report"`
	RunLine     RunLineReport     `json:"run_line_report"`
	Spawn       SpawnReport       `json:"spawn_report"`
	ChildStatus ChildStatusReport `json:"child_status_report"`
	Builtin     BuiltinReport     `json:"builtin_report"`
	LineError   LineErrorReport   `json:"error_report"`
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++
	r.Sessions.update(le)

	switch event := le.GetLogType().(type) {
	case *RunLine:
		r.RunLine.update(event)
	case *Spawn:
		r.Spawn.update(event)
	case *ChildStatus:
		r.ChildStatus.update(event)
	case *Builtin:
		r.Builtin.update(event)
	case *LineError:
		r.LineError.update(event)
	default:
		r.InvalidEntries.Increment(fmt.Sprintf("%T", event))
	}
}

type SessionReport struct {
	sessions map[string]bool
}

func (r *SessionReport) update(le *LogEntry) {
	if le.SessionId == "" {
		return
	}
	if r.sessions == nil {
		r.sessions = make(map[string]bool)
	}
	r.sessions[le.SessionId] = true
}

// MarshalJSON implements custom JSON marshaler.
func (r SessionReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int `json:"count"`
	}{len(r.sessions)})
}

type RunLineReport struct {
	Count int `json:"count"`
	// Number of lines run in each mode.
	Modes StrCounter `json:"modes"`
	// How often each line was run.
	Lines StrCounter `json:"lines"`
}

func (r *RunLineReport) update(rl *RunLine) {
	r.Count++
	r.Modes.Increment(rl.Mode)
	r.Lines.Increment(rl.Line)
}

type SpawnReport struct {
	// Name of the spawned command
	CommandNames StrCounter `json:"command_names"`
	// Commands that failed to start and why.
	Failures *PathCounter `json:"failures"`
	// Redirection targets.
	Redirects StrCounter `json:"redirects,omitempty"`
}

func (r *SpawnReport) update(s *Spawn) {
	if r.Failures == nil {
		r.Failures = NewPathCounter("command", "error")
	}

	name := firstOf(s.Command)
	r.CommandNames.Increment(name)
	if s.Error != "" {
		r.Failures.Increment(name, s.Error)
	}
	if s.Stdout != "" {
		r.Redirects.Increment(s.Stdout)
	}
}

type ChildStatusReport struct {
	Statuses StrCounter `json:"statuses"`
	// Children killed after being stopped.
	Killed StrCounter `json:"killed,omitempty"`
}

func (r *ChildStatusReport) update(cs *ChildStatus) {
	r.Statuses.Increment(cs.Status)
	if cs.Killed {
		r.Killed.Increment(firstOf(cs.Command))
	}
}

type BuiltinReport struct {
	CommandNames StrCounter   `json:"command_names"`
	Errors       *PathCounter `json:"errors"`
}

func (r *BuiltinReport) update(b *Builtin) {
	if r.Errors == nil {
		r.Errors = NewPathCounter("command", "error")
	}

	r.CommandNames.Increment(firstOf(b.Command))
	if b.Error != "" {
		r.Errors.Increment(strings.Join(b.Command, " "), b.Error)
	}
}

type LineErrorReport struct {
	Errors StrCounter `json:"errors"`
}

func (r *LineErrorReport) update(e *LineError) {
	r.Errors.Increment(e.Error)
}

func firstOf(command []string) string {
	if len(command) == 0 {
		return ""
	}
	return command[0]
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of tuples seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Get returns the count for the tuple.
func (ctr *PathCounter) Get(vals ...string) int {
	if ctr == nil {
		return 0
	}
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implements custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
