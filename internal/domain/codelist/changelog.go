package codelist

import "time"

// LogType classifies a change log entry.
type LogType string

const (
	LogAdd    LogType = "add"
	LogEdit   LogType = "edit"
	LogRemove LogType = "remove"
	LogNote   LogType = "note"
)

// LogEntry records one change made to a codelist. Target names what was
// touched ("code", "term", "comment", "tag", "purpose", ...); Code is set for
// entry-level changes.
type LogEntry struct {
	Type    LogType   `json:"type"`
	Target  string    `json:"target"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Logs returns the change log in the order changes were made.
func (cl *CodeList) Logs() []LogEntry {
	return append([]LogEntry(nil), cl.logs...)
}

// AddNote appends a free-text note to the change log.
func (cl *CodeList) AddNote(msg string) {
	cl.touch()
	cl.record(LogNote, "note", "", msg)
}

func (cl *CodeList) record(t LogType, target, code, msg string) {
	cl.logs = append(cl.logs, LogEntry{Type: t, Target: target, Code: code, Message: msg, At: cl.now().UTC()})
}
