package sim

import (
	"fmt"
	"log"
	"strings"
)

// RunLog accumulates the human-readable trace of one simulation run.
// Every line also goes to the process logger, so the run reads the same
// in the log file and in the report that embeds the returned text.
type RunLog struct {
	lines []string
}

func NewRunLog() *RunLog {
	return &RunLog{}
}

func (l *RunLog) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	log.Print(line)
	l.lines = append(l.lines, line)
}

func (l *RunLog) String() string {
	return strings.Join(l.lines, "\n")
}
