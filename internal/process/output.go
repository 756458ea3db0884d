package process

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"regexp"
	"strings"
)

const (
	chunkSize     = 4096
	maxLineLength = 64 * 1024
)

// OutputHandler receives output lines from the subprocess.
// Implementations can publish output on an event bus, keep history, etc.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser parses a log line and returns the log level and message.
type LogParser func(line string) (level, msg string)

var pythonLevel = regexp.MustCompile(`^(?:\[[^\]]*\]\s*)?(CRITICAL|FATAL|ERROR|WARNING|WARN|INFO|DEBUG)(?:\s+in\s+\S+)?[:\s]+(.*)$`)

// ParsePythonLogLevel extracts the level from Python logging and werkzeug output,
// e.g. "WARNING: This is a development server." or "[2025-01-01 10:00:00] ERROR in app: boom".
// Lines without a level are info; traceback headers are errors.
func ParsePythonLogLevel(line string) (level, msg string) {
	if strings.HasPrefix(line, "Traceback (most recent call last)") {
		return "error", line
	}
	m := pythonLevel.FindStringSubmatch(line)
	if m == nil {
		return "info", line
	}
	switch m[1] {
	case "CRITICAL", "FATAL":
		return "fatal", m[2]
	case "ERROR":
		return "error", m[2]
	case "WARNING", "WARN":
		return "warning", m[2]
	case "DEBUG":
		return "debug", m[2]
	default:
		return "info", m[2]
	}
}

// lineSplitter turns arbitrary chunks into complete lines. The unterminated tail is
// held until more output arrives or Flush is called.
type lineSplitter struct {
	pending []byte
	emit    func(line string)
}

func (l *lineSplitter) Write(chunk []byte) {
	l.pending = append(l.pending, chunk...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			break
		}
		l.emit(string(bytes.TrimSuffix(l.pending[:i], []byte{'\r'})))
		l.pending = l.pending[i+1:]
	}
	if len(l.pending) >= maxLineLength {
		l.Flush()
	}
	if len(l.pending) == 0 {
		l.pending = nil
	}
}

// Flush emits whatever partial line is buffered.
func (l *lineSplitter) Flush() {
	if len(l.pending) > 0 {
		l.emit(string(bytes.TrimSuffix(l.pending, []byte{'\r'})))
	}
	l.pending = nil
}

// pump reads raw chunks from one output stream of the child. Complete lines are
// logged first, then the chunk goes to onChunk (nil for streams that never drive state).
func (s *Supervisor) pump(reader io.Reader, source string, onChunk func([]byte)) {
	lines := &lineSplitter{emit: func(line string) { s.handleLine(source, line) }}
	buf := make([]byte, chunkSize)

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			lines.Write(chunk)
			if onChunk != nil {
				onChunk(chunk)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
				s.logger.Warn("Error reading output", "source", source, "error", err)
			}
			break
		}
	}
	lines.Flush()
}

// handleLine forwards a line to the output handler and the output logger.
func (s *Supervisor) handleLine(source, line string) {
	if s.opts.OutputHandler != nil {
		s.opts.OutputHandler.HandleLine(source, line)
	}

	level, msg := "info", line
	if s.opts.LogParser != nil {
		level, msg = s.opts.LogParser(line)
	}

	logger := s.outputLogger.With("source", source)
	switch level {
	case "fatal", "error":
		logger.Error(msg)
	case "warning":
		logger.Warn(msg)
	case "debug", "trace":
		logger.Debug(msg)
	default:
		logger.Info(msg)
	}
}

