package process

import (
	"errors"
	"strings"
	"time"
)

// DefaultStartupTimeout bounds how long Start waits for the readiness marker.
const DefaultStartupTimeout = 10 * time.Second

// Spec describes how to launch the supervised process.
type Spec struct {
	Command        string
	Args           []string
	Dir            string   // working directory, empty = current
	Env            []string // extra KEY=VALUE pairs appended to the parent environment
	StartupTimeout time.Duration
}

// String returns the command line for logging.
func (s Spec) String() string {
	if len(s.Args) == 0 {
		return s.Command
	}
	return s.Command + " " + strings.Join(s.Args, " ")
}

// SpecFromCommandLine builds a Spec from a single command line such as
// `python3 "my server.py" --port 8081`.
func SpecFromCommandLine(line string) (Spec, error) {
	args, err := ParseCommand(line)
	if err != nil {
		return Spec{}, err
	}
	if len(args) == 0 {
		return Spec{}, errors.New("empty command")
	}
	return Spec{Command: args[0], Args: args[1:]}, nil
}

// ParseCommand splits a command line into arguments.
// Single and double quotes group words and a backslash escapes the next rune.
func ParseCommand(command string) ([]string, error) {
	var (
		args    []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range strings.TrimSpace(command) {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, errors.New("unclosed quote in command")
	}
	if escaped {
		word.WriteRune('\\')
	}
	if inWord {
		args = append(args, word.String())
	}
	return args, nil
}
