// Package generator runs the external documentation generator and streams
// its output to a LogSink.
package generator

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"slices"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
)

// DefaultCommand is used when the generator setting is empty.
const DefaultCommand = "jsdoc"

// LogSink receives generator output one line at a time.
type LogSink interface {
	Info(msg string)
	Error(msg string)
}

// Options describe one generator invocation.
type Options struct {
	Command          []string
	Destination      string
	ConfigFile       string
	WithPrivate      bool
	TutorialsDir     string
	ScanDirectory    string
	WorkingDirectory string
}

// Args returns the generator arguments. Values are passed to exec directly,
// so paths containing spaces need no quoting.
func (o Options) Args() []string {
	args := []string{"--verbose", "-d", o.Destination}
	if o.ConfigFile != "" {
		args = append(args, "-c", o.ConfigFile)
	}
	if o.WithPrivate {
		args = append(args, "-p")
	}
	if o.TutorialsDir != "" {
		args = append(args, "-u", o.TutorialsDir)
	}
	if o.ScanDirectory != "" {
		args = append(args, o.ScanDirectory)
	}
	return args
}

// CommandLine renders the full command for display.
func (o Options) CommandLine() string {
	return shellquote.Join(slices.Concat(o.command(), o.Args())...)
}

func (o Options) command() []string {
	if len(o.Command) == 0 {
		return []string{DefaultCommand}
	}
	return o.Command
}

// ParseCommand splits a generator setting such as "npx jsdoc" into argv.
func ParseCommand(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return []string{DefaultCommand}, nil
	}
	argv, err := shellquote.Split(s)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid generator command").
			WithContext("generator", s).
			Build()
	}
	return argv, nil
}

// Invoker runs the generator.
type Invoker interface {
	Invoke(ctx context.Context, opts Options, sink LogSink) error
}

// ExecInvoker starts the generator as a child process.
// A started run is not cancelled when ctx is done; it always runs to exit.
type ExecInvoker struct{}

// NewExecInvoker returns the process-backed Invoker.
func NewExecInvoker() *ExecInvoker { return &ExecInvoker{} }

func (ExecInvoker) Invoke(_ context.Context, opts Options, sink LogSink) error {
	sink = &lockedSink{sink: sink}
	argv := slices.Concat(opts.command(), opts.Args())

	sink.Info("Execute the command line")
	sink.Info("\t" + opts.CommandLine())

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // command comes from the user's own settings
	cmd.Dir = opts.WorkingDirectory

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return failed(sink, err, -1)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return failed(sink, err, -1)
	}
	if err := cmd.Start(); err != nil {
		return failed(sink, err, -1)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		streamLines(stdout, sink.Info)
	}()
	go func() {
		defer wg.Done()
		streamLines(stderr, sink.Error)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return failed(sink, err, code)
	}
	return nil
}

func failed(sink LogSink, err error, code int) error {
	sink.Error("Command failed")
	return ferrors.GeneratorError("generator command failed").
		WithCause(err).
		WithContext("exit_code", code).
		Build()
}

// streamLines forwards r line by line until EOF. Lines of any length are
// accepted and a trailing partial line is still delivered.
func streamLines(r io.Reader, emit func(string)) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			emit(strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
	}
}

type lockedSink struct {
	mu   sync.Mutex
	sink LogSink
}

func (l *lockedSink) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink.Info(msg)
}

func (l *lockedSink) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink.Error(msg)
}
