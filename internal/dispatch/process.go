package dispatch

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"sync/atomic"
)

// State is the lifecycle of one collector invocation.
type State int32

const (
	Spawned State = iota
	DrainingOutput
	Done
)

func (s State) String() string {
	switch s {
	case Spawned:
		return "spawned"
	case DrainingOutput:
		return "draining-output"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Result is the outcome of an awaited invocation. Fire-and-forget
// invocations never produce one for the caller.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// Process is one running collector. Start it with Spawn, then either Wait
// for it (debug) or Release it.
type Process struct {
	cmd    *exec.Cmd
	state  atomic.Int32
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	fed    sync.WaitGroup
	once   sync.Once
	result Result
}

// Spawn starts argv. When input is non-nil it is written to the child's
// stdin, which is then closed. capture keeps stdout and stderr for Wait.
// The child is not tied to ctx once started; it outlives agent shutdown.
func Spawn(ctx context.Context, argv []string, input []byte, capture bool) (*Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("dispatch: empty command")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	p := &Process{cmd: cmd}
	if capture {
		p.stdout, p.stderr = &bytes.Buffer{}, &bytes.Buffer{}
		cmd.Stdout, cmd.Stderr = p.stdout, p.stderr
	}

	var stdin interface {
		Write([]byte) (int, error)
		Close() error
	}
	if input != nil {
		w, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		stdin = w
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p.state.Store(int32(Spawned))

	if stdin != nil {
		p.fed.Add(1)
		go func() {
			defer p.fed.Done()
			// The collector may exit once it has read the trailing newline,
			// so write and close errors are expected.
			_, _ = stdin.Write(input)
			_ = stdin.Close()
		}()
	}
	return p, nil
}

// State reports where the invocation is.
func (p *Process) State() State { return State(p.state.Load()) }

// Wait drains output and blocks until the process exits.
func (p *Process) Wait() Result {
	p.once.Do(func() {
		p.state.Store(int32(DrainingOutput))
		p.fed.Wait()
		err := p.cmd.Wait()

		p.result = Result{ExitCode: p.cmd.ProcessState.ExitCode(), Err: err}
		if p.stdout != nil {
			p.result.Stdout = p.stdout.String()
			p.result.Stderr = p.stderr.String()
		}
		p.state.Store(int32(Done))
	})
	return p.result
}

// Release reaps the process in the background and reports its result to
// done, which may be nil.
func (p *Process) Release(done func(Result)) {
	go func() {
		r := p.Wait()
		if done != nil {
			done(r)
		}
	}()
}
