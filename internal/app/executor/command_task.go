package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"spotbroker/internal/domain/model"
)

var (
	dockerBinary         = "docker"
	containerKillTimeout = 10 * time.Second
)

var (
	ErrAlreadyStarted = errors.New("task already started")
	ErrNotRunning     = errors.New("task is not running")
)

// CommandTask runs one command line as a child process and collects its
// output. It implements auction.Task.
type CommandTask struct {
	args      []string
	container string // docker container name, empty when not running under docker

	mu         sync.Mutex
	cmd        *exec.Cmd
	started    bool
	exited     bool
	terminated bool
	stdout     bytes.Buffer
	stderr     bytes.Buffer
}

func NewCommandTask(args []string, container string) *CommandTask {
	return &CommandTask{args: args, container: container}
}

func (t *CommandTask) Args() []string {
	return append([]string(nil), t.args...)
}

func (t *CommandTask) Start(onExit func(model.JobOutput)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}
	if len(t.args) == 0 {
		return errors.New("empty command")
	}

	cmd := exec.Command(t.args[0], t.args[1:]...)
	cmd.Stdout = &t.stdout
	cmd.Stderr = &t.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", t.args[0], err)
	}
	t.cmd = cmd
	t.started = true

	go t.wait(onExit)
	return nil
}

func (t *CommandTask) wait(onExit func(model.JobOutput)) {
	err := t.cmd.Wait()

	exitCode := -1
	if t.cmd.ProcessState != nil {
		exitCode = t.cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		log.Printf("WARN: Command %s ended abnormally: %v", t.args[0], err)
	}

	t.mu.Lock()
	t.exited = true
	terminated := t.terminated
	out := model.JobOutput{
		ExitCode: exitCode,
		Stdout:   t.stdout.String(),
		Stderr:   t.stderr.String(),
	}
	t.mu.Unlock()

	if !terminated && onExit != nil {
		onExit(out)
	}
}

// Terminate kills the process. Under docker it also waits, for at most
// containerKillTimeout, for the container to be killed so the slot it
// held is actually free when Terminate returns.
func (t *CommandTask) Terminate() error {
	t.mu.Lock()
	if !t.started || t.exited || t.terminated {
		t.mu.Unlock()
		return ErrNotRunning
	}
	t.terminated = true
	err := t.cmd.Process.Kill()
	t.mu.Unlock()

	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill %s: %w", t.args[0], err)
	}
	if t.container != "" {
		// Killing the docker client leaves the container behind.
		return killContainer(t.container)
	}
	return nil
}

func killContainer(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), containerKillTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, dockerBinary, "kill", name)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("WARN: Failed to kill container %s: %v: %s", name, err, bytes.TrimSpace(out))
		return fmt.Errorf("failed to kill container %s: %w", name, err)
	}
	return nil
}
