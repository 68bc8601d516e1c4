package detector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	maxLineSize   = 16 << 20
	stderrTailLen = 5
)

// Runner executes an external detector script, feeding it a single JSON
// message on stdin and returning everything it printed on stdout.
type Runner interface {
	Run(ctx context.Context, script string, message any) (string, error)
}

// ProcessRunner runs detector scripts as child processes.
type ProcessRunner struct {
	bin    string
	args   []string
	logger *zap.Logger
}

// NewPythonRunner runs scripts with the given interpreter in unbuffered mode.
func NewPythonRunner(python string, logger *zap.Logger) *ProcessRunner {
	return &ProcessRunner{bin: python, args: []string{"-u"}, logger: logger.Named("detector")}
}

// Run starts `bin args... script`, writes message as one JSON line and waits
// for the process to exit. Every stdout line is kept, stderr lines are logged.
func (r *ProcessRunner) Run(ctx context.Context, script string, message any) (string, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("encode detector message: %w", err)
	}
	payload = append(payload, '\n')

	args := append(append([]string{}, r.args...), script)
	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Stdin = bytes.NewReader(payload)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("%s: stdout pipe: %w", script, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("%s: stderr pipe: %w", script, err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%s: start: %w", script, err)
	}

	var (
		wg   sync.WaitGroup
		tail []string
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		tail = r.drainStderr(script, stderr)
	}()

	var output strings.Builder
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		output.WriteString(scanner.Text())
		output.WriteByte('\n')
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// keep the pipe flowing so the child can exit
		_, _ = io.Copy(io.Discard, stdout)
	}

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		if len(tail) > 0 {
			return "", fmt.Errorf("%s: %w: %s", script, err, strings.Join(tail, " | "))
		}
		return "", fmt.Errorf("%s: %w", script, err)
	}
	if scanErr != nil {
		return "", fmt.Errorf("%s: read output: %w", script, scanErr)
	}

	return strings.TrimSpace(output.String()), nil
}

func (r *ProcessRunner) drainStderr(script string, stderr io.Reader) []string {
	var tail []string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		r.logger.Warn("detector stderr", zap.String("script", script), zap.String("line", line))
		tail = append(tail, line)
		if len(tail) > stderrTailLen {
			tail = tail[1:]
		}
	}
	_, _ = io.Copy(io.Discard, stderr)
	return tail
}
