package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

const (
	captureMaxBytes = 256 * 1024
	termGraceMs     = 2000
)

type toolResult struct {
	exitCode int
	stdout   string
	stderr   string
	timedOut bool
	startErr string
}

// limitedBuffer caps captured output so a misbehaving tool cannot balloon
// memory; overflow is discarded, not an error.
type limitedBuffer struct {
	max int
	buf bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	remain := b.max - b.buf.Len()
	if remain > 0 {
		if remain > len(p) {
			remain = len(p)
		}
		_, _ = b.buf.Write(p[:remain])
	}
	return n, nil
}

// runTool executes argv[0] with argv[1:] as a plain argument vector. No
// shell is ever involved, so no argument value can be reinterpreted as
// shell syntax.
func runTool(argv []string, timeoutMs int) toolResult {
	cmd := exec.Command(argv[0], argv[1:]...)
	outBuf := &limitedBuffer{max: captureMaxBytes}
	errBuf := &limitedBuffer{max: captureMaxBytes}
	cmd.Stdout = outBuf
	cmd.Stderr = errBuf
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		var ee *exec.Error
		if errors.As(err, &ee) {
			return toolResult{exitCode: -1, startErr: fmt.Sprintf("program %s not found", argv[0])}
		}
		return toolResult{exitCode: -1, startErr: fmt.Sprintf("program %s start failed", argv[0])}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	if timeoutMs <= 0 {
		timeoutMs = 30000
	}
	timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer timer.Stop()

	var runErr error
	timedOut := false
	select {
	case runErr = <-done:
	case <-timer.C:
		timedOut = true
		signalProcess(cmd, syscall.SIGTERM)
		grace := time.NewTimer(termGraceMs * time.Millisecond)
		select {
		case runErr = <-done:
			grace.Stop()
		case <-grace.C:
			signalProcess(cmd, syscall.SIGKILL)
			runErr = <-done
		}
	}
	res := toolResult{stdout: outBuf.buf.String(), stderr: errBuf.buf.String(), timedOut: timedOut}
	if timedOut {
		res.exitCode = -2
		return res
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.exitCode = exitErr.ExitCode()
			return res
		}
		res.exitCode = -1
		return res
	}
	return res
}

func signalProcess(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(sig)
}
