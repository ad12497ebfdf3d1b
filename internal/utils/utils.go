package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps an exec.Cmd and keeps the tail of its stderr so crash
// output (ffmpeg logs) survives the process.
type SafeCommand struct {
	*exec.Cmd
	Stderr *TailBuffer
}

// NewSafeCommand prepares a context-bound command with stderr captured.
// It does not start the command.
func NewSafeCommand(ctx context.Context, name string, args ...string) *SafeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := NewTailBuffer(64 * 1024)
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// TailBuffer is an io.Writer that keeps only the last max bytes written.
// Long-running decoders would otherwise grow an unbounded stderr buffer.
type TailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

// NewTailBuffer returns a buffer bounded to max bytes.
func NewTailBuffer(max int) *TailBuffer {
	return &TailBuffer{max: max}
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, _ := t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

// Len returns the number of retained bytes.
func (t *TailBuffer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Len()
}

func (t *TailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// ShowError prints the boxed error report used by every command: context line,
// error details, operator hints and any captured subprocess logs, whether passed
// in s or attached to err with WithSubprocessLogs.
func ShowError(w io.Writer, context string, err error, s *SafeCommand) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 LOOKOUT ERROR: %s\n", context)
	var logs []string
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(w, "HINT: %s\n", hint)
		}
		logs = errors.GetAllDetails(err)
	}
	if s != nil && s.Stderr.Len() > 0 {
		logs = append(logs, s.Stderr.String())
	}

	if len(logs) > 0 {
		fmt.Fprintf(w, "\nSUBPROCESS LOGS:\n")
		for _, l := range logs {
			fmt.Fprintf(w, "%s\n", l)
		}
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// WithSubprocessLogs attaches the captured stderr of s to err so the report
// printed at the top of the command can show it.
func WithSubprocessLogs(err error, s *SafeCommand) error {
	if err == nil || s == nil || s.Stderr.Len() == 0 {
		return err
	}
	return errors.WithDetail(err, s.Stderr.String())
}

// Die reports the error on stderr and exits.
func Die(context string, err error, s *SafeCommand) {
	ShowError(os.Stderr, context, err, s)
	os.Exit(1)
}

// --- 2. Video Decoding ---

// NewFFmpegRawDecoder builds an ffmpeg pipe that scales input to width x height
// and writes tightly packed RGBA frames to stdout. loop replays file inputs forever.
func NewFFmpegRawDecoder(ctx context.Context, input string, width, height int, loop bool) *SafeCommand {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if loop {
		args = append(args, "-stream_loop", "-1")
	}
	// -re paces file inputs at their native rate, like a live device.
	args = append(args, "-re", "-i", input,
		"-vf", "scale="+strconv.Itoa(width)+":"+strconv.Itoa(height),
		"-f", "rawvideo", "-pix_fmt", "rgba", "-")
	return NewSafeCommand(ctx, "ffmpeg", args...)
}
