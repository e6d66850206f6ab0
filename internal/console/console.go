// Package console implements the acknowledgement gate shown after a fatal
// script error, so a user who started the launcher without a terminal of
// their own can read the diagnostic before the console window closes.
package console

import (
	"io"
	"os"
	"runtime"

	"golang.org/x/term"

	"github.com/makehuman/mhlaunch/internal/config"
)

// Prompt is written before waiting for a key.
const Prompt = "Press any key to exit..."

// Gate waits for one keypress on In.
type Gate struct {
	In     *os.File
	Out    io.Writer
	Policy string
	GOOS   string
}

// NewGate returns a gate on the process's stdin and stderr.
func NewGate(policy string) *Gate {
	return &Gate{
		In:     os.Stdin,
		Out:    os.Stderr,
		Policy: policy,
		GOOS:   runtime.GOOS,
	}
}

// ShouldPause applies the policy: "always", "never", or "auto", which pauses
// only on Windows and only when stdin is an interactive console.
func (g *Gate) ShouldPause() bool {
	switch g.Policy {
	case config.PauseAlways:
		return true
	case config.PauseNever:
		return false
	default:
		return g.GOOS == "windows" && g.In != nil && term.IsTerminal(int(g.In.Fd()))
	}
}

// Wait blocks until a single key is read. On a terminal the key is taken in
// raw mode so no Enter is needed; otherwise one byte is read from In.
func (g *Gate) Wait() error {
	if g.In == nil {
		return nil
	}
	if g.Out != nil {
		io.WriteString(g.Out, Prompt)
		defer io.WriteString(g.Out, "\n")
	}

	fd := int(g.In.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err == nil {
			defer term.Restore(fd, state)
		}
	}

	return ReadKey(g.In)
}

// ReadKey consumes one byte from r. End of input counts as a key.
func ReadKey(r io.Reader) error {
	buf := make([]byte, 1)
	_, err := r.Read(buf)
	if err == io.EOF {
		return nil
	}
	return err
}

// PauseIfNeeded waits for a key when the policy asks for it.
func (g *Gate) PauseIfNeeded() (bool, error) {
	if !g.ShouldPause() {
		return false, nil
	}
	return true, g.Wait()
}
