package editor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"continuity/internal/ports"
)

// Opener implements ports.EditorOpener for chapter and state files
type Opener struct {
	preferred string
	lookPath  func(string) (string, error)
	getenv    func(string) string
}

// Ensure Opener implements EditorOpener
var _ ports.EditorOpener = (*Opener)(nil)

// fallbacks are tried in order when nothing is configured
var fallbacks = []string{"nvim", "vim", "vi", "nano", "code"}

// NewOpener creates an opener. preferred may carry arguments ("code -w") and
// wins over $EDITOR and $VISUAL when set.
func NewOpener(preferred string) *Opener {
	return &Opener{
		preferred: preferred,
		lookPath:  exec.LookPath,
		getenv:    os.Getenv,
	}
}

// OpenFile opens path in the editor and waits for it to exit
func (o *Opener) OpenFile(path string) error {
	cmd, err := o.Command(path)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// Command returns an exec.Cmd that opens path, for bubbletea's ExecProcess
func (o *Opener) Command(path string) (*exec.Cmd, error) {
	argv := o.resolve()
	if len(argv) == 0 {
		return nil, fmt.Errorf("no editor found: set CONTINUITY_EDITOR or $EDITOR")
	}

	cmd := exec.Command(argv[0], append(argv[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// resolve returns the editor program and its leading arguments
func (o *Opener) resolve() []string {
	for _, candidate := range []string{o.preferred, o.getenv("EDITOR"), o.getenv("VISUAL")} {
		if argv := strings.Fields(candidate); len(argv) > 0 {
			return argv
		}
	}
	for _, name := range fallbacks {
		if path, err := o.lookPath(name); err == nil {
			return []string{path}
		}
	}
	return nil
}
