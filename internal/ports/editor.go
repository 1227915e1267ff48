package ports

import "os/exec"

// EditorOpener opens chapter and state files for manual fixes
type EditorOpener interface {
	// OpenFile blocks until the editor exits
	OpenFile(path string) error

	// Command builds the editor process without starting it, so a
	// terminal UI can suspend itself around it
	Command(path string) (*exec.Cmd, error)
}
