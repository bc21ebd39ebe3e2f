// Package clip copies answers out of the terminal: the native clipboard
// first, then an OSC52 escape sequence, then a temp file.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is how the text was made available.
type Method string

const (
	MethodNative Method = "native"
	MethodOSC52  Method = "osc52"
	MethodFile   Method = "file"
)

// Result reports where the text went. FilePath is set for MethodFile.
type Result struct {
	Method   Method
	FilePath string
}

// Terminals drop or stall on larger OSC52 payloads.
const osc52LimitBytes = 100_000

// Copier tries each copy mechanism in order.
type Copier struct {
	native  func(string) error
	tty     io.Writer
	isTTY   func() bool
	env     func(string) string
	tempDir string
}

// New returns a Copier using the system clipboard and stderr for OSC52.
func New() *Copier {
	return &Copier{
		native: atotto.WriteAll,
		tty:    os.Stderr,
		isTTY:  func() bool { return term.IsTerminal(int(os.Stderr.Fd())) },
		env:    os.Getenv,
	}
}

// Copy makes text available to paste and reports how.
func (c *Copier) Copy(text string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}
	if err := c.native(text); err == nil {
		return Result{Method: MethodNative}, nil
	}
	if err := c.writeOSC52(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}
	path, err := c.writeTempFile(text)
	if err != nil {
		return Result{}, err
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

func (c *Copier) writeOSC52(text string) error {
	if !c.isTTY() {
		return errors.New("not a terminal")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}
	seq := osc52.New(text).Limit(osc52LimitBytes)
	switch {
	case c.env("TMUX") != "":
		seq = seq.Tmux()
	case c.env("STY") != "":
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(c.tty)
	return err
}

func (c *Copier) writeTempFile(text string) (path string, err error) {
	f, err := os.CreateTemp(c.tempDir, "hybridqa-answer-*.txt")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	if _, err = f.WriteString(text); err != nil {
		_ = f.Close()
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
