package prompter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from in and writes prompts to out
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// New returns a prompter over in and out. Password input is hidden only
// when in is the terminal on fd.
func New(in io.Reader, out io.Writer, fd int) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

var std = New(os.Stdin, os.Stdout, int(os.Stdin.Fd()))

func (p *Prompter) readLine() (string, error) {
	input, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// String prompts for a line of input
func (p *Prompter) String(label string) (string, error) {
	fmt.Fprint(p.out, label)
	return p.readLine()
}

// Password prompts for input without echo when reading from a terminal
func (p *Prompter) Password(label string) (string, error) {
	fmt.Fprint(p.out, label)

	if !term.IsTerminal(p.fd) {
		return p.readLine()
	}

	bytepw, err := term.ReadPassword(p.fd)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(p.out)
	return string(bytepw), nil
}

// Confirm prompts for yes/no confirmation
func (p *Prompter) Confirm(label string) (bool, error) {
	fmt.Fprint(p.out, label+" (y/n) ")
	input, err := p.readLine()
	if err != nil {
		return false, err
	}

	response := strings.ToLower(input)
	return response == "y" || response == "yes", nil
}

// Select prompts to pick one of options and returns its index
func (p *Prompter) Select(label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("nothing to select")
	}

	fmt.Fprintln(p.out, label)
	for i, opt := range options {
		fmt.Fprintf(p.out, "%d) %s\n", i+1, opt)
	}

	fmt.Fprint(p.out, "Select option: ")
	input, err := p.readLine()
	if err != nil {
		return -1, err
	}

	selection, err := strconv.Atoi(input)
	if err != nil || selection < 1 || selection > len(options) {
		return -1, fmt.Errorf("invalid selection: %q", input)
	}
	return selection - 1, nil
}

// Default returns the prompter bound to the process's stdin and stdout
func Default() *Prompter {
	return std
}
