package iocli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrInvalidChoice введен вариант, которого нет в списке
var ErrInvalidChoice = errors.New("invalid choice")

// Stdio реализация IO поверх терминала.
// Если вход не терминал (pipe, тесты), пароль и выбор читаются построчно.
type Stdio struct {
	in     *bufio.Reader
	out    io.Writer
	inFile *os.File
}

// NewStdio creates IO bound to the process stdin/stdout
func NewStdio() IO {
	return &Stdio{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		inFile: os.Stdin,
	}
}

// New creates IO over arbitrary streams; prompts never touch the terminal
func New(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if !s.isTerminal() {
		return s.ReadInput(prompt)
	}
	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(int(s.inFile.Fd()))
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

func (s *Stdio) Select(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrInvalidChoice
	}
	if s.isTerminal() {
		var choice string
		err := huh.NewSelect[string]().
			Title(title).
			Options(huh.NewOptions(options...)...).
			Value(&choice).
			Run()
		if err != nil {
			return "", err
		}
		return choice, nil
	}

	s.Println(title)
	for i, opt := range options {
		s.Printf("  %d) %s\n", i+1, opt)
	}
	input, err := s.ReadInput("> ")
	if err != nil {
		return "", err
	}
	if slices.Contains(options, input) {
		return input, nil
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(options) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, input)
	}
	return options[n-1], nil
}

func (s *Stdio) isTerminal() bool {
	return s.inFile != nil && term.IsTerminal(int(s.inFile.Fd()))
}
