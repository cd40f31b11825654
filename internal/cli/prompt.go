// Package cli holds the interactive terminal flows. Everything reads from
// an io.Reader and writes to an io.Writer so flows run the same against a
// terminal or a scripted buffer.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInputClosed means the input ended before a flow finished.
var ErrInputClosed = errors.New("input closed")

type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(r), out: w}
}

func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Ask prints label and returns the trimmed answer.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AskDefault returns def when the answer is blank.
func (p *Prompter) AskDefault(label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	v, err := p.Ask(label)
	if err != nil {
		return "", err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

// AskRequired re-asks until the answer is not blank.
func (p *Prompter) AskRequired(label string) (string, error) {
	for {
		v, err := p.Ask(label)
		if err != nil || v != "" {
			return v, err
		}
		p.Printf("  a value is required\n")
	}
}

// AskInt re-asks until the answer is an integer. A blank answer yields def.
func (p *Prompter) AskInt(label string, def int) (int, error) {
	for {
		v, err := p.AskDefault(label, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(v)
		if err == nil {
			return n, nil
		}
		p.Printf("  %q is not a whole number\n", v)
	}
}

// AskList splits a comma or space separated answer.
func (p *Prompter) AskList(label string) ([]string, error) {
	v, err := p.Ask(label)
	if err != nil {
		return nil, err
	}
	return splitList(v), nil
}

// AskIntList re-asks until every element is an integer.
func (p *Prompter) AskIntList(label string) ([]int, error) {
	for {
		items, err := p.AskList(label)
		if err != nil {
			return nil, err
		}
		out, bad := make([]int, 0, len(items)), ""
		for _, s := range items {
			n, err := strconv.Atoi(s)
			if err != nil {
				bad = s
				break
			}
			out = append(out, n)
		}
		if bad == "" {
			return out, nil
		}
		p.Printf("  %q is not a whole number\n", bad)
	}
}

// Choose lists options and accepts either a number or an option name.
func (p *Prompter) Choose(label string, options []string, def string) (string, error) {
	for i, o := range options {
		p.Printf("  %2d) %s\n", i+1, o)
	}
	for {
		v, err := p.AskDefault(label, def)
		if err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		for _, o := range options {
			if strings.EqualFold(o, v) {
				return o, nil
			}
		}
		p.Printf("  pick 1-%d or type a name\n", len(options))
	}
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
