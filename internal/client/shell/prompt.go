package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompter reads answers from the user. The REPL and the renderer share one
// Prompter so acknowledgments consume input in order.
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter reads from in and prints prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Ask prints label and returns the trimmed answer. ok is false at end of input.
func (p *Prompter) Ask(label string) (answer string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}
