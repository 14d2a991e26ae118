// Package cli provides the line-oriented console for querying a response
// ruleset: terminal I/O, outcome formatting and meta-command dispatch.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/responsecore/engine"
)

// CLI reads queries from In and writes responses to Out.
type CLI struct {
	Session   *Session
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)
}

// New creates a CLI over the registry's rulesets.
func New(reg *engine.Registry, saveDir string) *CLI {
	return &CLI{
		Session: NewSession(reg, saveDir),
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run loops: prompt, read a line, execute it, print the output. It returns
// at end of input or on /quit.
func (c *CLI) Run() {
	e := c.Session.Engine()
	c.printSystem(fmt.Sprintf("Ruleset %s: %d rules, %d groups. Type /help for commands.",
		e.Name, e.Ruleset.NumRules(), e.Ruleset.NumGroups()))

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		lines, quit := c.Session.Exec(input)
		for _, line := range lines {
			c.printLine(line)
		}
		if quit {
			return
		}
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	c.printLine(system(text))
}
