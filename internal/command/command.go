// Package command defines the opcodes accepted by the resident service and
// routes them to handlers.
package command

import (
	"fmt"
	"strings"
)

// Opcode identifies a service command.
type Opcode int

const (
	Switch Opcode = iota + 1
	Swap
	Dark
	Light
	Update
	Location
	RemoveScheduledTask
	RemoveAutostart
	Test
	Shutdown
	// Forget drops the learned name given as payload.
	Forget
)

var tokens = map[Opcode]string{
	Switch:              "/switch",
	Swap:                "/swap",
	Dark:                "/dark",
	Light:               "/light",
	Update:              "/update",
	Location:            "/location",
	RemoveScheduledTask: "/removeTask",
	RemoveAutostart:     "/removeAutostart",
	Test:                "/pipeclienttest",
	Shutdown:            "/shutdown",
	Forget:              "/forget",
}

var opcodes = func() map[string]Opcode {
	m := make(map[string]Opcode, len(tokens))
	for op, tok := range tokens {
		m[tok] = op
	}
	return m
}()

// Token returns the wire token for op.
func (op Opcode) Token() string {
	return tokens[op]
}

func (op Opcode) String() string {
	if tok, ok := tokens[op]; ok {
		return strings.TrimPrefix(tok, "/")
	}
	return fmt.Sprintf("opcode(%d)", int(op))
}

// Opcodes returns every known opcode in declaration order.
func Opcodes() []Opcode {
	return []Opcode{Switch, Swap, Dark, Light, Update, Location, RemoveScheduledTask, RemoveAutostart, Test, Shutdown, Forget}
}

// Command is an opcode with an optional payload.
type Command struct {
	Op      Opcode
	Payload string
}

func (c Command) String() string {
	if c.Payload == "" {
		return c.Op.Token()
	}
	return c.Op.Token() + " " + c.Payload
}

// Parse reads one command line. Tokens are matched exactly; anything after
// the first space is the payload. ok is false for unknown tokens.
func Parse(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	tok, payload, _ := strings.Cut(line, " ")

	op, ok := opcodes[tok]
	if !ok {
		return Command{}, false
	}
	return Command{Op: op, Payload: strings.TrimSpace(payload)}, true
}

// Lookup resolves a bare command name such as "dark" or "/dark".
func Lookup(name string) (Opcode, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	op, ok := opcodes[name]
	return op, ok
}
