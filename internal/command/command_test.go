package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line   string
		want   Command
		wantOK bool
	}{
		{"/switch", Command{Op: Switch}, true},
		{"/swap", Command{Op: Swap}, true},
		{"/dark", Command{Op: Dark}, true},
		{"/light\n", Command{Op: Light}, true},
		{"/update", Command{Op: Update}, true},
		{"/location", Command{Op: Location}, true},
		{"/removeTask", Command{Op: RemoveScheduledTask}, true},
		{"/removeAutostart", Command{Op: RemoveAutostart}, true},
		{"/pipeclienttest", Command{Op: Test}, true},
		{"/shutdown", Command{Op: Shutdown}, true},
		{"/forget Aqua Dark", Command{Op: Forget, Payload: "Aqua Dark"}, true},
		{"  /dark  extra payload ", Command{Op: Dark, Payload: "extra payload"}, true},
		{"/DARK", Command{}, false},
		{"dark", Command{}, false},
		{"/unknown", Command{}, false},
		{"", Command{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := Parse(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpcode_TokenRoundTrip(t *testing.T) {
	for _, op := range Opcodes() {
		cmd, ok := Parse(op.Token())
		require.True(t, ok, op.String())
		assert.Equal(t, op, cmd.Op)
	}
}

func TestOpcode_String(t *testing.T) {
	assert.Equal(t, "removeTask", RemoveScheduledTask.String())
	assert.Equal(t, "opcode(99)", Opcode(99).String())
	assert.Equal(t, "", Opcode(99).Token())
}

func TestLookup(t *testing.T) {
	op, ok := Lookup("dark")
	assert.True(t, ok)
	assert.Equal(t, Dark, op)

	op, ok = Lookup("/removeAutostart")
	assert.True(t, ok)
	assert.Equal(t, RemoveAutostart, op)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "/dark", Command{Op: Dark}.String())
	assert.Equal(t, "/dark now", Command{Op: Dark, Payload: "now"}.String())
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()

	var got []Command
	d.Handle(Dark, func(ctx context.Context, cmd Command) error {
		got = append(got, cmd)
		return nil
	})
	d.Handle(Test, func(ctx context.Context, cmd Command) error {
		return errors.New("test command")
	})

	handled, err := d.Dispatch(context.Background(), Command{Op: Dark})
	assert.True(t, handled)
	assert.NoError(t, err)
	assert.Equal(t, []Command{{Op: Dark}}, got)

	handled, err = d.Dispatch(context.Background(), Command{Op: Test})
	assert.True(t, handled)
	assert.EqualError(t, err, "test command")

	handled, err = d.Dispatch(context.Background(), Command{Op: Light})
	assert.False(t, handled)
	assert.NoError(t, err)
}
