// Package ipc carries command lines from the front-end to the resident
// service over a loopback TCP connection.
//
// The protocol is line based. The client writes one command token per line
// and the server answers each with a single line: "ok", "ignored" or
// "err <message>".
package ipc

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultAddr is the fixed service address.
const DefaultAddr = "127.0.0.1:54345"

// ErrTestCommand is the error the service answers the test command with.
var ErrTestCommand = errors.New("test error")

// Status is the first word of a response line.
type Status string

const (
	StatusOK      Status = "ok"
	StatusIgnored Status = "ignored"
	StatusError   Status = "err"
)

// Response is the server's answer to one command.
type Response struct {
	Status  Status
	Message string
}

func (r Response) String() string {
	if r.Message == "" {
		return string(r.Status)
	}
	return string(r.Status) + " " + r.Message
}

// Err returns a *RemoteError for error responses.
func (r Response) Err() error {
	if r.Status == StatusError {
		return &RemoteError{Message: r.Message}
	}
	return nil
}

// ParseResponse reads a response line.
func ParseResponse(line string) (Response, error) {
	word, msg, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch s := Status(word); s {
	case StatusOK, StatusIgnored, StatusError:
		return Response{Status: s, Message: strings.TrimSpace(msg)}, nil
	default:
		return Response{}, fmt.Errorf("malformed response %q", line)
	}
}

// RemoteError is a command failure reported by the service.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "service: " + e.Message
}

// DeliveryError means the command could not be handed to the service.
type DeliveryError struct {
	Addr string
	Op   string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("could not deliver command to %s (%s): %v", e.Addr, e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
