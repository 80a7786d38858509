package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"poke-mcp/internal/tool"
)

// maxFrameSize bounds a single standard-stream request line.
const maxFrameSize = 1 << 20

// StandardStreamTransport serves the tool protocol over a byte stream pair,
// one JSON envelope per line. Requests are strictly serialized: each
// response is fully written before the next request is read.
type StandardStreamTransport struct {
	dispatcher *tool.Dispatcher
	in         io.Reader
	out        io.Writer
	log        *logrus.Entry
}

// NewStandardStreamTransport returns a transport reading envelopes from in
// and writing responses to out.
func NewStandardStreamTransport(d *tool.Dispatcher, in io.Reader, out io.Writer) *StandardStreamTransport {
	return &StandardStreamTransport{
		dispatcher: d,
		in:         in,
		out:        out,
		log:        logrus.WithField("component", "stdio"),
	}
}

// Run reads and answers requests until the input stream ends. End-of-stream
// is a clean exit, not an error. A line that cannot be decoded yields a
// protocol-level error envelope and the loop continues.
func (t *StandardStreamTransport) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	enc := json.NewEncoder(t.out)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var req CallRequest
		if err := json.Unmarshal(line, &req); err != nil {
			if err := enc.Encode(errorEnvelope{Error: "malformed request: " + err.Error()}); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			continue
		}
		res := t.dispatcher.Dispatch(ctx, tool.Invocation{Tool: req.Tool, Arguments: req.Arguments})
		observeCall(req.Tool, res)
		if err := enc.Encode(envelopeFor(res)); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	t.log.Info("input stream closed, exiting")
	return nil
}
