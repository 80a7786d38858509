package tool

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Invocation is one tool call as decoded from a transport envelope.
type Invocation struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Dispatcher resolves invocations against a registry and runs the handler.
// Every outcome, including a handler panic, is folded into a Result; the
// transports never see a raised fault from tool execution.
type Dispatcher struct {
	registry *Registry
	log      *logrus.Entry
}

// NewDispatcher returns a dispatcher over reg.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		log:      logrus.WithField("component", "dispatch"),
	}
}

// Dispatch produces exactly one Result for inv.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) (res Result) {
	desc, err := d.registry.Resolve(inv.Tool)
	if err != nil {
		return Fail(KindUnknownTool, err.Error(), err)
	}
	if err := desc.validate(inv.Arguments); err != nil {
		d.log.WithField("tool", inv.Tool).Warnf("invalid arguments: %v", err)
		return Fail(KindInvalidArguments, fmt.Sprintf("%s: invalid arguments: %v", inv.Tool, err), err)
	}
	defer func() {
		if p := recover(); p != nil {
			d.log.WithField("tool", inv.Tool).Errorf("handler panic: %v", p)
			res = Fail(KindHandlerError, fmt.Sprintf("%s: handler panic: %v", inv.Tool, p), nil)
		}
	}()
	payload, err := desc.handler(ctx, inv.Arguments)
	if err != nil {
		d.log.WithField("tool", inv.Tool).Errorf("handler failed: %v", err)
		return Fail(KindHandlerError, fmt.Sprintf("%s: %v", inv.Tool, err), err)
	}
	return Succeed(payload)
}
