package switching

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Options are the two independent conversion flags. Both default to false,
// in which case every message is ignored.
type Options struct {
	ConvertSwitchControlToCommand bool `json:"convert_switch_control_to_command"`
	ConvertCommandToSwitchControl bool `json:"convert_command_to_switch_control"`
}

// Direction names the translator a message was dispatched to.
type Direction string

const (
	DirectionNone                   Direction = "none"
	DirectionSwitchControlToCommand Direction = "switch_control_to_command"
	DirectionCommandToSwitchControl Direction = "command_to_switch_control"
)

// Outcome is what happened to one inbound message.
type Outcome string

const (
	// OutcomeIgnored: the PGN or flags did not select a translator.
	OutcomeIgnored Outcome = "ignored"

	// OutcomeSkipped: a Command that is not a switch command. Not an error.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeTranslated: exactly one message was produced.
	OutcomeTranslated Outcome = "translated"

	// OutcomeFailed: the translator or the emitter returned an error.
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome of routing one message, before emission.
type Result struct {
	Direction Direction
	Outcome   Outcome
	Output    *OutboundMessage
	Err       error
}

// Route selects and runs the translator for msg. It has no side effects.
func Route(msg InboundMessage, opts Options, snapshot Snapshot) Result {
	switch {
	case opts.ConvertSwitchControlToCommand && msg.PGN == PGNSwitchControl:
		res := Result{Direction: DirectionSwitchControlToCommand}
		out, err := SwitchControlToCommand(msg, snapshot)
		if err != nil {
			res.Outcome, res.Err = OutcomeFailed, err
			return res
		}
		res.Outcome, res.Output = OutcomeTranslated, &out
		return res

	case opts.ConvertCommandToSwitchControl && msg.PGN == PGNCommandGroupFunction:
		res := Result{Direction: DirectionCommandToSwitchControl}
		out, ok, err := CommandToSwitchControl(msg)
		switch {
		case err != nil:
			res.Outcome, res.Err = OutcomeFailed, err
		case !ok:
			res.Outcome = OutcomeSkipped
		default:
			res.Outcome, res.Output = OutcomeTranslated, &out
		}
		return res

	default:
		return Result{Direction: DirectionNone, Outcome: OutcomeIgnored}
	}
}

// Emitter hands a translated message to the bus. Emission is fire and
// forget; an error only means the message did not leave this process.
type Emitter interface {
	Emit(msg OutboundMessage) error
}

// SnapshotSource supplies the registry view used for one dispatch.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// Diagnostics receives one Event per handled message.
type Diagnostics interface {
	Report(ev Event)
}

// Event describes the handling of one inbound message.
type Event struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Direction Direction        `json:"direction"`
	Outcome   Outcome          `json:"outcome"`
	InputPGN  int              `json:"input_pgn"`
	Output    *OutboundMessage `json:"output,omitempty"`
	Error     string           `json:"error,omitempty"`

	// Err is the underlying error for in-process consumers.
	Err error `json:"-"`
}

// ErrEmitFailed wraps an emitter failure reported in an Event.
var ErrEmitFailed = errors.New("switching: emit failed")

// RouterOptions configures a Router.
type RouterOptions struct {
	Options     Options
	Source      SnapshotSource
	Emitter     Emitter
	Diagnostics Diagnostics // optional
}

// Router dispatches inbound messages to the translators and emits the
// results. It keeps no state between messages.
type Router struct {
	opts    Options
	source  SnapshotSource
	emitter Emitter
	diag    Diagnostics
}

// NewRouter creates a Router. Source and Emitter are required.
func NewRouter(opts RouterOptions) (*Router, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("snapshot source is required")
	}
	if opts.Emitter == nil {
		return nil, fmt.Errorf("emitter is required")
	}
	return &Router{
		opts:    opts.Options,
		source:  opts.Source,
		emitter: opts.Emitter,
		diag:    opts.Diagnostics,
	}, nil
}

// Options returns the conversion flags the router was built with.
func (r *Router) Options() Options {
	return r.opts
}

// Handle routes, translates and emits one message. Errors never escape:
// they are recorded in the returned Event and passed to Diagnostics, and
// the next message is handled normally.
func (r *Router) Handle(msg InboundMessage) Event {
	var snapshot Snapshot
	if r.opts.ConvertSwitchControlToCommand && msg.PGN == PGNSwitchControl {
		snapshot = r.source.Snapshot()
	}

	res := Route(msg, r.opts, snapshot)

	if res.Outcome == OutcomeTranslated {
		if err := r.emitter.Emit(*res.Output); err != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("%w: %w", ErrEmitFailed, err)
		}
	}

	ev := NewEvent(msg, res)
	if r.diag != nil {
		r.diag.Report(ev)
	}
	return ev
}

// NewEvent builds the diagnostic record for a routing result.
func NewEvent(msg InboundMessage, res Result) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Direction: res.Direction,
		Outcome:   res.Outcome,
		InputPGN:  msg.PGN,
		Output:    res.Output,
		Err:       res.Err,
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}
