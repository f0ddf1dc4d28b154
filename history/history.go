// Package history is the only path through which a flowchart graph is
// mutated once built. Every change is a Command; History applies it,
// keeps it on a linear undo stack and replays or reverses it on demand.
//
// History is not safe for concurrent use. Commands are applied in the
// order submitted and undo/redo reverse that order strictly.
package history

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/graph"
)

// DefaultLimit is the undo depth used by callers that do not choose one.
const DefaultLimit = 100

// Observer receives history events. Implementations must not call back
// into the History.
type Observer interface {
	OnApply(command string, undoDepth int)
	OnUndo(command string, undoDepth int)
	OnRedo(command string, undoDepth int)
	OnEvict(command string)
	OnReset()
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnApply(string, int) {}
func (NopObserver) OnUndo(string, int)  {}
func (NopObserver) OnRedo(string, int)  {}
func (NopObserver) OnEvict(string)      {}
func (NopObserver) OnReset()            {}

// Option configures a History.
type Option func(*History)

// WithLimit caps the undo stack. When the cap is exceeded the oldest entry
// is dropped silently. Zero or less means unbounded.
func WithLimit(n int) Option {
	return func(h *History) {
		h.limit = n
	}
}

// WithObserver registers an observer for history events.
func WithObserver(o Observer) Option {
	return func(h *History) {
		if o != nil {
			h.obs = o
		}
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l *log.Logger) Option {
	return func(h *History) {
		if l != nil {
			h.logger = l
		}
	}
}

// History owns a graph.Model and the undo/redo stacks built on it.
type History struct {
	model  *graph.Model
	undo   []Command
	redo   []Command
	limit  int
	obs    Observer
	logger *log.Logger
}

// New wraps model. The model must not be mutated through any other path
// afterwards.
func New(model *graph.Model, opts ...Option) *History {
	h := &History{
		model:  model,
		obs:    NopObserver{},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Model returns read access to the graph.
func (h *History) Model() graph.View { return h.model }

// Apply executes cmd, pushes it on the undo stack and clears the redo
// stack. A failing command leaves the model, both stacks and the
// observer untouched.
func (h *History) Apply(cmd Command) error {
	if cmd == nil {
		return errors.New("history: nil command")
	}
	if err := cmd.Apply(h.model); err != nil {
		h.logger.Debug("command rejected", "command", cmd.Name(), "err", err)
		return err
	}
	h.undo = append(h.undo, cmd)
	h.redo = nil
	if h.limit > 0 && len(h.undo) > h.limit {
		evicted := h.undo[0]
		h.undo = append(h.undo[:0], h.undo[1:]...)
		h.obs.OnEvict(evicted.Name())
	}
	h.logger.Debug("command applied", "command", cmd.Name(), "undo", len(h.undo))
	h.obs.OnApply(cmd.Name(), len(h.undo))
	return nil
}

// Undo reverses the most recent command and moves it to the redo stack.
func (h *History) Undo() error {
	if len(h.undo) == 0 {
		return flowchart.ErrNothingToUndo
	}
	cmd := h.undo[len(h.undo)-1]
	if err := cmd.Revert(h.model); err != nil {
		return fmt.Errorf("history: undo %s: %w", cmd.Name(), err)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	h.logger.Debug("command undone", "command", cmd.Name(), "undo", len(h.undo))
	h.obs.OnUndo(cmd.Name(), len(h.undo))
	return nil
}

// Redo re-applies the most recently undone command.
func (h *History) Redo() error {
	if len(h.redo) == 0 {
		return flowchart.ErrNothingToRedo
	}
	cmd := h.redo[len(h.redo)-1]
	if err := cmd.Apply(h.model); err != nil {
		return fmt.Errorf("history: redo %s: %w", cmd.Name(), err)
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	h.logger.Debug("command redone", "command", cmd.Name(), "undo", len(h.undo))
	h.obs.OnRedo(cmd.Name(), len(h.undo))
	return nil
}

// CanUndo reports whether Undo would do anything.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo would do anything.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// UndoDepth returns the number of undoable commands.
func (h *History) UndoDepth() int { return len(h.undo) }

// RedoDepth returns the number of redoable commands.
func (h *History) RedoDepth() int { return len(h.redo) }

// Reset swaps in a new model and forgets all history.
func (h *History) Reset(model *graph.Model) {
	h.model = model
	h.undo = nil
	h.redo = nil
	h.logger.Debug("history reset")
	h.obs.OnReset()
}
