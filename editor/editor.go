// Package editor is the session façade a host application drives: it owns
// one graph, its history and the interaction controller, routes pointer
// events and direct commands through the history, and loads and saves
// documents.
//
// An Editor is not safe for concurrent use; hosts serialise calls the way
// a UI event loop does.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/codec"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/graph"
	"github.com/meikuraledutech/flowchart/history"
	"github.com/meikuraledutech/flowchart/interact"
)

// ErrGestureActive is returned by every mutating call made while a pointer
// gesture is in progress. The call is refused, not queued.
var ErrGestureActive = errors.New("editor: gesture in progress")

// Config holds the editor settings.
type Config struct {
	Interact     interact.Config
	HistoryLimit int
	NodeSize     geom.Size
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Interact:     interact.DefaultConfig(),
		HistoryLimit: history.DefaultLimit,
		NodeSize:     flowchart.DefaultNodeSize,
	}
}

// Option configures an Editor.
type Option func(*Editor)

// WithObserver forwards history events to o.
func WithObserver(o history.Observer) Option {
	return func(e *Editor) {
		e.obs = o
	}
}

// WithLogger sets the logger for the editor and its history.
func WithLogger(l *log.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Editor is one open flowchart document.
type Editor struct {
	cfg    Config
	hist   *history.History
	ctrl   *interact.Controller
	obs    history.Observer
	logger *log.Logger

	// counter numbers default labels and groupN default group names;
	// both restart on Reset and continue from the counts after Load.
	counter int
	groupN  int
	dirty   bool
}

// New creates an editor over an empty document.
func New(cfg Config, opts ...Option) *Editor {
	e := &Editor{
		cfg:    cfg,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	model := e.newModel()
	hopts := []history.Option{history.WithLimit(cfg.HistoryLimit), history.WithLogger(e.logger)}
	if e.obs != nil {
		hopts = append(hopts, history.WithObserver(e.obs))
	}
	e.hist = history.New(model, hopts...)
	e.ctrl = interact.New(model, cfg.Interact)
	return e
}

func (e *Editor) graphOptions() []graph.Option {
	if e.cfg.NodeSize == (geom.Size{}) {
		return nil
	}
	return []graph.Option{graph.WithNodeSize(e.cfg.NodeSize)}
}

func (e *Editor) newModel() *graph.Model { return graph.New(e.graphOptions()...) }

// View returns read access to the current graph.
func (e *Editor) View() graph.View { return e.hist.Model() }

// Dirty reports whether the document changed since it was last loaded,
// saved or reset.
func (e *Editor) Dirty() bool { return e.dirty }

func (e *Editor) apply(cmd history.Command) error {
	if err := e.hist.Apply(cmd); err != nil {
		return err
	}
	e.dirty = true
	e.ctrl.Prune()
	return nil
}

func (e *Editor) idle() error {
	if e.ctrl.Busy() {
		return ErrGestureActive
	}
	return nil
}

// AddNode creates a node and returns its id. An empty label becomes
// "nodeN", numbered per session.
func (e *Editor) AddNode(kind flowchart.Kind, pos geom.Point, label string) (string, error) {
	if err := e.idle(); err != nil {
		return "", err
	}
	if !kind.Valid() {
		return "", fmt.Errorf("editor: add node: invalid kind %s", kind)
	}
	if label == "" {
		label = fmt.Sprintf("node%d", e.counter+1)
	}
	cmd := history.NewCreateNode(kind, pos, label)
	if err := e.apply(cmd); err != nil {
		return "", err
	}
	e.counter++
	return cmd.ID(), nil
}

// DeleteNodes removes the given nodes and their connections as one undo
// step.
func (e *Editor) DeleteNodes(ids ...string) error {
	if err := e.idle(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return e.apply(history.DeleteNodes(ids...))
}

// MoveNode relocates one node. Moving a node onto its current position
// records nothing.
func (e *Editor) MoveNode(id string, pos geom.Point) error {
	if err := e.idle(); err != nil {
		return err
	}
	n, ok := e.View().Node(id)
	if !ok {
		return fmt.Errorf("%w: node %s", flowchart.ErrNotFound, id)
	}
	if n.Position == pos {
		return nil
	}
	return e.apply(history.NewMoveNodes(history.Move{ID: id, From: n.Position, To: pos}))
}

// Connect creates a source -> target connection and returns its id.
func (e *Editor) Connect(source, target string) (string, error) {
	if err := e.idle(); err != nil {
		return "", err
	}
	cmd := history.NewCreateConnection(source, target)
	if err := e.apply(cmd); err != nil {
		return "", err
	}
	return cmd.ID(), nil
}

// Disconnect removes a connection.
func (e *Editor) Disconnect(id string) error {
	if err := e.idle(); err != nil {
		return err
	}
	return e.apply(history.NewDeleteConnection(id))
}

// Rename sets the label of a node. Renaming to the current label records
// nothing.
func (e *Editor) Rename(id, label string) error {
	if err := e.idle(); err != nil {
		return err
	}
	n, ok := e.View().Node(id)
	if !ok {
		return fmt.Errorf("%w: node %s", flowchart.ErrNotFound, id)
	}
	if n.Label == label {
		return nil
	}
	return e.apply(history.NewRenameNode(id, label))
}

// ── Groups ──

func (e *Editor) nextGroupName() string { return fmt.Sprintf("Group %d", e.groupN+1) }

// GroupNodes creates a rectangle group over ids and returns its id. An
// empty name becomes "Group N", numbered per session.
func (e *Editor) GroupNodes(name string, ids ...string) (string, error) {
	if err := e.idle(); err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("editor: group: no nodes")
	}
	if name == "" {
		name = e.nextGroupName()
	}
	cmd := history.NewCreateGroup(name, flowchart.DrawRectangle, ids)
	if err := e.apply(cmd); err != nil {
		return "", err
	}
	e.groupN++
	return cmd.ID(), nil
}

// GroupSelection groups the selected nodes: into the selected group when
// there is one, otherwise into a new group that becomes the selection. It
// returns the id of the group touched, or "" when nothing changed.
func (e *Editor) GroupSelection() (string, error) {
	if err := e.idle(); err != nil {
		return "", err
	}
	cmd := e.ctrl.GroupSelection(e.nextGroupName())
	if cmd == nil {
		return "", nil
	}
	if err := e.apply(cmd); err != nil {
		return "", err
	}
	switch c := cmd.(type) {
	case *history.CreateGroup:
		e.groupN++
		e.ctrl.ClearSelection()
		e.ctrl.SelectGroup(c.ID())
		return c.ID(), nil
	case *history.SetGroupMembers:
		return c.ID, nil
	}
	return "", nil
}

// DeleteGroup removes a group and keeps its nodes.
func (e *Editor) DeleteGroup(id string) error {
	if err := e.idle(); err != nil {
		return err
	}
	return e.apply(history.NewDeleteGroup(id))
}

// RenameGroup sets the name of a group. Renaming to the current name
// records nothing.
func (e *Editor) RenameGroup(id, name string) error {
	if err := e.idle(); err != nil {
		return err
	}
	g, ok := e.View().Group(id)
	if !ok {
		return fmt.Errorf("%w: group %s", flowchart.ErrNotFound, id)
	}
	if g.Name == name {
		return nil
	}
	return e.apply(history.NewRenameGroup(id, name))
}

// SetGroupDrawing switches the outline of a group. Setting the current
// mode records nothing.
func (e *Editor) SetGroupDrawing(id string, d flowchart.GroupDrawing) error {
	if err := e.idle(); err != nil {
		return err
	}
	g, ok := e.View().Group(id)
	if !ok {
		return fmt.Errorf("%w: group %s", flowchart.ErrNotFound, id)
	}
	if g.Drawing == d {
		return nil
	}
	return e.apply(history.NewSetGroupDrawing(id, d))
}

func (e *Editor) SelectGroup(id string) { e.ctrl.SelectGroup(id) }
func (e *Editor) SelectedGroup() string { return e.ctrl.SelectedGroup() }

// Undo reverses the last command.
func (e *Editor) Undo() error {
	if err := e.idle(); err != nil {
		return err
	}
	if err := e.hist.Undo(); err != nil {
		return err
	}
	e.dirty = true
	e.ctrl.Prune()
	return nil
}

// Redo re-applies the last undone command.
func (e *Editor) Redo() error {
	if err := e.idle(); err != nil {
		return err
	}
	if err := e.hist.Redo(); err != nil {
		return err
	}
	e.dirty = true
	e.ctrl.Prune()
	return nil
}

func (e *Editor) CanUndo() bool { return e.hist.CanUndo() }
func (e *Editor) CanRedo() bool { return e.hist.CanRedo() }

// Press forwards a pointer press.
func (e *Editor) Press(p geom.Point, mods interact.Modifiers) { e.ctrl.Press(p, mods) }

// Move forwards a pointer move.
func (e *Editor) Move(p geom.Point) { e.ctrl.Move(p) }

// Release ends the gesture and applies the command it produced, if any.
// A failing command is logged and returned; the graph is unchanged.
func (e *Editor) Release(p geom.Point) error {
	cmd := e.ctrl.Release(p)
	if cmd == nil {
		return nil
	}
	if err := e.apply(cmd); err != nil {
		e.logger.Warn("gesture command rejected", "command", cmd.Name(), "err", err)
		return err
	}
	return nil
}

// DeleteSelection deletes the selected nodes and connection as one undo
// step. With nothing selected it does nothing.
func (e *Editor) DeleteSelection() error {
	if err := e.idle(); err != nil {
		return err
	}
	cmd := e.ctrl.DeleteSelection()
	if cmd == nil {
		return nil
	}
	return e.apply(cmd)
}

func (e *Editor) SelectAll()                 { e.ctrl.SelectAll() }
func (e *Editor) ClearSelection()            { e.ctrl.ClearSelection() }
func (e *Editor) Select(ids ...string)       { e.ctrl.Select(ids...) }
func (e *Editor) Selected() []string         { return e.ctrl.Selected() }
func (e *Editor) SelectedConnection() string { return e.ctrl.SelectedConnection() }

// Document snapshots the current graph.
func (e *Editor) Document() flowchart.Document { return codec.ToDocument(e.View()) }

// Save encodes the current graph and clears the dirty flag.
func (e *Editor) Save(f codec.Format) ([]byte, error) {
	data, err := codec.Marshal(e.View(), f)
	if err != nil {
		return nil, err
	}
	e.dirty = false
	return data, nil
}

// Load replaces the document with the one encoded in data. On any error
// the current graph, history and selection are left exactly as they were.
func (e *Editor) Load(data []byte, f codec.Format) error {
	if err := e.idle(); err != nil {
		return err
	}
	doc, err := codec.Decode(data, f)
	if err != nil {
		return err
	}
	return e.LoadDocument(doc)
}

// LoadDocument replaces the graph with doc under the same rules as Load.
func (e *Editor) LoadDocument(doc flowchart.Document) error {
	if err := e.idle(); err != nil {
		return err
	}
	model, err := codec.FromDocument(doc, e.graphOptions()...)
	if err != nil {
		return err
	}
	e.swap(model)
	e.counter = model.NodeCount()
	e.groupN = len(model.Groups())
	e.logger.Debug("document loaded", "nodes", model.NodeCount(), "connections", model.ConnectionCount(), "groups", e.groupN)
	return nil
}

// Reset replaces the document with an empty one.
func (e *Editor) Reset() error {
	if err := e.idle(); err != nil {
		return err
	}
	e.swap(e.newModel())
	e.counter = 0
	e.groupN = 0
	return nil
}

func (e *Editor) swap(model *graph.Model) {
	e.hist.Reset(model)
	e.ctrl.SetView(model)
	e.dirty = false
}

// SaveTo stores the current document under id.
func (e *Editor) SaveTo(ctx context.Context, store flowchart.Store, id string) error {
	doc := e.Document()
	if err := store.Save(ctx, id, &doc); err != nil {
		return fmt.Errorf("editor: save %s: %w", id, err)
	}
	e.dirty = false
	return nil
}

// LoadFrom replaces the document with the one stored under id.
func (e *Editor) LoadFrom(ctx context.Context, store flowchart.Store, id string) error {
	if err := e.idle(); err != nil {
		return err
	}
	doc, err := store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("editor: load %s: %w", id, err)
	}
	return e.LoadDocument(*doc)
}
