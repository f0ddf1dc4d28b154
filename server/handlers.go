package server

import (
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/codec"
	"github.com/meikuraledutech/flowchart/geom"
)

type nodeRequest struct {
	Kind  flowchart.Kind `json:"kind"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Label string         `json:"label"`
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type labelRequest struct {
	Label string `json:"label"`
}

type connectionRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

type groupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type groupNameRequest struct {
	Name string `json:"name"`
}

type drawingRequest struct {
	Drawing flowchart.GroupDrawing `json:"drawing"`
}

func contentType(f codec.Format) string {
	if f == codec.FormatYAML {
		return "application/yaml"
	}
	return fiber.MIMEApplicationJSON
}

func (s *Server) sendDocument(c fiber.Ctx, f codec.Format) error {
	data, err := codec.Encode(s.ed.Document(), f)
	if err != nil {
		return s.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType(f))
	return c.Send(data)
}

func (s *Server) getDocument(c fiber.Ctx) error {
	f, err := codec.ParseFormat(c.Query("format"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	return s.sendDocument(c, f)
}

func (s *Server) putDocument(c fiber.Ctx) error {
	f, err := codec.ParseFormat(c.Query("format"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.ed.Load(c.Body(), f); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) exportMermaid(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(codec.Mermaid(s.ed.Document()))
}

func (s *Server) addNode(c fiber.Ctx) error {
	var req nodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if !req.Kind.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "kind is required"})
	}
	id, err := s.ed.AddNode(req.Kind, geom.Pt(req.X, req.Y), req.Label)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": id})
}

func (s *Server) deleteNode(c fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := s.ed.View().Node(id); !ok {
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	if err := s.ed.DeleteNodes(id); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) moveNode(c fiber.Ctx) error {
	var req positionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := s.ed.MoveNode(c.Params("id"), geom.Pt(req.X, req.Y)); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) renameNode(c fiber.Ctx) error {
	var req labelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := s.ed.Rename(c.Params("id"), req.Label); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) connect(c fiber.Ctx) error {
	var req connectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	id, err := s.ed.Connect(req.SourceID, req.TargetID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": id})
}

func (s *Server) disconnect(c fiber.Ctx) error {
	if err := s.ed.Disconnect(c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) addGroup(c fiber.Ctx) error {
	var req groupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if len(req.Members) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "members are required"})
	}
	id, err := s.ed.GroupNodes(req.Name, req.Members...)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": id})
}

func (s *Server) deleteGroup(c fiber.Ctx) error {
	if err := s.ed.DeleteGroup(c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) renameGroup(c fiber.Ctx) error {
	var req groupNameRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := s.ed.RenameGroup(c.Params("id"), req.Name); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) setGroupDrawing(c fiber.Ctx) error {
	var req drawingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if !req.Drawing.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "drawing is required"})
	}
	if err := s.ed.SetGroupDrawing(c.Params("id"), req.Drawing); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) historyState(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"can_undo": s.ed.CanUndo(), "can_redo": s.ed.CanRedo()})
}

func (s *Server) undo(c fiber.Ctx) error {
	if err := s.ed.Undo(); err != nil {
		return s.fail(c, err)
	}
	return s.historyState(c)
}

func (s *Server) redo(c fiber.Ctx) error {
	if err := s.ed.Redo(); err != nil {
		return s.fail(c, err)
	}
	return s.historyState(c)
}

func (s *Server) listStored(c fiber.Ctx) error {
	ids, err := s.store.List(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"ids": ids})
}

func (s *Server) saveStored(c fiber.Ctx) error {
	if err := s.ed.SaveTo(c.Context(), s.store, c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) loadStored(c fiber.Ctx) error {
	if err := s.ed.LoadFrom(c.Context(), s.store, c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return s.sendDocument(c, codec.FormatJSON)
}

func (s *Server) deleteStored(c fiber.Ctx) error {
	if err := s.store.Delete(c.Context(), c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}
