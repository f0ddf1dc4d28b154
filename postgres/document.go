package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/flowchart"
)

// Save replaces the document stored under id in a single transaction.
func (s *PGStore) Save(ctx context.Context, id string, doc *flowchart.Document) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO flowchart_documents (id, version) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, updated_at = NOW()`,
		id, doc.Version,
	); err != nil {
		return fmt.Errorf("postgres: upsert document %s: %w", id, err)
	}

	// Replace semantics: drop the old children first.
	if _, err := tx.Exec(ctx, `DELETE FROM flowchart_groups WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete groups: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM flowchart_connections WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete connections: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM flowchart_nodes WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete nodes: %w", err)
	}

	for i, n := range doc.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO flowchart_nodes (document_id, id, position, kind, x, y, label) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, n.ID, i, n.Kind.String(), n.X, n.Y, n.Label,
		); err != nil {
			return fmt.Errorf("postgres: insert node %s: %w", n.ID, err)
		}
	}

	for i, c := range doc.Connections {
		if _, err := tx.Exec(ctx,
			`INSERT INTO flowchart_connections (document_id, id, position, source_id, target_id) VALUES ($1, $2, $3, $4, $5)`,
			id, c.ID, i, c.SourceID, c.TargetID,
		); err != nil {
			return fmt.Errorf("postgres: insert connection %s: %w", c.ID, err)
		}
	}

	for i, g := range doc.Groups {
		members := g.Members
		if members == nil {
			members = []string{}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO flowchart_groups (document_id, id, position, name, drawing, members) VALUES ($1, $2, $3, $4, $5, $6)`,
			id, g.ID, i, g.Name, g.Drawing.String(), members,
		); err != nil {
			return fmt.Errorf("postgres: insert group %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Load reads the document stored under id, in saved order.
func (s *PGStore) Load(ctx context.Context, id string) (*flowchart.Document, error) {
	doc := &flowchart.Document{
		Nodes:       []flowchart.DocumentNode{},
		Connections: []flowchart.DocumentConnection{},
		Groups:      []flowchart.DocumentGroup{},
	}

	err := s.db.QueryRow(ctx,
		`SELECT version FROM flowchart_documents WHERE id = $1`, id,
	).Scan(&doc.Version)
	if err != nil {
		if isNoRows(err) {
			return nil, flowchart.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("postgres: get document: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, kind, x, y, label FROM flowchart_nodes WHERE document_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n    flowchart.DocumentNode
			kind string
		)
		if err := rows.Scan(&n.ID, &kind, &n.X, &n.Y, &n.Label); err != nil {
			return nil, fmt.Errorf("postgres: scan node: %w", err)
		}
		if n.Kind, err = flowchart.ParseKind(kind); err != nil {
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("node %q", n.ID), Err: err}
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows nodes: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, source_id, target_id FROM flowchart_connections WHERE document_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: query connections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c flowchart.DocumentConnection
		if err := rows.Scan(&c.ID, &c.SourceID, &c.TargetID); err != nil {
			return nil, fmt.Errorf("postgres: scan connection: %w", err)
		}
		doc.Connections = append(doc.Connections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows connections: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, name, drawing, members FROM flowchart_groups WHERE document_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: query groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g       flowchart.DocumentGroup
			drawing string
		)
		if err := rows.Scan(&g.ID, &g.Name, &drawing, &g.Members); err != nil {
			return nil, fmt.Errorf("postgres: scan group: %w", err)
		}
		if g.Drawing, err = flowchart.ParseGroupDrawing(drawing); err != nil {
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("group %q", g.ID), Err: err}
		}
		if g.Members == nil {
			g.Members = []string{}
		}
		doc.Groups = append(doc.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows groups: %w", err)
	}

	return doc, nil
}

// Delete removes a document with all its nodes, connections and groups.
// No error if the id doesn't exist.
func (s *PGStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM flowchart_documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete document: %w", err)
	}
	return nil
}

// List returns every stored document id, sorted.
func (s *PGStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM flowchart_documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows documents: %w", err)
	}
	return ids, nil
}
