package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS flowchart_documents (
    id         TEXT PRIMARY KEY,
    version    INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flowchart_nodes (
    document_id TEXT NOT NULL REFERENCES flowchart_documents(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    position    INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    x           DOUBLE PRECISION NOT NULL,
    y           DOUBLE PRECISION NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (document_id, id)
);

CREATE TABLE IF NOT EXISTS flowchart_connections (
    document_id TEXT NOT NULL,
    id          TEXT NOT NULL,
    position    INTEGER NOT NULL,
    source_id   TEXT NOT NULL,
    target_id   TEXT NOT NULL,
    PRIMARY KEY (document_id, id),
    FOREIGN KEY (document_id, source_id) REFERENCES flowchart_nodes(document_id, id) ON DELETE CASCADE,
    FOREIGN KEY (document_id, target_id) REFERENCES flowchart_nodes(document_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS flowchart_groups (
    document_id TEXT NOT NULL REFERENCES flowchart_documents(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    position    INTEGER NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    drawing     TEXT NOT NULL,
    members     TEXT[] NOT NULL DEFAULT '{}',
    PRIMARY KEY (document_id, id)
);

CREATE INDEX IF NOT EXISTS idx_flowchart_nodes_position       ON flowchart_nodes(document_id, position);
CREATE INDEX IF NOT EXISTS idx_flowchart_connections_position ON flowchart_connections(document_id, position);
CREATE INDEX IF NOT EXISTS idx_flowchart_groups_position      ON flowchart_groups(document_id, position);
`

// CreateSchema creates the flowchart tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the flowchart tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS flowchart_groups, flowchart_connections, flowchart_nodes, flowchart_documents CASCADE;`)
	return err
}
