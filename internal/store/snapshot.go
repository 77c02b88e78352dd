package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/lore/internal/ir"
)

// ErrSnapshotNotFound is returned by Load for unknown snapshot names.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	TotalNodes int       `json:"total_nodes"`
	TotalEdges int       `json:"total_edges"`
}

// Save stores a graph export under the given name, replacing any
// existing snapshot with that name.
func (s *Store) Save(ctx context.Context, name string, export ir.GraphExport) error {
	if name == "" {
		return errors.New("snapshot name must not be empty")
	}

	payload, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, created_at, total_nodes, total_edges, export)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			created_at  = excluded.created_at,
			total_nodes = excluded.total_nodes,
			total_edges = excluded.total_edges,
			export      = excluded.export
	`,
		name,
		time.Now().UTC().Format(time.RFC3339Nano),
		export.Metadata.TotalNodes,
		export.Metadata.TotalEdges,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}
	return nil
}

// Load retrieves a snapshot by name. Returns ErrSnapshotNotFound when
// no snapshot with that name exists.
func (s *Store) Load(ctx context.Context, name string) (ir.GraphExport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT export FROM snapshots WHERE name = ?`, name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.GraphExport{}, fmt.Errorf("load snapshot %q: %w", name, ErrSnapshotNotFound)
	}
	if err != nil {
		return ir.GraphExport{}, fmt.Errorf("load snapshot %q: %w", name, err)
	}

	var export ir.GraphExport
	if err := json.Unmarshal([]byte(payload), &export); err != nil {
		return ir.GraphExport{}, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	return export, nil
}

// List returns snapshot metadata ordered newest first.
func (s *Store) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, created_at, total_nodes, total_edges
		FROM snapshots
		ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var createdAt string
		if err := rows.Scan(&info.Name, &createdAt, &info.TotalNodes, &info.TotalEdges); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("list snapshots: parse created_at: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return infos, nil
}

// Delete removes a snapshot. Reports whether one existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	return affected > 0, nil
}
