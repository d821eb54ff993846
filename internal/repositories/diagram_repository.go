package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"schemaboard/internal/models"
)

type DiagramRepository struct {
	pool *pgxpool.Pool
}

func NewDiagramRepository(pool *pgxpool.Pool) *DiagramRepository {
	return &DiagramRepository{pool: pool}
}

const diagramColumns = `id, owner_id, name, slug, public, tables, edges,
	viewport_x, viewport_y, viewport_zoom, created_at, updated_at`

func scanDiagram(row pgx.Row) (*models.Diagram, error) {
	var d models.Diagram
	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Name,
		&d.Slug,
		&d.Public,
		&d.Tables,
		&d.Edges,
		&d.Viewport.X,
		&d.Viewport.Y,
		&d.Viewport.Zoom,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DiagramRepository) Create(d *models.Diagram) error {
	ctx := context.Background()

	d.Prepare()

	query := `
		INSERT INTO diagrams (id, owner_id, name, slug, public, tables, edges,
			viewport_x, viewport_y, viewport_zoom, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		d.ID,
		d.OwnerID,
		d.Name,
		d.Slug,
		d.Public,
		d.Tables,
		d.Edges,
		d.Viewport.X,
		d.Viewport.Y,
		d.Viewport.Zoom,
		time.Now(),
	)

	return err
}

func (r *DiagramRepository) GetByID(id uuid.UUID) (*models.Diagram, error) {
	ctx := context.Background()

	query := `SELECT ` + diagramColumns + ` FROM diagrams WHERE id = $1`
	return scanDiagram(r.pool.QueryRow(ctx, query, id))
}

// GetBySlug resolves a shareable link. Only public diagrams are reachable
// this way.
func (r *DiagramRepository) GetBySlug(slug string) (*models.Diagram, error) {
	ctx := context.Background()

	query := `SELECT ` + diagramColumns + ` FROM diagrams WHERE slug = $1 AND public = true`
	return scanDiagram(r.pool.QueryRow(ctx, query, slug))
}

func (r *DiagramRepository) GetByOwner(ownerID uuid.UUID) ([]models.Diagram, error) {
	ctx := context.Background()

	query := `SELECT ` + diagramColumns + ` FROM diagrams
		WHERE owner_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diagrams []models.Diagram
	for rows.Next() {
		d, err := scanDiagram(rows)
		if err != nil {
			return nil, err
		}
		diagrams = append(diagrams, *d)
	}

	return diagrams, rows.Err()
}

// GetSharedWith lists diagrams where the user is a collaborator.
func (r *DiagramRepository) GetSharedWith(userID uuid.UUID) ([]models.Diagram, error) {
	ctx := context.Background()

	query := `SELECT ` + diagramColumns + ` FROM diagrams d
		JOIN diagram_collaborators dc ON dc.diagram_id = d.id
		WHERE dc.user_id = $1 ORDER BY d.updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diagrams []models.Diagram
	for rows.Next() {
		d, err := scanDiagram(rows)
		if err != nil {
			return nil, err
		}
		diagrams = append(diagrams, *d)
	}

	return diagrams, rows.Err()
}

func (r *DiagramRepository) Update(d *models.Diagram) error {
	ctx := context.Background()

	query := `
		UPDATE diagrams SET
			name = $2, public = $3, tables = $4, edges = $5,
			viewport_x = $6, viewport_y = $7, viewport_zoom = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		d.ID,
		d.Name,
		d.Public,
		d.Tables,
		d.Edges,
		d.Viewport.X,
		d.Viewport.Y,
		d.Viewport.Zoom,
		time.Now(),
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.New("diagram not found")
	}
	return nil
}

func (r *DiagramRepository) Delete(id uuid.UUID) error {
	ctx := context.Background()

	query := `DELETE FROM diagrams WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *DiagramRepository) GetCollaborator(diagramID, userID uuid.UUID) (*models.DiagramCollaborator, error) {
	ctx := context.Background()

	query := `SELECT diagram_id, user_id, permission, added_at
		FROM diagram_collaborators WHERE diagram_id = $1 AND user_id = $2`

	var c models.DiagramCollaborator
	err := r.pool.QueryRow(ctx, query, diagramID, userID).Scan(
		&c.DiagramID,
		&c.UserID,
		&c.Permission,
		&c.AddedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *DiagramRepository) ListCollaborators(diagramID uuid.UUID) ([]models.DiagramCollaborator, error) {
	ctx := context.Background()

	query := `SELECT diagram_id, user_id, permission, added_at
		FROM diagram_collaborators WHERE diagram_id = $1 ORDER BY added_at`

	rows, err := r.pool.Query(ctx, query, diagramID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collabs []models.DiagramCollaborator
	for rows.Next() {
		var c models.DiagramCollaborator
		if err := rows.Scan(&c.DiagramID, &c.UserID, &c.Permission, &c.AddedAt); err != nil {
			return nil, err
		}
		collabs = append(collabs, c)
	}

	return collabs, rows.Err()
}

// UpsertCollaborator grants or changes a user's permission on a diagram.
func (r *DiagramRepository) UpsertCollaborator(c *models.DiagramCollaborator) error {
	ctx := context.Background()

	query := `
		INSERT INTO diagram_collaborators (diagram_id, user_id, permission, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (diagram_id, user_id) DO UPDATE SET permission = EXCLUDED.permission
	`

	_, err := r.pool.Exec(ctx, query, c.DiagramID, c.UserID, c.Permission, time.Now())
	return err
}

func (r *DiagramRepository) RemoveCollaborator(diagramID, userID uuid.UUID) error {
	ctx := context.Background()

	query := `DELETE FROM diagram_collaborators WHERE diagram_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, diagramID, userID)
	return err
}
