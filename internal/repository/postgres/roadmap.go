package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
)

// RoadmapRepository handles persistence for roadmaps.
type RoadmapRepository struct {
	db *pgxpool.Pool
}

var _ repository.RoadmapStore = (*RoadmapRepository)(nil)

// NewRoadmapRepository constructs a RoadmapRepository.
func NewRoadmapRepository(db *pgxpool.Pool) *RoadmapRepository {
	return &RoadmapRepository{db: db}
}

// SaveRoadmap upserts the roadmap on (email, title). Nodes and edges are
// replaced wholesale.
func (r *RoadmapRepository) SaveRoadmap(ctx context.Context, email string, roadmap model.Roadmap) error {
	nodes, edges := roadmap.Nodes, roadmap.Edges
	if nodes == nil {
		nodes = []map[string]any{}
	}
	if edges == nil {
		edges = []map[string]any{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO roadmaps (email, title, nodes, edges)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email, title)
		 DO UPDATE SET nodes = EXCLUDED.nodes, edges = EXCLUDED.edges, updated_at = now()`,
		email, roadmap.Title, nodes, edges,
	)
	if err != nil {
		return fmt.Errorf("upsert roadmap: %w", err)
	}
	return nil
}

// FetchRoadmap returns one roadmap or ErrNotFound.
func (r *RoadmapRepository) FetchRoadmap(ctx context.Context, email, title string) (model.Roadmap, error) {
	rm := model.Roadmap{Title: title}
	err := r.db.QueryRow(ctx,
		`SELECT nodes, edges FROM roadmaps WHERE email = $1 AND title = $2`,
		email, title,
	).Scan(&rm.Nodes, &rm.Edges)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Roadmap{}, repository.ErrNotFound
		}
		return model.Roadmap{}, fmt.Errorf("fetch roadmap: %w", err)
	}
	return rm, nil
}

// ListProjectTitles returns the user's titles in first-save order.
func (r *RoadmapRepository) ListProjectTitles(ctx context.Context, email string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT title FROM roadmaps WHERE email = $1 ORDER BY id ASC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("list project titles: %w", err)
	}
	titles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan project title: %w", err)
	}
	return titles, nil
}
