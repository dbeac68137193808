package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/logging"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
)

// RoadmapService stores and retrieves user roadmaps.
type RoadmapService struct {
	roadmaps repository.RoadmapStore
	tracer   trace.Tracer
}

// NewRoadmapService constructs a RoadmapService with its store.
func NewRoadmapService(roadmaps repository.RoadmapStore) *RoadmapService {
	return &RoadmapService{roadmaps: roadmaps, tracer: otel.Tracer(tracerName)}
}

// SaveRoadmap upserts the roadmap titled req.ProjectTitle for req.UserEmail.
func (s *RoadmapService) SaveRoadmap(ctx context.Context, req model.SaveRoadmapRequest) (err error) {
	ctx, span := s.tracer.Start(ctx, "RoadmapService.SaveRoadmap",
		trace.WithAttributes(attribute.String("roadmap.title", req.ProjectTitle)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(req.UserEmail) == "" {
		return invalid("userEmail is required")
	}
	if strings.TrimSpace(req.ProjectTitle) == "" {
		return invalid("projectTitle is required")
	}

	rm := model.Roadmap{Title: req.ProjectTitle, Nodes: req.Nodes, Edges: req.Edges}
	if rm.Nodes == nil {
		rm.Nodes = []map[string]any{}
	}
	if rm.Edges == nil {
		rm.Edges = []map[string]any{}
	}
	if err := s.roadmaps.SaveRoadmap(ctx, req.UserEmail, rm); err != nil {
		return fmt.Errorf("save roadmap: %w", err)
	}

	logging.FromContext(ctx).Info("roadmap saved", "title", rm.Title, "nodes", len(rm.Nodes), "edges", len(rm.Edges))
	return nil
}

// FetchRoadmap returns the roadmap or repository.ErrNotFound.
func (s *RoadmapService) FetchRoadmap(ctx context.Context, email, title string) (rm model.Roadmap, err error) {
	ctx, span := s.tracer.Start(ctx, "RoadmapService.FetchRoadmap",
		trace.WithAttributes(attribute.String("roadmap.title", title)))
	defer func() { endSpan(span, err) }()

	rm, err = s.roadmaps.FetchRoadmap(ctx, email, title)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Roadmap{}, repository.ErrNotFound
		}
		return model.Roadmap{}, fmt.Errorf("fetch roadmap: %w", err)
	}
	return rm, nil
}

// ListProjectTitles returns the user's roadmap titles, empty for unknown users.
func (s *RoadmapService) ListProjectTitles(ctx context.Context, email string) (titles []string, err error) {
	ctx, span := s.tracer.Start(ctx, "RoadmapService.ListProjectTitles")
	defer func() { endSpan(span, err) }()

	titles, err = s.roadmaps.ListProjectTitles(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list project titles: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return titles, nil
}
