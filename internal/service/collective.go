// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → orchestrates, enforces rules
//	Repository (data layer)  → reads/writes the database
//
// CollectiveService is the only path from storage to a response body. It
// always builds the canonical graph and redacts it for the viewer before
// returning, so handlers never see unredacted data.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/graph"
	"github.com/sakif/donorshield/internal/redact"
)

// CollectiveService renders collective pages.
type CollectiveService struct {
	builder *graph.Builder
	applier *redact.Applier
	logger  *slog.Logger
}

func NewCollectiveService(builder *graph.Builder, applier *redact.Applier, logger *slog.Logger) *CollectiveService {
	return &CollectiveService{
		builder: builder,
		applier: applier,
		logger:  logger,
	}
}

// Get returns the page for slug as seen by viewerID ("" when
// unauthenticated). Errors come back as *apperror.AppError where the
// cause is known: NotFound for an unknown slug, Lookup when a privilege
// lookup failed.
func (s *CollectiveService) Get(ctx context.Context, slug, viewerID string) (*graph.CollectiveGraph, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperror.ValidationFailed("slug", "slug is required")
	}

	subject, canonical, err := s.builder.Build(ctx, slug)
	if err != nil {
		return nil, err
	}

	out, err := s.applier.Redact(ctx, canonical, viewerID, subject)
	if err != nil {
		s.logger.Error("redacting collective page",
			slog.String("collective", subject.ID),
			slog.Bool("authenticated", viewerID != ""),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("collective page rendered",
		slog.String("collective", subject.ID),
		slog.Bool("authenticated", viewerID != ""),
	)
	return out, nil
}
