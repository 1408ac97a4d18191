// Package loader turns persisted graph artifacts (entities, relationships,
// communities as JSON) into a normalized common.GraphModel. The bytes come
// from an ArtifactLoader implementation; the local filesystem and S3 are
// provided as sub-packages.
package loader

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"atlas/pkg/common"
)

// ArtifactLoader fetches the raw bytes of a persisted artifact by key.
// Implementations may read from disk, object storage, or anything else.
type ArtifactLoader interface {
	GetArtifact(ctx context.Context, key string) ([]byte, error)
}

// GraphArtifacts names the artifact keys of one graph.
type GraphArtifacts struct {
	GraphID          string `json:"graph_id"`
	EntitiesKey      string `json:"entities_key"`
	RelationshipsKey string `json:"relationships_key"`
	CommunitiesKey   string `json:"communities_key"`
}

// LoadGraphModel fetches and decodes the three artifacts of a graph in
// parallel and assembles the normalized model. The communities key is
// optional; a graph without community artifacts loads with an empty
// community set.
func LoadGraphModel(ctx context.Context, l ArtifactLoader, artifacts GraphArtifacts) (*common.GraphModel, error) {
	var (
		entityBytes    []byte
		relationBytes  []byte
		communityBytes []byte
	)

	eg, gCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		b, err := l.GetArtifact(gCtx, artifacts.EntitiesKey)
		if err != nil {
			return fmt.Errorf("failed to load entities artifact: %w", err)
		}
		entityBytes = b
		return nil
	})
	eg.Go(func() error {
		b, err := l.GetArtifact(gCtx, artifacts.RelationshipsKey)
		if err != nil {
			return fmt.Errorf("failed to load relationships artifact: %w", err)
		}
		relationBytes = b
		return nil
	})
	if artifacts.CommunitiesKey != "" {
		eg.Go(func() error {
			b, err := l.GetArtifact(gCtx, artifacts.CommunitiesKey)
			if err != nil {
				return fmt.Errorf("failed to load communities artifact: %w", err)
			}
			communityBytes = b
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return DecodeGraphModel(artifacts.GraphID, entityBytes, relationBytes, communityBytes)
}
