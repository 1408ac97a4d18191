package queue

import (
	"context"
	"encoding/json"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rabbitmq/amqp091-go"

	"atlas/internal/util"
	"atlas/pkg/layout"
	"atlas/pkg/loader"
	"atlas/pkg/logger"
	"atlas/pkg/store"
)

// LayoutRequestMsg asks the worker to compute a fresh layout for a graph
// whose artifacts live in object storage.
type LayoutRequestMsg struct {
	GraphID          string              `json:"graph_id"`
	EntitiesKey      string              `json:"entities_key"`
	RelationshipsKey string              `json:"relationships_key"`
	CommunitiesKey   string              `json:"communities_key,omitempty"`
	Config           *layout.ConfigPatch `json:"config,omitempty"`
	Reseed           bool                `json:"reseed,omitempty"`
	Seed             int64               `json:"seed,omitempty"`
}

// ProcessLayoutMessage loads graph artifacts, runs the force simulation to
// convergence and persists the resulting layout. When Reseed is false the
// previous run's node positions (if any) seed the simulation so successive
// runs stay visually stable.
func ProcessLayoutMessage(
	ctx context.Context,
	artifacts loader.ArtifactLoader,
	storage store.LayoutStorage,
	msg LayoutRequestMsg,
) error {
	logger.Info("[Layout] Processing layout request", "graphId", msg.GraphID)

	model, err := loader.LoadGraphModel(ctx, artifacts, loader.GraphArtifacts{
		GraphID:          msg.GraphID,
		EntitiesKey:      msg.EntitiesKey,
		RelationshipsKey: msg.RelationshipsKey,
		CommunitiesKey:   msg.CommunitiesKey,
	})
	if err != nil {
		return fmt.Errorf("loading graph artifacts: %w", err)
	}

	cfg := layout.DefaultConfig()
	if msg.Config != nil {
		if _, err := cfg.Apply(*msg.Config); err != nil {
			return fmt.Errorf("invalid layout config: %w", err)
		}
	}

	params := layout.NewEngineParams{
		Config: &cfg,
		Seed:   msg.Seed,
	}
	if !msg.Reseed {
		positions, err := storage.GetNodePositions(ctx, msg.GraphID)
		if err != nil && err != store.ErrNoLayout {
			return fmt.Errorf("loading previous positions: %w", err)
		}
		if len(positions) > 0 {
			params.InitialPositions = positions
		}
	}

	engine, err := layout.NewEngine(model, params)
	if err != nil {
		return fmt.Errorf("building layout engine: %w", err)
	}

	result, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("running layout simulation: %w", err)
	}

	runID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("generating run id: %w", err)
	}

	sources := store.RunSources{
		EntitiesKey:      msg.EntitiesKey,
		RelationshipsKey: msg.RelationshipsKey,
		CommunitiesKey:   msg.CommunitiesKey,
	}
	err = util.RetryErr(3, func() error {
		return storage.SaveLayout(ctx, runID, result, sources)
	})
	if err != nil {
		return fmt.Errorf("saving layout: %w", err)
	}

	logger.Info("[Layout] Layout complete",
		"graphId", msg.GraphID,
		"runId", runID,
		"nodes", len(result.Nodes),
		"links", len(result.Links),
	)

	return nil
}

// DecodeLayoutRequest parses a layout request from a delivery body.
func DecodeLayoutRequest(body []byte) (LayoutRequestMsg, error) {
	var msg LayoutRequestMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return LayoutRequestMsg{}, fmt.Errorf("unmarshalling layout request: %w", err)
	}
	if msg.GraphID == "" {
		return LayoutRequestMsg{}, fmt.Errorf("layout request missing graph_id")
	}
	return msg, nil
}

// PublishLayoutRequest enqueues a layout request on the layout queue.
func PublishLayoutRequest(ch *amqp091.Channel, msg LayoutRequestMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return PublishFIFO(ch, LayoutQueue, data)
}
