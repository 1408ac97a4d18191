package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"atlas/pkg/common"
)

// flexID decodes a JSON identifier that may be a string or a number into
// its canonical string form, so the core never branches on identifier type.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier is neither string nor number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = flexID(strconv.FormatInt(i, 10))
		return nil
	}
	if v, err := n.Float64(); err == nil && v == float64(int64(v)) {
		*f = flexID(strconv.FormatInt(int64(v), 10))
		return nil
	}
	*f = flexID(n.String())
	return nil
}

func flexIDs(in []flexID) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		s := string(id)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

type rawEntity struct {
	ID          flexID   `json:"id"`
	HumanID     flexID   `json:"human_readable_id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	TextUnitIDs []flexID `json:"text_unit_ids"`
	Frequency   int      `json:"frequency"`
	Degree      int      `json:"degree"`
}

type rawRelationship struct {
	ID             flexID  `json:"id"`
	Source         flexID  `json:"source"`
	Target         flexID  `json:"target"`
	Weight         float64 `json:"weight"`
	Description    string  `json:"description"`
	CombinedDegree int     `json:"combined_degree"`
}

type rawCommunity struct {
	ID              flexID   `json:"id"`
	HumanID         flexID   `json:"human_readable_id"`
	Level           int      `json:"level"`
	Parent          flexID   `json:"parent"`
	Children        []flexID `json:"children"`
	Title           string   `json:"title"`
	Size            int      `json:"size"`
	EntityIDs       []flexID `json:"entity_ids"`
	RelationshipIDs []flexID `json:"relationship_ids"`
}

// DecodeGraphModel decodes the artifact payloads into a normalized model.
// communityBytes may be nil for graphs without a community hierarchy.
func DecodeGraphModel(graphID string, entityBytes, relationBytes, communityBytes []byte) (*common.GraphModel, error) {
	var rawEntities []rawEntity
	if err := json.Unmarshal(entityBytes, &rawEntities); err != nil {
		return nil, fmt.Errorf("failed to decode entities artifact: %w", err)
	}

	var rawRelationships []rawRelationship
	if err := json.Unmarshal(relationBytes, &rawRelationships); err != nil {
		return nil, fmt.Errorf("failed to decode relationships artifact: %w", err)
	}

	var rawCommunities []rawCommunity
	if len(communityBytes) > 0 {
		if err := json.Unmarshal(communityBytes, &rawCommunities); err != nil {
			return nil, fmt.Errorf("failed to decode communities artifact: %w", err)
		}
	}

	model := &common.GraphModel{
		ID:            graphID,
		Entities:      make([]common.Entity, 0, len(rawEntities)),
		Relationships: make([]common.Relationship, 0, len(rawRelationships)),
		Communities:   make([]common.Community, 0, len(rawCommunities)),
	}

	for _, e := range rawEntities {
		model.Entities = append(model.Entities, common.Entity{
			ID:          string(e.ID),
			HumanID:     string(e.HumanID),
			Title:       e.Title,
			Type:        e.Type,
			Description: e.Description,
			TextUnitIDs: flexIDs(e.TextUnitIDs),
			Frequency:   e.Frequency,
			Degree:      e.Degree,
		})
	}

	for _, r := range rawRelationships {
		model.Relationships = append(model.Relationships, common.Relationship{
			ID:             string(r.ID),
			Source:         string(r.Source),
			Target:         string(r.Target),
			Weight:         r.Weight,
			Description:    r.Description,
			CombinedDegree: r.CombinedDegree,
		})
	}

	for _, c := range rawCommunities {
		model.Communities = append(model.Communities, common.Community{
			ID:              string(c.ID),
			HumanID:         string(c.HumanID),
			Level:           c.Level,
			Parent:          string(c.Parent),
			ChildIDs:        flexIDs(c.Children),
			Title:           c.Title,
			Size:            c.Size,
			EntityIDs:       flexIDs(c.EntityIDs),
			RelationshipIDs: flexIDs(c.RelationshipIDs),
		})
	}

	return model, nil
}
