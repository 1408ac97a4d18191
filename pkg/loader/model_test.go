package loader

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestFlexIDNormalization(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{name: "string", json: `"abc"`, want: "abc"},
		{name: "integer", json: `42`, want: "42"},
		{name: "integral float", json: `42.0`, want: "42"},
		{name: "numeric string", json: `"42"`, want: "42"},
		{name: "null", json: `null`, want: ""},
		{name: "negative", json: `-7`, want: "-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id flexID
			if err := json.Unmarshal([]byte(tt.json), &id); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.json, err)
			}
			if string(id) != tt.want {
				t.Errorf("flexID(%s) = %q, want %q", tt.json, id, tt.want)
			}
		})
	}
}

func TestFlexIDsDedupe(t *testing.T) {
	got := flexIDs([]flexID{"a", "b", "a", "", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestDecodeGraphModel(t *testing.T) {
	entities := []byte(`[
		{"id": 1, "title": "Alpha", "degree": 3, "frequency": 5},
		{"id": "e2", "title": "Beta", "degree": 1, "frequency": 1}
	]`)
	relationships := []byte(`[
		{"id": "r1", "source": 1, "target": "e2", "weight": 2.5}
	]`)
	communities := []byte(`[
		{"id": 10, "human_readable_id": 10, "level": 0, "title": "C",
		 "entity_ids": [1, "e2", 1], "parent": null}
	]`)

	model, err := DecodeGraphModel("g1", entities, relationships, communities)
	if err != nil {
		t.Fatalf("DecodeGraphModel returned error: %v", err)
	}

	if model.ID != "g1" {
		t.Errorf("model.ID = %q", model.ID)
	}
	if model.Entities[0].ID != "1" {
		t.Errorf("numeric entity id = %q, want \"1\"", model.Entities[0].ID)
	}
	if model.Relationships[0].Source != "1" || model.Relationships[0].Target != "e2" {
		t.Errorf("relationship endpoints = %q -> %q",
			model.Relationships[0].Source, model.Relationships[0].Target)
	}

	c := model.Communities[0]
	if c.ID != "10" || c.HumanID != "10" {
		t.Errorf("community ids = %q / %q, want \"10\"", c.ID, c.HumanID)
	}
	if c.Parent != "" {
		t.Errorf("null parent decoded to %q", c.Parent)
	}
	if len(c.EntityIDs) != 2 {
		t.Errorf("member ids not deduped: %v", c.EntityIDs)
	}
}

func TestDecodeGraphModelWithoutCommunities(t *testing.T) {
	model, err := DecodeGraphModel("g1", []byte(`[]`), []byte(`[]`), nil)
	if err != nil {
		t.Fatalf("DecodeGraphModel returned error: %v", err)
	}
	if len(model.Communities) != 0 {
		t.Errorf("expected empty community set, got %d", len(model.Communities))
	}
}

func TestDecodeGraphModelInvalidJSON(t *testing.T) {
	if _, err := DecodeGraphModel("g1", []byte(`{not json`), []byte(`[]`), nil); err == nil {
		t.Error("invalid entities artifact accepted")
	}
}

type fakeLoader struct {
	artifacts map[string][]byte
}

func (f *fakeLoader) GetArtifact(_ context.Context, key string) ([]byte, error) {
	data, ok := f.artifacts[key]
	if !ok {
		return nil, errors.New("artifact not found: " + key)
	}
	return data, nil
}

func TestLoadGraphModel(t *testing.T) {
	l := &fakeLoader{artifacts: map[string][]byte{
		"g/entities.json":      []byte(`[{"id": "a", "title": "A"}]`),
		"g/relationships.json": []byte(`[]`),
		"g/communities.json":   []byte(`[{"id": "c", "level": 0}]`),
	}}

	model, err := LoadGraphModel(context.Background(), l, GraphArtifacts{
		GraphID:          "g",
		EntitiesKey:      "g/entities.json",
		RelationshipsKey: "g/relationships.json",
		CommunitiesKey:   "g/communities.json",
	})
	if err != nil {
		t.Fatalf("LoadGraphModel returned error: %v", err)
	}
	if len(model.Entities) != 1 || len(model.Communities) != 1 {
		t.Errorf("model has %d entities, %d communities", len(model.Entities), len(model.Communities))
	}
}

func TestLoadGraphModelMissingArtifact(t *testing.T) {
	l := &fakeLoader{artifacts: map[string][]byte{}}

	_, err := LoadGraphModel(context.Background(), l, GraphArtifacts{
		GraphID:          "g",
		EntitiesKey:      "missing",
		RelationshipsKey: "also-missing",
	})
	if err == nil {
		t.Error("missing artifacts accepted")
	}
}
