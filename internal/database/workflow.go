package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"AgentFlow/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// workflowRecord is the persisted workflow shape. Nodes and edges are stored
// as JSON text exactly as the authoring UI ships them.
type workflowRecord struct {
	ID             string                  `bson:"_id"`
	Name           string                  `bson:"name"`
	Nodes          string                  `bson:"nodes"`
	Edges          string                  `bson:"edges"`
	TriggerKeyword string                  `bson:"trigger_keyword"`
	IsActive       bool                    `bson:"is_active"`
	Settings       entity.WorkflowSettings `bson:"settings"`
	CreatedAt      time.Time               `bson:"created_at"`
	ActivatedAt    time.Time               `bson:"activated_at"`
}

func encodeWorkflow(def *entity.WorkflowDefinition) (*workflowRecord, error) {
	nodes, err := json.Marshal(def.Nodes)
	if err != nil {
		return nil, fmt.Errorf("encoding nodes: %w", err)
	}
	edges, err := json.Marshal(def.Edges)
	if err != nil {
		return nil, fmt.Errorf("encoding edges: %w", err)
	}
	return &workflowRecord{
		ID:             def.ID,
		Name:           def.Name,
		Nodes:          string(nodes),
		Edges:          string(edges),
		TriggerKeyword: def.TriggerKeyword,
		IsActive:       def.IsActive,
		Settings:       def.Settings,
		CreatedAt:      def.CreatedAt,
		ActivatedAt:    def.ActivatedAt,
	}, nil
}

func decodeWorkflow(rec *workflowRecord) (*entity.WorkflowDefinition, error) {
	nodes, err := entity.DecodeNodes(json.RawMessage(rec.Nodes))
	if err != nil {
		return nil, fmt.Errorf("decoding nodes of %s: %w", rec.ID, err)
	}
	edges, err := entity.DecodeEdges(json.RawMessage(rec.Edges))
	if err != nil {
		return nil, fmt.Errorf("decoding edges of %s: %w", rec.ID, err)
	}
	return &entity.WorkflowDefinition{
		ID:             rec.ID,
		Name:           rec.Name,
		Nodes:          nodes,
		Edges:          edges,
		TriggerKeyword: rec.TriggerKeyword,
		IsActive:       rec.IsActive,
		Settings:       rec.Settings,
		CreatedAt:      rec.CreatedAt,
		ActivatedAt:    rec.ActivatedAt,
	}, nil
}

// SaveWorkflow upserts a published workflow definition by id.
func (m *MongoDB) SaveWorkflow(ctx context.Context, def *entity.WorkflowDefinition) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	rec, err := encodeWorkflow(def)
	if err != nil {
		return err
	}

	collection := connection.Database(m.database).Collection(workflowsCollection)

	filter := bson.D{{Key: "_id", Value: rec.ID}}
	update := bson.D{{Key: "$set", Value: rec}}
	opts := options.Update().SetUpsert(true)

	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// LoadWorkflow retrieves a workflow definition by id. Returns nil, nil when
// it does not exist.
func (m *MongoDB) LoadWorkflow(ctx context.Context, id string) (*entity.WorkflowDefinition, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(workflowsCollection)

	var rec workflowRecord
	err = collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return decodeWorkflow(&rec)
}

// ListActiveWorkflows returns all workflows in the active set, most recently
// activated first.
func (m *MongoDB) ListActiveWorkflows(ctx context.Context) ([]*entity.WorkflowDefinition, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(workflowsCollection)

	opts := options.Find().SetSort(bson.D{{Key: "activated_at", Value: -1}})
	cursor, err := collection.Find(ctx, bson.D{{Key: "is_active", Value: true}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var defs []*entity.WorkflowDefinition
	for cursor.Next(ctx) {
		var rec workflowRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		def, err := decodeWorkflow(&rec)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, cursor.Err()
}

// DeactivateWorkflow removes a workflow from the active set without
// deleting it.
func (m *MongoDB) DeactivateWorkflow(ctx context.Context, id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(workflowsCollection)

	_, err = collection.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "is_active", Value: false}}}},
	)
	return err
}
