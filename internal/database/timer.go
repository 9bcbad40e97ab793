package repository

import (
	"context"
	"errors"

	"AgentFlow/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SaveTimer persists a durable delay timer before it is armed.
func (m *MongoDB) SaveTimer(ctx context.Context, rec *entity.TimerRecord) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(timersCollection)

	filter := bson.D{{Key: "_id", Value: rec.ID}}
	update := bson.D{{Key: "$set", Value: rec}}
	opts := options.Update().SetUpsert(true)

	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// ClaimTimer atomically marks a timer fired. The caller that flips the flag
// wins the claim; everyone else sees false and must not emit the event.
func (m *MongoDB) ClaimTimer(ctx context.Context, timerID string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(timersCollection)

	filter := bson.D{{Key: "_id", Value: timerID}, {Key: "fired", Value: false}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "fired", Value: true}}}}

	err = collection.FindOneAndUpdate(ctx, filter, update).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteTimer removes a timer record, fired or not.
func (m *MongoDB) DeleteTimer(ctx context.Context, timerID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(timersCollection)

	_, err = collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: timerID}})
	return err
}

// ListPendingTimers returns all unfired delay timers for startup replay.
func (m *MongoDB) ListPendingTimers(ctx context.Context) ([]*entity.TimerRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(timersCollection)

	cursor, err := collection.Find(ctx, bson.D{{Key: "fired", Value: false}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var timers []*entity.TimerRecord
	for cursor.Next(ctx) {
		var rec entity.TimerRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		timers = append(timers, &rec)
	}
	return timers, cursor.Err()
}
