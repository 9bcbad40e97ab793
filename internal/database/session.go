package repository

import (
	"context"
	"errors"

	"AgentFlow/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SaveSession persists a contact's active session.
func (m *MongoDB) SaveSession(ctx context.Context, s *entity.Session) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	filter := bson.D{{Key: "contact_id", Value: s.ContactID}}
	update := bson.D{{Key: "$set", Value: s}}
	opts := options.Update().SetUpsert(true)

	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// LoadSession retrieves a contact's active session. Returns nil, nil when
// the contact has none.
func (m *MongoDB) LoadSession(ctx context.Context, contactID string) (*entity.Session, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	var s entity.Session
	err = collection.FindOne(ctx, bson.D{{Key: "contact_id", Value: contactID}}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return &s, nil
}

// DeleteSession removes a contact's active session.
func (m *MongoDB) DeleteSession(ctx context.Context, contactID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	_, err = collection.DeleteOne(ctx, bson.D{{Key: "contact_id", Value: contactID}})
	return err
}

// ListSessions returns all active sessions; used on startup to re-arm
// inactivity timeouts.
func (m *MongoDB) ListSessions(ctx context.Context) ([]*entity.Session, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	cursor, err := collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*entity.Session
	for cursor.Next(ctx) {
		var s entity.Session
		if err := cursor.Decode(&s); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, cursor.Err()
}
