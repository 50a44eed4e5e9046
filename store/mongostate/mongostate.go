// Package mongostate stores conversation state in a MongoDB collection, one
// document per subject keyed by _id.
package mongostate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/warp/leavebot/conversation"
)

// Collection is the collection holding dialog documents.
const Collection = "conversation_state"

// Backend implements conversation.Backend on MongoDB.
type Backend struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// document is the stored shape. Hours is kept as a decimal string.
type document struct {
	SubjectID string    `bson:"_id"`
	Step      string    `bson:"step"`
	LeaveType string    `bson:"leave_type,omitempty"`
	StartDate string    `bson:"start_date,omitempty"`
	EndDate   string    `bson:"end_date,omitempty"`
	StartTime string    `bson:"start_time,omitempty"`
	EndTime   string    `bson:"end_time,omitempty"`
	Hours     string    `bson:"hours,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// New connects, pings and ensures the updated_at index.
func New(ctx context.Context, uri, database string, logger *zap.Logger) (*Backend, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(Collection)
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: 1}},
	}); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create %s indexes: %w", Collection, err)
	}

	logger.Info("mongo state backend connected", zap.String("database", database))

	return &Backend{client: client, coll: coll}, nil
}

// Load returns the subject's state, or nil if not found.
func (b *Backend) Load(ctx context.Context, subjectID string) (*conversation.State, error) {
	var doc document
	err := b.coll.FindOne(ctx, bson.M{"_id": subjectID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find state: %w", err)
	}
	return fromDocument(doc)
}

// Save upserts the subject's document.
func (b *Backend) Save(ctx context.Context, st conversation.State) error {
	doc := toDocument(st)
	_, err := b.coll.ReplaceOne(ctx, bson.M{"_id": doc.SubjectID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Delete removes the subject's document.
func (b *Backend) Delete(ctx context.Context, subjectID string) error {
	_, err := b.coll.DeleteOne(ctx, bson.M{"_id": subjectID})
	return err
}

// PurgeExpired deletes documents last updated before cutoff.
func (b *Backend) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := b.coll.DeleteMany(ctx, bson.M{"updated_at": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Ping checks the connection, for health probes.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (b *Backend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

func toDocument(st conversation.State) document {
	doc := document{
		SubjectID: st.SubjectID,
		Step:      string(st.Step),
		LeaveType: st.Payload.LeaveType,
		StartDate: st.Payload.StartDate,
		EndDate:   st.Payload.EndDate,
		StartTime: st.Payload.StartTime,
		EndTime:   st.Payload.EndTime,
		UpdatedAt: st.UpdatedAt.UTC(),
	}
	if st.Payload.Hours.Valid {
		doc.Hours = st.Payload.Hours.Decimal.String()
	}
	return doc
}

func fromDocument(doc document) (*conversation.State, error) {
	st := &conversation.State{
		SubjectID: doc.SubjectID,
		Step:      conversation.Step(doc.Step),
		Payload: conversation.Payload{
			LeaveType: doc.LeaveType,
			StartDate: doc.StartDate,
			EndDate:   doc.EndDate,
			StartTime: doc.StartTime,
			EndTime:   doc.EndTime,
		},
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.Hours != "" {
		h, err := decimal.NewFromString(doc.Hours)
		if err != nil {
			return nil, fmt.Errorf("state %s hours %q: %w", doc.SubjectID, doc.Hours, err)
		}
		st.Payload.Hours = decimal.NewNullDecimal(h)
	}
	return st, nil
}
