package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/esmstat/pkg/classify"
)

const mongoCollection = "snapshots"

// MongoStore keeps one document per date:
//
//	{_id: "2024-01-31", styles: [{name: "react", style: "cjs"}, ...], saved_at: ISODate(...)}
//
// Styles are stored as a list because package names such as "lodash.get"
// are not safe field names.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoSnapshot struct {
	Date    string       `bson:"_id"`
	Styles  []mongoEntry `bson:"styles"`
	SavedAt time.Time    `bson:"saved_at"`
}

type mongoEntry struct {
	Name  string `bson:"name"`
	Style string `bson:"style"`
}

// OpenMongo connects to uri and uses the snapshots collection of database.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
	}, nil
}

// Save upserts the document for the snapshot date.
func (m *MongoStore) Save(ctx context.Context, s *Snapshot) error {
	if err := validate(s); err != nil {
		return err
	}
	doc := mongoSnapshot{
		Date:    s.Date,
		Styles:  make([]mongoEntry, 0, len(s.Styles)),
		SavedAt: time.Now().UTC(),
	}
	for _, name := range s.Names() {
		doc.Styles = append(doc.Styles, mongoEntry{Name: name, Style: string(s.Styles[name])})
	}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": s.Date}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.Date, err)
	}
	return nil
}

// Load returns the snapshot for date.
func (m *MongoStore) Load(ctx context.Context, date string) (*Snapshot, error) {
	var doc mongoSnapshot
	err := m.coll.FindOne(ctx, bson.M{"_id": date}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, date)
	}
	if err != nil {
		return nil, err
	}
	s := New(date)
	for _, e := range doc.Styles {
		s.Styles[e.Name] = classify.Style(e.Style)
	}
	return s, nil
}

// List returns all snapshot dates in ascending order.
func (m *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var dates []string
	for cur.Next(ctx) {
		var doc struct {
			Date string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		dates = append(dates, doc.Date)
	}
	return dates, cur.Err()
}

// Close disconnects the client.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
