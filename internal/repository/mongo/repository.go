package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

// Repository stores playback history, one document per content id.
type Repository struct {
	collection *mongo.Collection
}

type streamDoc struct {
	ID        string `bson:"_id"`
	Title     string `bson:"title"`
	Author    string `bson:"author,omitempty"`
	Quality   string `bson:"quality"`
	Mode      string `bson:"mode"`
	HDR       bool   `bson:"hdr,omitempty"`
	BytesSent int64  `bson:"bytesSent"`
	ClientIP  string `bson:"clientIp,omitempty"`
	StartedAt int64  `bson:"startedAt"`
	UpdatedAt int64  `bson:"updatedAt"`
}

func NewRepository(client *mongo.Client, dbName, collectionName string) *Repository {
	return &Repository{collection: client.Database(dbName).Collection(collectionName)}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *Repository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

// Upsert writes the record for its content id, replacing any previous
// playback of the same content.
func (r *Repository) Upsert(ctx context.Context, rec domain.StreamRecord) error {
	doc := toDoc(rec)
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *Repository) Get(ctx context.Context, contentID string) (domain.StreamRecord, error) {
	var doc streamDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": contentID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.StreamRecord{}, domain.ErrNotFound
		}
		return domain.StreamRecord{}, err
	}
	return fromDoc(doc), nil
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.StreamRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []streamDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]domain.StreamRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, fromDoc(doc))
	}
	return records, nil
}

func (r *Repository) Delete(ctx context.Context, contentID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": contentID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDoc(rec domain.StreamRecord) streamDoc {
	return streamDoc{
		ID:        rec.ContentID,
		Title:     rec.Title,
		Author:    rec.Author,
		Quality:   string(rec.Quality),
		Mode:      string(rec.Mode),
		HDR:       rec.HDR,
		BytesSent: rec.BytesSent,
		ClientIP:  rec.ClientIP,
		StartedAt: rec.StartedAt.Unix(),
		UpdatedAt: rec.UpdatedAt.Unix(),
	}
}

func fromDoc(doc streamDoc) domain.StreamRecord {
	return domain.StreamRecord{
		ContentID: doc.ID,
		Title:     doc.Title,
		Author:    doc.Author,
		Quality:   domain.Quality(doc.Quality),
		Mode:      domain.StreamMode(doc.Mode),
		HDR:       doc.HDR,
		BytesSent: doc.BytesSent,
		ClientIP:  doc.ClientIP,
		StartedAt: timeFromUnix(doc.StartedAt),
		UpdatedAt: timeFromUnix(doc.UpdatedAt),
	}
}

func timeFromUnix(value int64) time.Time {
	return time.Unix(value, 0).UTC()
}
