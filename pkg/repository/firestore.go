package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"

	"github.com/m-mizutani/recall/pkg/index"
	"github.com/m-mizutani/recall/pkg/model"
)

const (
	memoriesCollection  = "memories"
	historiesCollection = "histories"
	turnsCollection     = "turns"
	distanceField       = "vector_distance"
)

// Client wraps a Firestore connection and hands out the managed
// implementations of the vector index and the history log
type Client struct {
	client *firestore.Client
}

// New connects to Firestore
func New(ctx context.Context, projectID, databaseID string) (*Client, error) {
	if projectID == "" {
		return nil, goerr.New("project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	return &Client{client: client}, nil
}

// Close releases the underlying connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Index returns the Firestore-backed vector index with the given fixed
// dimension
func (c *Client) Index(dimension int) *FirestoreIndex {
	return &FirestoreIndex{client: c.client, dimension: dimension}
}

// History returns the Firestore-backed history log for a session
func (c *Client) History(session model.SessionID) *FirestoreHistory {
	return &FirestoreHistory{client: c.client, session: session}
}

type memoryDoc struct {
	Text      string             `firestore:"text"`
	Embedding firestore.Vector32 `firestore:"embedding"`
	Metadata  map[string]string  `firestore:"metadata"`
	CreatedAt time.Time          `firestore:"created_at"`
}

// FirestoreIndex implements index.Index on a Firestore collection using
// FindNearest vector search. A vector search index on the embedding
// field must exist in the target database.
type FirestoreIndex struct {
	client    *firestore.Client
	dimension int
}

var _ index.Index = (*FirestoreIndex)(nil)
var _ index.Lister = (*FirestoreIndex)(nil)

func (x *FirestoreIndex) Add(ctx context.Context, embedding []float32, text string, metadata map[string]string) (model.MemoryID, error) {
	if len(embedding) != x.dimension {
		return "", goerr.Wrap(model.ErrDimensionMismatch, "cannot add entry",
			goerr.V("expected", x.dimension), goerr.V("actual", len(embedding)))
	}

	id := model.NewMemoryID()
	doc := memoryDoc{
		Text:      text,
		Embedding: firestore.Vector32(embedding),
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := x.client.Collection(memoriesCollection).Doc(string(id)).Create(ctx, doc); err != nil {
		return "", goerr.Wrap(model.ErrPersistence, "failed to create memory document",
			goerr.V("id", id), goerr.V("cause", err))
	}

	return id, nil
}

func (x *FirestoreIndex) Search(ctx context.Context, embedding []float32, k int) ([]index.Hit, error) {
	if len(embedding) != x.dimension {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "cannot search",
			goerr.V("expected", x.dimension), goerr.V("actual", len(embedding)))
	}

	if k <= 0 {
		return nil, nil
	}

	query := x.client.Collection(memoriesCollection).FindNearest(
		"embedding",
		firestore.Vector32(embedding),
		k,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField},
	)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(model.ErrPersistence, "failed to run vector search", goerr.V("cause", err))
	}

	hits := make([]index.Hit, 0, len(docs))
	for _, doc := range docs {
		var m memoryDoc
		if err := doc.DataTo(&m); err != nil {
			return nil, goerr.Wrap(model.ErrPersistence, "failed to decode memory document",
				goerr.V("id", doc.Ref.ID), goerr.V("cause", err))
		}

		// Cosine distance is in [0, 2]; report similarity in [-1, 1]
		score := 0.0
		if raw, ok := doc.Data()[distanceField].(float64); ok {
			score = 1.0 - raw
		}

		hits = append(hits, index.Hit{
			Entry: model.MemoryEntry{
				ID:        model.MemoryID(doc.Ref.ID),
				Text:      m.Text,
				Embedding: []float32(m.Embedding),
				Metadata:  m.Metadata,
				CreatedAt: m.CreatedAt,
			},
			Score: score,
		})
	}

	return hits, nil
}

func (x *FirestoreIndex) List(ctx context.Context) ([]model.MemoryEntry, error) {
	iter := x.client.Collection(memoriesCollection).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var entries []model.MemoryEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(model.ErrPersistence, "failed to list memories", goerr.V("cause", err))
		}

		var m memoryDoc
		if err := doc.DataTo(&m); err != nil {
			return nil, goerr.Wrap(model.ErrPersistence, "failed to decode memory document",
				goerr.V("id", doc.Ref.ID), goerr.V("cause", err))
		}

		entries = append(entries, model.MemoryEntry{
			ID:        model.MemoryID(doc.Ref.ID),
			Text:      m.Text,
			Embedding: []float32(m.Embedding),
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		})
	}

	return entries, nil
}

func (x *FirestoreIndex) Clear(ctx context.Context) error {
	return deleteAll(ctx, x.client, x.client.Collection(memoriesCollection))
}

type turnDoc struct {
	Role      string    `firestore:"role"`
	Text      string    `firestore:"text"`
	Timestamp time.Time `firestore:"timestamp"`
	Seq       int64     `firestore:"seq"`
}

// FirestoreHistory implements the history log contract on a per-session
// subcollection with one document per turn. A monotonic sequence field
// disambiguates turns recorded within the same timestamp granularity.
type FirestoreHistory struct {
	client  *firestore.Client
	session model.SessionID
}

func (h *FirestoreHistory) turns() *firestore.CollectionRef {
	return h.client.Collection(historiesCollection).Doc(string(h.session)).Collection(turnsCollection)
}

func (h *FirestoreHistory) Append(ctx context.Context, role model.TurnRole, text string) error {
	if err := role.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := turnDoc{
		Role:      string(role),
		Text:      text,
		Timestamp: now,
		Seq:       now.UnixNano(),
	}

	if _, err := h.turns().NewDoc().Create(ctx, doc); err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to append turn",
			goerr.V("session", h.session), goerr.V("cause", err))
	}
	return nil
}

func (h *FirestoreHistory) Recent(ctx context.Context, n int) ([]model.HistoryTurn, error) {
	if n <= 0 {
		return nil, nil
	}

	docs, err := h.turns().OrderBy("seq", firestore.Desc).Limit(n).Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(model.ErrPersistence, "failed to read history",
			goerr.V("session", h.session), goerr.V("cause", err))
	}

	// Query is newest-first; return oldest-first
	turns := make([]model.HistoryTurn, len(docs))
	for i, doc := range docs {
		var td turnDoc
		if err := doc.DataTo(&td); err != nil {
			return nil, goerr.Wrap(model.ErrPersistence, "failed to decode turn document",
				goerr.V("id", doc.Ref.ID), goerr.V("cause", err))
		}
		turns[len(docs)-1-i] = model.HistoryTurn{
			Role:      model.TurnRole(td.Role),
			Text:      td.Text,
			Timestamp: td.Timestamp,
		}
	}

	return turns, nil
}

func (h *FirestoreHistory) Clear(ctx context.Context) error {
	return deleteAll(ctx, h.client, h.turns())
}

func deleteAll(ctx context.Context, client *firestore.Client, col *firestore.CollectionRef) error {
	iter := col.Documents(ctx)
	defer iter.Stop()

	bw := client.BulkWriter(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(model.ErrPersistence, "failed to iterate documents", goerr.V("cause", err))
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return goerr.Wrap(model.ErrPersistence, "failed to schedule delete", goerr.V("cause", err))
		}
	}
	bw.End()

	return nil
}
