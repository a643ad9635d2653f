package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/steamybites/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoQueueSize = 4096
	mongoBatchSize = 50
	mongoDrainTick = 2 * time.Second
)

// LogDocument is the shape written to the log collection.
type LogDocument struct {
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	Msg       string    `bson:"msg"`
	RequestID string    `bson:"request_id,omitempty"`
	Fields    bson.M    `bson:"fields,omitempty"`
}

type logInserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoHook ships logrus entries to MongoDB from a single background goroutine.
// Entries are dropped when the queue is full; Fire never blocks.
type MongoHook struct {
	col     logInserter
	client  *mongo.Client
	errOut  io.Writer
	levels  []logrus.Level
	queue   chan LogDocument
	done    chan struct{}
	stopped chan struct{}
}

// NewMongoHook connects to uri and writes entries at minLevel or more severe into db.collection.
func NewMongoHook(uri, db, collection string, minLevel logrus.Level) (*MongoHook, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo log hook: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo log hook: ping: %w", err)
	}

	col := client.Database(db).Collection(collection)
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "time", Value: -1}},
	})

	h := newMongoHook(col, minLevel, os.Stderr)
	h.client = client
	return h, nil
}

func newMongoHook(col logInserter, minLevel logrus.Level, errOut io.Writer) *MongoHook {
	h := &MongoHook{
		col:     col,
		errOut:  errOut,
		levels:  levelsUpTo(minLevel),
		queue:   make(chan LogDocument, mongoQueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go h.drainLoop()
	return h
}

func levelsUpTo(min logrus.Level) []logrus.Level {
	var out []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= min {
			out = append(out, l)
		}
	}
	return out
}

func (h *MongoHook) Levels() []logrus.Level { return h.levels }

func (h *MongoHook) Fire(e *logrus.Entry) error {
	doc := LogDocument{
		Time:  e.Time,
		Level: e.Level.String(),
		Msg:   e.Message,
	}
	if len(e.Data) > 0 {
		doc.Fields = bson.M{}
		for k, v := range e.Data {
			if k == "request_id" {
				doc.RequestID = fmt.Sprint(v)
				continue
			}
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			doc.Fields[k] = v
		}
	}

	select {
	case h.queue <- doc:
	default:
		metrics.LogSinkEntries.WithLabelValues("dropped").Inc()
	}
	return nil
}

func (h *MongoHook) drainLoop() {
	defer close(h.stopped)

	ticker := time.NewTicker(mongoDrainTick)
	defer ticker.Stop()

	batch := make([]interface{}, 0, mongoBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Failures go straight to errOut: logging them through logrus would feed the hook again.
		if _, err := h.col.InsertMany(ctx, batch); err != nil {
			metrics.LogSinkEntries.WithLabelValues("failed").Add(float64(len(batch)))
			fmt.Fprintf(h.errOut, "mongo log hook: dropped %d entries: %v\n", len(batch), err)
		} else {
			metrics.LogSinkEntries.WithLabelValues("written").Add(float64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case doc := <-h.queue:
			batch = append(batch, doc)
			if len(batch) >= mongoBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-h.done:
			for len(h.queue) > 0 {
				batch = append(batch, <-h.queue)
			}
			flush()
			return
		}
	}
}

// Close flushes queued entries and disconnects. Safe to call more than once.
func (h *MongoHook) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	<-h.stopped

	if h.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.client.Disconnect(ctx)
	}
}
