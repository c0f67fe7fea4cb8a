package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore is using mongodb, every namespace is a separate collection
// and writes are applied within a multi-document transaction, which
// requires a replica set
type MongoStore struct {
	database *mongo.Database
}

type mongoEntry struct {
	Key   []byte `bson:"_id"`
	Value []byte `bson:"value"`
}

// NewMongoStore initializing mongodb store
func NewMongoStore(database *mongo.Database) (*MongoStore, error) {
	if database == nil {
		return nil, ErrNilDB
	}

	return &MongoStore{database: database}, nil
}

// ConnectMongoStore connects to mongodb and pings it before returning
func ConnectMongoStore(ctx context.Context, uri string, database string) (*MongoStore, error) {
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	defer connectCancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "failed to ping mongodb")
	}

	return NewMongoStore(client.Database(database))
}

// Database returns the underlying database
func (s *MongoStore) Database() *mongo.Database {
	return s.database
}

type mongoTx struct {
	ctx      context.Context
	database *mongo.Database
	staged   *changeset
	writable bool
}

func (t *mongoTx) Get(ns string, key []byte) ([]byte, error) {
	if err := validate(ns, key); err != nil {
		return nil, err
	}

	if t.staged != nil {
		if v, found := t.staged.lookup(ns, key); found {
			return copyBytes(v), nil
		}
	}

	var entry mongoEntry

	err := t.database.Collection(ns).FindOne(t.ctx, bson.M{"_id": key}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "failed to find entry in collection %s", ns)
	}

	return entry.Value, nil
}

func (t *mongoTx) Put(ns string, key, value []byte) error {
	if !t.writable {
		return ErrReadOnly
	}

	if err := validatePut(ns, key, value); err != nil {
		return err
	}

	t.staged.put(ns, key, value)

	return nil
}

func (t *mongoTx) Delete(ns string, key []byte) error {
	if !t.writable {
		return ErrReadOnly
	}

	if err := validate(ns, key); err != nil {
		return err
	}

	t.staged.delete(ns, key)

	return nil
}

// View runs fn reading directly from the database
func (s *MongoStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(&mongoTx{ctx: ctx, database: s.database})
}

// Update runs fn and applies its staged writes within a transaction
func (s *MongoStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.database.Client().UseSession(ctx, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return errors.Wrap(err, "failed to start transaction")
		}

		tx := &mongoTx{
			ctx:      sc,
			database: s.database,
			staged:   newChangeset(),
			writable: true,
		}

		if err := fn(tx); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}

		for _, c := range tx.staged.changes() {
			var err error

			coll := s.database.Collection(c.ns)

			if c.value == nil {
				_, err = coll.DeleteOne(sc, bson.M{"_id": c.key})
			} else {
				_, err = coll.ReplaceOne(
					sc,
					bson.M{"_id": c.key},
					mongoEntry{Key: c.key, Value: c.value},
					options.Replace().SetUpsert(true),
				)
			}

			if err != nil {
				_ = sc.AbortTransaction(sc)
				return errors.Wrapf(err, "failed to write entry into collection %s", c.ns)
			}
		}

		if err := sc.CommitTransaction(sc); err != nil {
			return errors.Wrap(err, "failed to commit transaction")
		}

		return nil
	})
}

// Close disconnects the mongodb client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.database.Client().Disconnect(ctx)
}
