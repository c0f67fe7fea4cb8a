package kv_test

import (
	"context"
	"os"
	"strings"

	"github.com/agubarev/rolegate/pkg/kv"
	"github.com/agubarev/rolegate/pkg/util"
	"github.com/go-redis/redis"
	"github.com/gocraft/dbr/v2"
	"github.com/pkg/errors"
)

// remote backends are only tested when their test instances are given
// through the environment, i.e.:
//   ROLEGATE_TEST_MYSQL_DSN="user:pass@tcp(127.0.0.1:3306)/rolegate_test"
//   ROLEGATE_TEST_REDIS_ADDR="127.0.0.1:6379"
//   ROLEGATE_TEST_MONGODB_URI="mongodb://127.0.0.1:27017/?replicaSet=rs0"
var errNotConfigured = errors.New("test backend is not configured")

func mysqlStoreForTesting() (kv.Store, func(), error) {
	dsn := strings.TrimSpace(os.Getenv("ROLEGATE_TEST_MYSQL_DSN"))
	if dsn == "" {
		return nil, nil, errNotConfigured
	}

	conn, err := dbr.Open("mysql", dsn, nil)
	if err != nil {
		return nil, nil, err
	}

	s, err := kv.NewMySQLStore(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	// test database is wiped before and after each run
	truncate := func() {
		conn.NewSession(nil).DeleteFrom("kv_entry").Exec()
	}

	truncate()

	return s, func() {
		truncate()
		s.Close()
	}, nil
}

func redisStoreForTesting() (kv.Store, func(), error) {
	addr := strings.TrimSpace(os.Getenv("ROLEGATE_TEST_REDIS_ADDR"))
	if addr == "" {
		return nil, nil, errNotConfigured
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, nil, err
	}

	// unique prefix per run, keys are removed on cleanup
	prefix := "rolegate-test-" + util.NewULID().String() + ":"

	s, err := kv.NewRedisStore(client, prefix)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	return s, func() {
		if keys, err := client.Keys(prefix + "*").Result(); err == nil && len(keys) > 0 {
			client.Del(keys...)
		}

		s.Close()
	}, nil
}

func mongoStoreForTesting() (kv.Store, func(), error) {
	uri := strings.TrimSpace(os.Getenv("ROLEGATE_TEST_MONGODB_URI"))
	if uri == "" {
		return nil, nil, errNotConfigured
	}

	ctx := context.Background()

	// unique database per run, dropped on cleanup
	s, err := kv.ConnectMongoStore(ctx, uri, "rolegate_test_"+util.NewULID().String())
	if err != nil {
		return nil, nil, err
	}

	return s, func() {
		s.Database().Drop(ctx)
		s.Close()
	}, nil
}
