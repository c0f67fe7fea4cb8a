package kv

import (
	"context"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gocraft/dbr/v2"
	"github.com/pkg/errors"
)

// entry_key holds at most 255 bytes, callers must keep keys within it
const mysqlSchema = "CREATE TABLE IF NOT EXISTS `kv_entry` (" +
	"`namespace` VARCHAR(191) NOT NULL, " +
	"`entry_key` VARBINARY(255) NOT NULL, " +
	"`value` BLOB NOT NULL, " +
	"PRIMARY KEY (`namespace`, `entry_key`)" +
	") ENGINE=InnoDB"

// MySQLStore keeps every namespace within a single `kv_entry` table
type MySQLStore struct {
	db *dbr.Connection
}

type mysqlEntry struct {
	Value []byte `db:"value"`
}

// NewMySQLStore initializing mysql store, creating its table if needed
func NewMySQLStore(db *dbr.Connection) (*MySQLStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	s := &MySQLStore{db: db}

	return s, s.Init()
}

// OpenMySQLStore connects to mysql by a given DSN
func OpenMySQLStore(dsn string) (*MySQLStore, error) {
	conn, err := dbr.Open("mysql", dsn, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mysql")
	}

	return NewMySQLStore(conn)
}

// Init creates the table if it doesn't exist yet
func (s *MySQLStore) Init() error {
	if _, err := s.db.NewSession(nil).Exec(mysqlSchema); err != nil {
		return errors.Wrap(err, "failed to create kv_entry table")
	}

	return nil
}

type mysqlTx struct {
	ctx      context.Context
	tx       *dbr.Tx
	writable bool
}

func (t *mysqlTx) Get(ns string, key []byte) ([]byte, error) {
	if err := validate(ns, key); err != nil {
		return nil, err
	}

	var entry mysqlEntry

	stmt := t.tx.
		Select("value").
		From("kv_entry").
		Where("namespace = ? AND entry_key = ?", ns, key)

	// rows read by a writer stay locked until commit, so a concurrent
	// read-modify-write of the same entry waits instead of overwriting
	if t.writable {
		stmt = t.tx.SelectBySql(
			"SELECT value FROM kv_entry WHERE namespace = ? AND entry_key = ? FOR UPDATE",
			ns,
			key,
		)
	}

	err := stmt.LoadOneContext(t.ctx, &entry)

	if err != nil {
		if err == dbr.ErrNotFound {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "failed to select entry from namespace %s", ns)
	}

	return entry.Value, nil
}

func (t *mysqlTx) Put(ns string, key, value []byte) error {
	if !t.writable {
		return ErrReadOnly
	}

	if err := validatePut(ns, key, value); err != nil {
		return err
	}

	_, err := t.tx.InsertBySql(
		"INSERT INTO kv_entry (namespace, entry_key, value) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE value = ?",
		ns,
		key,
		value,
		value,
	).ExecContext(t.ctx)

	if err != nil {
		return errors.Wrapf(err, "failed to upsert entry into namespace %s", ns)
	}

	return nil
}

func (t *mysqlTx) Delete(ns string, key []byte) error {
	if !t.writable {
		return ErrReadOnly
	}

	if err := validate(ns, key); err != nil {
		return err
	}

	_, err := t.tx.
		DeleteFrom("kv_entry").
		Where("namespace = ? AND entry_key = ?", ns, key).
		ExecContext(t.ctx)

	if err != nil {
		return errors.Wrapf(err, "failed to delete entry from namespace %s", ns)
	}

	return nil
}

func (s *MySQLStore) run(ctx context.Context, writable bool, fn func(tx Tx) error) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.NewSession(nil).BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin a transaction")
	}

	defer tx.RollbackUnlessCommitted()

	if err = fn(&mysqlTx{ctx: ctx, tx: tx, writable: writable}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// View runs fn within a transaction that is never expected to write
func (s *MySQLStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, false, fn)
}

// Update runs fn within a read-write transaction
func (s *MySQLStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, true, fn)
}

// Close closes the connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
