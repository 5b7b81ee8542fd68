package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig configures a BadgerCache.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory is set.
	Path     string
	InMemory bool
	// SyncWrites fsyncs every write.
	SyncWrites bool
	// GCInterval runs value log garbage collection periodically. Zero
	// disables it.
	GCInterval time.Duration
	// Logger receives badger's internal messages; nil silences them.
	Logger *log.Logger
}

// BadgerCache is a Cache backed by an embedded BadgerDB. Entry TTLs use
// badger's native expiry.
type BadgerCache struct {
	db   *badger.DB
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

type badgerLogger struct{ l *log.Logger }

func (b badgerLogger) Errorf(format string, args ...any)   { b.l.Error(fmt.Sprintf(format, args...)) }
func (b badgerLogger) Warningf(format string, args ...any) { b.l.Warn(fmt.Sprintf(format, args...)) }
func (b badgerLogger) Infof(format string, args ...any)    { b.l.Info(fmt.Sprintf(format, args...)) }
func (b badgerLogger) Debugf(format string, args ...any)   { b.l.Debug(fmt.Sprintf(format, args...)) }

// NewBadgerCache opens a BadgerDB according to cfg.
func NewBadgerCache(cfg BadgerConfig) (*BadgerCache, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Path == "":
		return nil, errors.New("badger cache: path is required for a persistent database")
	default:
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	c := &BadgerCache{db: db, stop: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.wg.Add(1)
		go c.gc(cfg.GCInterval)
	}
	return c, nil
}

func (c *BadgerCache) gc(every time.Duration) {
	defer c.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			for c.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// Get implements Cache.
func (c *BadgerCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, false, nil
	case errors.Is(err, badger.ErrDBClosed):
		return nil, false, ErrClosed
	case err != nil:
		return nil, false, err
	}
	return out, true, nil
}

// Set implements Cache.
func (c *BadgerCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// Delete implements Cache.
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// Close stops garbage collection and closes the database.
func (c *BadgerCache) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		c.wg.Wait()
		err = c.db.Close()
	})
	return err
}

var _ Cache = (*BadgerCache)(nil)
