package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tarungka/sift/internal/logger"
	"github.com/tarungka/sift/stream"
)

// BadgerBackend persists operator state in a badger database so a pipeline
// can pick up its last checkpoint after a restart. State is stored as JSON
// under op/<operatorID>/<checkpointID>.
type BadgerBackend struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerBackend opens a file backed database at dir. An empty dir opens
// an in-memory database, which is mostly useful in tests.
func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	log := logger.GetLogger("statedb")

	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening state database at %q: %w", dir, err)
	}
	log.Debug().Str("dir", dir).Msg("opened state database")

	return &BadgerBackend{db: db, logger: log}, nil
}

func badgerKey(operatorID string, checkpointID int64) []byte {
	return []byte(fmt.Sprintf("op/%s/%d", operatorID, checkpointID))
}

// Save saves the state of an operator.
func (b *BadgerBackend) Save(operatorID string, checkpointID int64, state stream.State) error {
	buf, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("error encoding state for operator %s: %w", operatorID, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(operatorID, checkpointID), buf)
	})
	if err != nil {
		return fmt.Errorf("error writing state for operator %s: %w", operatorID, err)
	}
	b.logger.Trace().Str("operator", operatorID).Int64("checkpoint", checkpointID).Msg("saved operator state")
	return nil
}

// Load loads the state of an operator.
func (b *BadgerBackend) Load(operatorID string, checkpointID int64) (stream.State, error) {
	var buf []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(operatorID, checkpointID))
		if err != nil {
			return err
		}
		buf, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("state not found for operator %s and checkpoint %d", operatorID, checkpointID)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading state for operator %s: %w", operatorID, err)
	}

	var state stream.State
	if err := json.Unmarshal(buf, &state); err != nil {
		return nil, fmt.Errorf("error decoding state for operator %s: %w", operatorID, err)
	}
	return state, nil
}

// LoadLatest scans the operator's checkpoints and loads the one with the
// highest id. Checkpoint ids are timestamps so key order is not enough, the
// id is parsed out of every key.
func (b *BadgerBackend) LoadLatest(operatorID string) (stream.State, int64, error) {
	prefix := []byte(fmt.Sprintf("op/%s/", operatorID))

	var latest int64
	var buf []byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id, err := strconv.ParseInt(string(bytes.TrimPrefix(item.Key(), prefix)), 10, 64)
			if err != nil {
				continue
			}
			if buf != nil && id <= latest {
				continue
			}
			buf, err = item.ValueCopy(nil)
			if err != nil {
				return err
			}
			latest = id
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning state for operator %s: %w", operatorID, err)
	}
	if buf == nil {
		return nil, 0, fmt.Errorf("operator %s: %w", operatorID, ErrNoState)
	}

	var state stream.State
	if err := json.Unmarshal(buf, &state); err != nil {
		return nil, 0, fmt.Errorf("error decoding state for operator %s: %w", operatorID, err)
	}
	return state, latest, nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
