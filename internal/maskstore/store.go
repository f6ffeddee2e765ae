// Package maskstore persists pruning runs in LevelDB: a JSON record per run
// plus the masks encoded as SafeTensors.
package maskstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/hunkoufanchi777/SynCW/internal/serialization"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// LevelDB key prefix scheme, "|" separated:
//
//	r|<id>               → Record JSON
//	m|<id>               → SafeTensors mask payload
//	e|<experiment>|<id>  → nil (experiment index)
const (
	prefixRecord = "r|"
	prefixMasks  = "m|"
	prefixExp    = "e|"
)

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("maskstore: run not found")

// Record describes one stored pruning run.
type Record struct {
	ID          string    `json:"id"`
	Experiment  string    `json:"experiment"`
	Network     string    `json:"network"`
	RankAlgo    string    `json:"rank_algo"`
	TargetRatio float64   `json:"target_ratio"`
	KeepRatio   float64   `json:"keep_ratio"`
	Layers      []string  `json:"layers"`
	LayerRatios []float64 `json:"layer_ratios"`
	Checksum    string    `json:"checksum"` // hex SHA-256 of the mask payload
	CreatedAt   string    `json:"created_at"`
}

// Store is a LevelDB-backed run store. It is safe for concurrent use.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) a LevelDB database in the directory path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("maskstore: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores masks under rec. rec.Layers names the masks in order. A new
// id and creation time are assigned when missing; the stored record is
// returned.
func (s *Store) Save(rec Record, masks []*tensor.Tensor) (Record, error) {
	if len(rec.Layers) != len(masks) {
		return Record{}, fmt.Errorf("maskstore: %d layer names for %d masks", len(rec.Layers), len(masks))
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return Record{}, fmt.Errorf("maskstore: run id %q: %w", rec.ID, err)
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if strings.Contains(rec.Experiment, "|") {
		return Record{}, fmt.Errorf("maskstore: experiment name %q contains '|'", rec.Experiment)
	}

	var payload bytes.Buffer
	meta := map[string]string{"run": rec.ID, "experiment": rec.Experiment, "network": rec.Network}
	if err := serialization.WriteMasks(&payload, rec.Layers, masks, meta); err != nil {
		return Record{}, fmt.Errorf("maskstore: encode masks: %w", err)
	}
	rec.Checksum = serialization.ChecksumHex(payload.Bytes())

	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("maskstore: marshal record: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(prefixRecord+rec.ID), data)
	batch.Put([]byte(prefixMasks+rec.ID), payload.Bytes())
	batch.Put([]byte(expKey(rec.Experiment, rec.ID)), nil)
	if err := s.db.Write(batch, nil); err != nil {
		return Record{}, fmt.Errorf("maskstore: write run %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Record returns the record of run id.
func (s *Store) Record(id string) (Record, error) {
	data, err := s.db.Get([]byte(prefixRecord+id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("maskstore: read run %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("maskstore: decode run %s: %w", id, err)
	}
	return rec, nil
}

// Load returns the record and masks of run id, verifying the checksum.
func (s *Store) Load(id string) (Record, []*tensor.Tensor, error) {
	rec, err := s.Record(id)
	if err != nil {
		return Record{}, nil, err
	}
	payload, err := s.db.Get([]byte(prefixMasks+id), nil)
	if err != nil {
		return Record{}, nil, fmt.Errorf("maskstore: read masks of %s: %w", id, err)
	}
	if err := serialization.ValidateChecksumHex(payload, rec.Checksum); err != nil {
		return Record{}, nil, fmt.Errorf("maskstore: run %s: %w", id, err)
	}
	file, err := serialization.ReadBytes(payload)
	if err != nil {
		return Record{}, nil, fmt.Errorf("maskstore: decode masks of %s: %w", id, err)
	}
	masks, err := file.Masks(rec.Layers)
	if err != nil {
		return Record{}, nil, fmt.Errorf("maskstore: decode masks of %s: %w", id, err)
	}
	return rec, masks, nil
}

// MaskBytes returns the raw SafeTensors payload of run id.
func (s *Store) MaskBytes(id string) ([]byte, error) {
	payload, err := s.db.Get([]byte(prefixMasks+id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return payload, err
}

// List returns the runs of experiment, or every run when experiment is
// empty, oldest first.
func (s *Store) List(experiment string) ([]Record, error) {
	var ids []string
	if experiment == "" {
		iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixRecord)), nil)
		for iter.Next() {
			ids = append(ids, strings.TrimPrefix(string(iter.Key()), prefixRecord))
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return nil, err
		}
	} else {
		prefix := expKey(experiment, "")
		iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
		for iter.Next() {
			ids = append(ids, strings.TrimPrefix(string(iter.Key()), prefix))
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return nil, err
		}
	}

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Record(id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// Delete removes run id.
func (s *Store) Delete(id string) error {
	rec, err := s.Record(id)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Delete([]byte(prefixRecord + id))
	batch.Delete([]byte(prefixMasks + id))
	batch.Delete([]byte(expKey(rec.Experiment, id)))
	return s.db.Write(batch, nil)
}

func expKey(experiment, id string) string {
	return prefixExp + experiment + "|" + id
}
