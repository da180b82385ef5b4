package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// MemoryEngine 本地引擎：进程内版本化文档存储，可选地把全量快照
// 写入一个 JSON 文件，重启后恢复。
type MemoryEngine struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
	path        string // 为空时不落盘
}

type snapshotRecord struct {
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func NewMemoryEngine(path string) (*MemoryEngine, error) {
	e := &MemoryEngine{
		collections: make(map[string]map[string]Record),
		path:        path,
	}
	if path != "" {
		if err := e.load(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *MemoryEngine) load() error {
	raw, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var snapshot map[string]map[string]snapshotRecord
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return err
	}
	for coll, records := range snapshot {
		e.collections[coll] = make(map[string]Record, len(records))
		for key, rec := range records {
			e.collections[coll][key] = Record{Key: key, Version: rec.Version, Data: rec.Data}
		}
	}
	return nil
}

// persist 持锁调用
func (e *MemoryEngine) persist() {
	if e.path == "" {
		return
	}
	snapshot := make(map[string]map[string]snapshotRecord, len(e.collections))
	for coll, records := range e.collections {
		snapshot[coll] = make(map[string]snapshotRecord, len(records))
		for key, rec := range records {
			snapshot[coll][key] = snapshotRecord{Version: rec.Version, Data: rec.Data}
		}
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if dir := filepath.Dir(e.path); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return
	}
	os.Rename(tmp, e.path)
}

func (e *MemoryEngine) Get(_ context.Context, collection, key string) (Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.collections[collection][key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (e *MemoryEngine) List(_ context.Context, collection string) ([]Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	records := make([]Record, 0, len(e.collections[collection]))
	for _, rec := range e.collections[collection] {
		records = append(records, cloneRecord(rec))
	}
	return records, nil
}

func (e *MemoryEngine) Put(_ context.Context, collection, key string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.apply(Op{Kind: OpPut, Collection: collection, Key: key, Data: data})
	e.persist()
	return nil
}

func (e *MemoryEngine) PutIfVersion(_ context.Context, collection, key string, data []byte, expectedVersion int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(collection, key, expectedVersion); err != nil {
		return ErrVersionConflict
	}
	e.apply(Op{Kind: OpPut, Collection: collection, Key: key, Data: data})
	e.persist()
	return nil
}

func (e *MemoryEngine) Transact(_ context.Context, ops []Op) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	// 先校验全部版本期望，再统一应用，保证原子性
	for _, op := range ops {
		if err := e.check(op.Collection, op.Key, op.ExpectedVersion); err != nil {
			return ErrAborted
		}
	}
	for _, op := range ops {
		e.apply(op)
	}
	e.persist()
	return nil
}

func (e *MemoryEngine) Delete(_ context.Context, collection, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.collections[collection], key)
	e.persist()
	return nil
}

func (e *MemoryEngine) check(collection, key string, expected int64) error {
	if expected == VersionAny {
		return nil
	}
	current, ok := e.collections[collection][key]
	if expected == VersionNone {
		if ok {
			return ErrVersionConflict
		}
		return nil
	}
	if !ok || current.Version != expected {
		return ErrVersionConflict
	}
	return nil
}

func (e *MemoryEngine) apply(op Op) {
	if op.Kind == OpDelete {
		delete(e.collections[op.Collection], op.Key)
		return
	}
	coll, ok := e.collections[op.Collection]
	if !ok {
		coll = make(map[string]Record)
		e.collections[op.Collection] = coll
	}
	next := int64(1)
	if current, exists := coll[op.Key]; exists {
		next = current.Version + 1
	}
	data := make([]byte, len(op.Data))
	copy(data, op.Data)
	coll[op.Key] = Record{Key: op.Key, Version: next, Data: data}
}

func cloneRecord(rec Record) Record {
	data := make([]byte, len(rec.Data))
	copy(data, rec.Data)
	return Record{Key: rec.Key, Version: rec.Version, Data: data}
}
