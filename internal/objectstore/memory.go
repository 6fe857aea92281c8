package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Memory is an in-process Store for local development and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	failGet map[string]error
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]memoryObject),
		failGet: make(map[string]error),
	}
}

// PutBytes stores data under key.
func (m *Memory) PutBytes(key string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: bytes.Clone(data), contentType: contentType}
}

// FailGet makes every later Get or GetPartial of key return err.
func (m *Memory) FailGet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet[key] = err
}

func (m *Memory) lookup(key string) (memoryObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.failGet[key]; ok {
		return memoryObject{}, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return memoryObject{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return obj, nil
}

func (m *Memory) Stat(_ context.Context, key string) (ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, ErrNotFound)
	}
	return ObjectInfo{Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *Memory) GetPartial(_ context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	obj, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	size := int64(len(obj.data))
	if offset < 0 || offset >= size || length <= 0 {
		return nil, fmt.Errorf("get range %s: invalid range %d+%d of %d", key, offset, length, size)
	}
	end := min(offset+length, size)
	return io.NopCloser(bytes.NewReader(obj.data[offset:end])), nil
}

func (m *Memory) Put(_ context.Context, key string, body io.ReadSeeker, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	m.PutBytes(key, data, contentType)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) PresignGet(_ context.Context, key, _ string, expires time.Duration) (string, error) {
	return fmt.Sprintf("memory://%s?expires=%d", key, int(expires.Seconds())), nil
}
