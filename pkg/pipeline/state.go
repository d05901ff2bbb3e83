package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// DefaultStateFile is the state document name, relative to the directory the
// setup is invoked from.
const DefaultStateFile = ".vibe_setup_state.json"

// State is the durable record of completed steps and auxiliary choices.
//
// Every mutation is read-modify-persist: the document is re-read from
// storage, the change applied, and the whole map written back before the
// call returns. The in-memory map only changes once the write is confirmed.
type State struct {
	mu      sync.RWMutex
	storage Storage
	values  map[string]any
}

// Load reads the state document from storage. A missing document yields an
// empty state; a malformed one fails with KindCorruptState.
func Load(storage Storage) (*State, error) {
	values, err := readValues(storage)
	if err != nil {
		return nil, err
	}
	return &State{storage: storage, values: values}, nil
}

// LoadFile is Load over a FileStorage at path.
func LoadFile(path string) (*State, error) {
	return Load(NewFileStorage(path))
}

// Reload replaces the in-memory map with the current durable content.
func (s *State) Reload() error {
	values, err := readValues(s.storage)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// Location returns where the state is stored.
func (s *State) Location() string {
	return s.storage.Location()
}

// Get returns the value stored under key, or def when the key is absent.
func (s *State) Get(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present, whatever its value.
func (s *State) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

// Bool reports whether the value under key is truthy.
func (s *State) Bool(key string) bool {
	return truthy(s.Get(key, nil))
}

// String returns the value under key when it is a string, "" otherwise.
func (s *State) String(key string) string {
	v, _ := s.Get(key, nil).(string)
	return v
}

// Update sets key to value and persists the whole document.
func (s *State) Update(key string, value any) error {
	return s.UpdateMany(map[string]any{key: value})
}

// UpdateMany sets several keys in a single durable write.
func (s *State) UpdateMany(values map[string]any) error {
	return s.mutate(func(m map[string]any) {
		for k, v := range values {
			m[k] = v
		}
	})
}

// Delete removes keys and persists the document. The pipeline never calls
// it; it backs the reset command.
func (s *State) Delete(keys ...string) error {
	return s.mutate(func(m map[string]any) {
		for _, k := range keys {
			delete(m, k)
		}
	})
}

func (s *State) mutate(apply func(map[string]any)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := readValues(s.storage)
	if err != nil {
		return err
	}
	apply(current)

	data, err := encodeValues(current)
	if err != nil {
		return NewPersistFailure(s.storage.Location(), err)
	}
	if err := s.storage.Write(data); err != nil {
		return NewPersistFailure(s.storage.Location(), err)
	}

	s.values = current
	return nil
}

// Snapshot returns a copy of all key/value pairs.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Keys returns all keys in lexical order.
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readValues(storage Storage) (map[string]any, error) {
	data, err := storage.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read state %s: %w", storage.Location(), err)
	}
	return decodeValues(storage.Location(), data)
}

func decodeValues(location string, data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, NewCorruptStateError(location, errors.New("document is null, want an object"))
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	values := map[string]any{}
	if err := dec.Decode(&values); err != nil {
		return nil, NewCorruptStateError(location, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, NewCorruptStateError(location, errors.New("trailing content after document"))
	}
	return values, nil
}

func encodeValues(values map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// truthy follows JSON truthiness: false, null, 0, "" and empty containers
// are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
