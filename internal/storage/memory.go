package storage

import "sync"

// MemoryStore — хранилище в памяти для тестов и локального запуска без БД.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (s *MemoryStore) Get(clientID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[clientID][key]
	return value, ok, nil
}

func (s *MemoryStore) Set(clientID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data[clientID] == nil {
		s.data[clientID] = make(map[string]string)
	}
	s.data[clientID][key] = value
	return nil
}

func (s *MemoryStore) Delete(clientID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data[clientID], key)
	return nil
}
