package draft

import (
	"fmt"
	"sync"
)

type MemoryStore struct {
	drafts sync.Map
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(d *Draft) error {
	data, err := encode(d)
	if err != nil {
		return err
	}
	m.drafts.Store(d.ID, data)
	return nil
}

func (m *MemoryStore) Get(id string) (*Draft, error) {
	if data, ok := m.drafts.Load(id); ok {
		return decode(data.([]byte))
	}
	return nil, fmt.Errorf("draft not found: %s", id)
}

func (m *MemoryStore) Delete(id string) error {
	m.drafts.Delete(id)
	return nil
}
