package draft

import (
	"encoding/json"
	"fmt"
)

// Store persists authoring sessions locally so a crash or restart does not
// lose staged work. Stored drafts are client-only state; nothing here touches
// the network.
type Store interface {
	Save(d *Draft) error
	Get(id string) (*Draft, error)
	Delete(id string) error
}

func encode(d *Draft) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("error encoding draft: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("error decoding draft: %w", err)
	}
	// A persisted draft is unsubmitted work by definition.
	d.state = StateDirty
	return &d, nil
}
