// Package model defines the wire-level data structures shared by the gateways.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DocumentID is a post's opaque document-store id. The API is not consistent
// about its shape: some deployments return a plain string, others the wrapped
// form {"$oid": "..."}. Both are resolved here, once, so nothing downstream
// ever inspects the raw value.
type DocumentID string

func (id *DocumentID) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*id = DocumentID(plain)
		return nil
	}

	var wrapped struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.OID != "" {
		*id = DocumentID(wrapped.OID)
		return nil
	}

	return fmt.Errorf("unrecognized document id shape: %s", data)
}

func (id DocumentID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// Timestamp handles the same duality for dates: either an RFC 3339 string or
// the wrapped form {"$date": "..."}.
type Timestamp struct {
	time.Time
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		return ts.parse(plain)
	}

	var wrapped struct {
		Date string `json:"$date"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Date != "" {
		return ts.parse(wrapped.Date)
	}

	return fmt.Errorf("unrecognized timestamp shape: %s", data)
}

func (ts *Timestamp) parse(s string) error {
	for _, format := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(format, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp format: %q", s)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

// Section is one content+optional-image unit within a post. Order is
// significant and preserved by every gateway call. An empty ImgURL means
// "no image"; once set to a hosted URL it is assumed to reference a live
// object until explicitly deleted.
type Section struct {
	Content string `json:"content"`
	ImgURL  string `json:"img_url"`
}

// Author is set server-side and immutable from this client.
type Author struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type Post struct {
	ID        DocumentID `json:"_id"`
	Title     string     `json:"title"`
	Sections  []Section  `json:"sections"`
	Author    *Author    `json:"author,omitempty"`
	CreatedAt Timestamp  `json:"createdAt"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`
}

// ImageURLs returns the hosted image URLs of all sections that have one, in
// section order.
func (p *Post) ImageURLs() []string {
	var urls []string
	for _, s := range p.Sections {
		if s.ImgURL != "" {
			urls = append(urls, s.ImgURL)
		}
	}
	return urls
}
