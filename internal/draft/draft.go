// Package draft holds the in-memory state of a post being authored: the
// ordered section list, any staged local files awaiting upload, and the
// authoring session's state machine. A draft is owned by exactly one session
// and never mutated concurrently.
package draft

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hndao/inkpost/internal/model"
)

type State int

const (
	StateClean State = iota
	StateDirty
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	default:
		return "submitting"
	}
}

// ErrSubmitInFlight rejects a second submit while one is outstanding.
// Submits within a session must be serialized.
var ErrSubmitInFlight = errors.New("a submit is already in flight")

// LocalFile is a staged image that has not been uploaded yet.
type LocalFile struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// PreviewRef is a temporary local handle to a staged file, released when the
// section is removed or the session ends.
type PreviewRef struct {
	path string
}

func (p *PreviewRef) Path() string { return p.path }

func (p *PreviewRef) Release() {
	if p.path != "" {
		os.Remove(p.path)
		p.path = ""
	}
}

// Section is the client-side superset of model.Section. At any moment exactly
// one of {ImgURL is a hosted URL, PendingFile is set, neither} holds: staging
// a new file moves the prior hosted URL into Superseded, where it waits as a
// deletion candidate until the replacement is committed.
type Section struct {
	Content     string     `json:"content"`
	ImgURL      string     `json:"img_url"`
	PendingFile *LocalFile `json:"pending_file,omitempty"`
	Superseded  string     `json:"superseded,omitempty"`

	preview *PreviewRef
}

// CommittedURL is the image URL the document store currently references for
// this section: the superseded URL while a replacement upload is pending,
// the hosted URL otherwise.
func (s *Section) CommittedURL() string {
	if s.PendingFile != nil {
		return s.Superseded
	}
	return s.ImgURL
}

func (s *Section) Preview() *PreviewRef { return s.preview }

type Draft struct {
	ID       string           `json:"id"`
	PostID   model.DocumentID `json:"post_id,omitempty"`
	Title    string           `json:"title"`
	Sections []Section        `json:"sections"`

	state State
}

func New() *Draft {
	return &Draft{
		ID:    uuid.New().String(),
		state: StateClean,
	}
}

// FromPost starts an editing session over an existing post.
func FromPost(p *model.Post) *Draft {
	d := New()
	d.PostID = p.ID
	d.Title = p.Title
	d.Sections = make([]Section, len(p.Sections))
	for i, s := range p.Sections {
		d.Sections[i] = Section{Content: s.Content, ImgURL: s.ImgURL}
	}
	return d
}

func (d *Draft) State() State { return d.state }

func (d *Draft) markDirty() {
	if d.state == StateClean {
		d.state = StateDirty
	}
}

// mustIndex panics on an out-of-range index. The UI is the only caller of
// index-addressed operations and always works from the current rendered
// list, so a bad index is a programming error, not a runtime condition.
func (d *Draft) mustIndex(i int) {
	if i < 0 || i >= len(d.Sections) {
		panic(fmt.Sprintf("draft: section index %d out of range [0,%d)", i, len(d.Sections)))
	}
}

func (d *Draft) SetTitle(title string) {
	d.Title = title
	d.markDirty()
}

// AddSection appends an empty section and returns its index.
func (d *Draft) AddSection() int {
	d.Sections = append(d.Sections, Section{})
	d.markDirty()
	return len(d.Sections) - 1
}

func (d *Draft) UpdateContent(i int, content string) {
	d.mustIndex(i)
	d.Sections[i].Content = content
	d.markDirty()
}

// AttachFile stages a local file for section i and creates a local preview
// reference for it. A previously hosted URL becomes superseded; a previously
// staged file is simply replaced.
func (d *Draft) AttachFile(i int, name string, data []byte) error {
	d.mustIndex(i)
	s := &d.Sections[i]

	if s.ImgURL != "" {
		s.Superseded = s.ImgURL
		s.ImgURL = ""
	}
	if s.preview != nil {
		s.preview.Release()
		s.preview = nil
	}

	s.PendingFile = &LocalFile{Name: name, Data: data}

	tmp, err := os.CreateTemp("", "inkpost-preview-*"+filepath.Ext(name))
	if err != nil {
		return fmt.Errorf("error creating preview file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing preview file: %w", err)
	}
	tmp.Close()
	s.preview = &PreviewRef{path: tmp.Name()}

	d.markDirty()
	return nil
}

// RemoveSection deletes section i and returns the removed section so the
// caller can schedule its image for deletion. The remaining sections keep
// their order. The removed section's preview reference is released.
func (d *Draft) RemoveSection(i int) Section {
	d.mustIndex(i)
	removed := d.Sections[i]
	if removed.preview != nil {
		removed.preview.Release()
	}

	d.Sections = append(d.Sections[:i], d.Sections[i+1:]...)
	d.markDirty()

	cp := removed
	cp.preview = nil
	return cp
}

// BeginSubmit transitions Dirty -> Submitting. Further submits are refused
// until EndSubmit.
func (d *Draft) BeginSubmit() error {
	if d.state == StateSubmitting {
		return ErrSubmitInFlight
	}
	d.state = StateSubmitting
	return nil
}

// EndSubmit leaves Submitting: on success the draft is clean (pending files
// became hosted URLs elsewhere); on failure local edits are preserved for
// retry.
func (d *Draft) EndSubmit(success bool) {
	if success {
		d.state = StateClean
		return
	}
	d.state = StateDirty
}

// ResetFrom reloads the draft from a server response after a successful
// submit, dropping staged files and releasing their previews.
func (d *Draft) ResetFrom(p *model.Post) {
	d.ReleasePreviews()
	d.PostID = p.ID
	d.Title = p.Title
	d.Sections = make([]Section, len(p.Sections))
	for i, s := range p.Sections {
		d.Sections[i] = Section{Content: s.Content, ImgURL: s.ImgURL}
	}
	d.state = StateClean
}

// ReleasePreviews frees every local preview reference. Call when the session
// ends to avoid leaking temp files.
func (d *Draft) ReleasePreviews() {
	for i := range d.Sections {
		if d.Sections[i].preview != nil {
			d.Sections[i].preview.Release()
			d.Sections[i].preview = nil
		}
	}
}

// SupersededURLs lists hosted URLs that staged files have replaced. They
// become deletion candidates once the replacing upload is committed.
func (d *Draft) SupersededURLs() []string {
	var urls []string
	for _, s := range d.Sections {
		if s.Superseded != "" {
			urls = append(urls, s.Superseded)
		}
	}
	return urls
}
