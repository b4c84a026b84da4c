package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hndao/inkpost/internal/document"
	"github.com/hndao/inkpost/internal/draft"
	"github.com/hndao/inkpost/internal/media"
	"github.com/hndao/inkpost/internal/model"
	"github.com/hndao/inkpost/internal/storageid"
)

// eventLog records the order of cross-gateway calls.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

type mockPosts struct {
	log *eventLog

	createCalls []document.CreatePost
	updateCalls []document.UpdatePost
	deleteCalls []model.DocumentID

	post      *model.Post
	createErr error
	updateErr error
	deleteErr error
}

func (m *mockPosts) Create(_ context.Context, input document.CreatePost) (*model.Post, error) {
	m.log.add("create")
	m.createCalls = append(m.createCalls, input)
	if m.createErr != nil {
		return nil, m.createErr
	}
	post := &model.Post{ID: "p1", Title: input.Title, Sections: input.Sections}
	return post, nil
}

func (m *mockPosts) GetByID(_ context.Context, id model.DocumentID) (*model.Post, error) {
	m.log.add("get")
	if m.post == nil {
		return nil, fmt.Errorf("post not found: %s", id)
	}
	return m.post, nil
}

func (m *mockPosts) Update(_ context.Context, id model.DocumentID, input document.UpdatePost) (*model.Post, error) {
	m.log.add("update")
	m.updateCalls = append(m.updateCalls, input)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &model.Post{ID: id, Title: input.Title, Sections: input.Sections}, nil
}

func (m *mockPosts) Delete(_ context.Context, id model.DocumentID) error {
	m.log.add("delete")
	m.deleteCalls = append(m.deleteCalls, id)
	return m.deleteErr
}

type mockMedia struct {
	log *eventLog
	mu  sync.Mutex

	uploaded  []string
	removed   []string
	uploadErr error
	results   map[string]media.RemoveResult
}

func (m *mockMedia) Upload(_ context.Context, file io.Reader, filename, folder string) (string, error) {
	m.log.add("upload:" + filename)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploaded = append(m.uploaded, filename)
	return "https://cdn.example.com/" + folder + "/" + filename, nil
}

func (m *mockMedia) Remove(_ context.Context, id storageid.Identifier) (media.RemoveResult, error) {
	m.log.add("remove:" + id.PublicID())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, id.PublicID())
	if res, ok := m.results[id.PublicID()]; ok {
		if res == media.RemoveFailed {
			return res, errors.New("storage error")
		}
		return res, nil
	}
	return media.RemoveDeleted, nil
}

func newTestCoordinator() (*Coordinator, *mockPosts, *mockMedia) {
	log := &eventLog{}
	posts := &mockPosts{log: log}
	mediaGw := &mockMedia{log: log}
	return New(posts, mediaGw, "post-images"), posts, mediaGw
}

func TestCreateResolvesPendingFiles(t *testing.T) {
	c, posts, _ := newTestCoordinator()

	d := draft.New()
	d.SetTitle("T")
	d.AddSection()
	d.UpdateContent(0, "A")
	require.NoError(t, d.AttachFile(0, "f1.png", []byte("bytes")))
	d.AddSection()
	d.UpdateContent(1, "B")

	post, _, err := c.Create(context.Background(), d)
	require.NoError(t, err)

	require.Len(t, posts.createCalls, 1)
	payload := posts.createCalls[0]
	require.Len(t, payload.Sections, 2)
	assert.Equal(t, model.Section{Content: "A", ImgURL: "https://cdn.example.com/post-images/f1.png"}, payload.Sections[0])
	assert.Equal(t, model.Section{Content: "B", ImgURL: ""}, payload.Sections[1])

	// Success reloads the draft from the server response.
	assert.Equal(t, draft.StateClean, d.State())
	assert.Equal(t, post.ID, d.PostID)
}

func TestCreateUploadFailureNeverCallsDocumentStore(t *testing.T) {
	c, posts, mediaGw := newTestCoordinator()
	mediaGw.uploadErr = errors.New("storage unreachable")

	d := draft.New()
	d.SetTitle("T")
	d.AddSection()
	d.UpdateContent(0, "A")
	require.NoError(t, d.AttachFile(0, "f1.png", []byte("bytes")))
	defer d.ReleasePreviews()

	_, _, err := c.Create(context.Background(), d)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Empty(t, posts.createCalls, "create must not be called after a failed upload")

	// Local edits survive for retry.
	assert.Equal(t, draft.StateDirty, d.State())
	assert.NotNil(t, d.Sections[0].PendingFile)
}

func TestCreateValidation(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(d *draft.Draft)
	}{
		{
			name: "Empty title",
			setup: func(d *draft.Draft) {
				d.AddSection()
				d.UpdateContent(0, "content")
			},
		},
		{
			name: "No sections",
			setup: func(d *draft.Draft) {
				d.SetTitle("T")
			},
		},
		{
			name: "Empty section content",
			setup: func(d *draft.Draft) {
				d.SetTitle("T")
				d.AddSection()
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, posts, mediaGw := newTestCoordinator()

			d := draft.New()
			tc.setup(d)

			_, _, err := c.Create(context.Background(), d)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)

			// Rejected before any network call.
			assert.Empty(t, posts.log.events)
			assert.Empty(t, mediaGw.uploaded)
		})
	}
}

func TestSubmitConcurrentSubmitRefused(t *testing.T) {
	c, _, _ := newTestCoordinator()

	d := draft.New()
	d.PostID = "p1"
	d.SetTitle("T")
	d.AddSection()
	d.UpdateContent(0, "A")
	require.NoError(t, d.BeginSubmit())

	_, _, err := c.Submit(context.Background(), d)
	assert.ErrorIs(t, err, draft.ErrSubmitInFlight)
}

func TestSubmitDeletesSupersededImages(t *testing.T) {
	c, posts, mediaGw := newTestCoordinator()

	d := draft.New()
	d.PostID = "p1"
	d.SetTitle("T")
	d.AddSection()
	d.UpdateContent(0, "A")
	d.Sections[0].ImgURL = "https://cdn.example.com/post-images/old.png"
	require.NoError(t, d.AttachFile(0, "new.png", []byte("bytes")))

	post, report, err := c.Submit(context.Background(), d)
	require.NoError(t, err)

	require.Len(t, posts.updateCalls, 1)
	assert.Equal(t, "https://cdn.example.com/post-images/new.png", posts.updateCalls[0].Sections[0].ImgURL)

	// The replaced image is cleaned up only after the update is confirmed.
	assert.Equal(t, []string{"post-images/old"}, mediaGw.removed)
	assert.Equal(t, []string{"post-images/old"}, report.Deleted)

	assert.Equal(t, "https://cdn.example.com/post-images/new.png", post.Sections[0].ImgURL)
	assert.Equal(t, draft.StateClean, d.State())
}

func TestSubmitDocumentFailurePreservesDraft(t *testing.T) {
	c, posts, mediaGw := newTestCoordinator()
	posts.updateErr = errors.New("503")

	d := draft.New()
	d.PostID = "p1"
	d.SetTitle("T")
	d.AddSection()
	d.UpdateContent(0, "A")
	d.Sections[0].ImgURL = "https://cdn.example.com/post-images/old.png"
	require.NoError(t, d.AttachFile(0, "new.png", []byte("bytes")))
	defer d.ReleasePreviews()

	_, _, err := c.Submit(context.Background(), d)

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)

	// No superseded cleanup without a confirmed update.
	assert.Empty(t, mediaGw.removed)
	assert.Equal(t, draft.StateDirty, d.State())
}

func TestRemoveSectionEagerCommit(t *testing.T) {
	c, posts, mediaGw := newTestCoordinator()

	post := &model.Post{
		ID:    "p1",
		Title: "T",
		Sections: []model.Section{
			{Content: "A", ImgURL: "https://cdn.example.com/post-images/i0.png"},
			{Content: "B", ImgURL: "https://cdn.example.com/post-images/i1.png"},
			{Content: "C", ImgURL: ""},
		},
	}
	d := draft.FromPost(post)

	report, err := c.RemoveSection(context.Background(), d, 1)
	require.NoError(t, err)

	// Exactly one media remove, for the removed section's image.
	assert.Equal(t, []string{"post-images/i1"}, mediaGw.removed)
	assert.Equal(t, []string{"post-images/i1"}, report.Deleted)

	// Exactly one immediate update with the reduced, order-preserving list.
	require.Len(t, posts.updateCalls, 1)
	sections := posts.updateCalls[0].Sections
	require.Len(t, sections, 2)
	assert.Equal(t, "A", sections[0].Content)
	assert.Equal(t, "C", sections[1].Content)
}

func TestRemoveSectionUnparsableURLDoesNotBlock(t *testing.T) {
	c, posts, mediaGw := newTestCoordinator()

	post := &model.Post{
		ID:       "p1",
		Title:    "T",
		Sections: []model.Section{{Content: "A", ImgURL: "garbage"}, {Content: "B"}},
	}
	d := draft.FromPost(post)

	report, err := c.RemoveSection(context.Background(), d, 0)
	require.NoError(t, err)

	// No identifier could be derived, so no remove was issued, but the
	// document update still went through.
	assert.Empty(t, mediaGw.removed)
	assert.Equal(t, []string{"garbage"}, report.Failed)
	require.Len(t, posts.updateCalls, 1)
}

func TestRemoveSectionOnUnpublishedDraft(t *testing.T) {
	c, posts, mediaGw := newTestCoordinator()

	d := draft.New()
	d.SetTitle("T")
	d.AddSection()
	d.UpdateContent(0, "A")

	report, err := c.RemoveSection(context.Background(), d, 0)
	require.NoError(t, err)

	assert.Empty(t, d.Sections)
	assert.Empty(t, posts.log.events)
	assert.Empty(t, mediaGw.removed)
	assert.Empty(t, report.Warnings())
}

func TestDeleteDocumentFirstThenImages(t *testing.T) {
	c, posts, mediaGw := newTestCoordinator()

	post := &model.Post{
		ID:    "p1",
		Title: "T",
		Sections: []model.Section{
			{Content: "A", ImgURL: "https://cdn.example.com/post-images/i1.png"},
			{Content: "B", ImgURL: "https://cdn.example.com/post-images/i2.png"},
		},
	}

	report, err := c.Delete(context.Background(), post)
	require.NoError(t, err)

	assert.Equal(t, []model.DocumentID{"p1"}, posts.deleteCalls)
	assert.ElementsMatch(t, []string{"post-images/i1", "post-images/i2"}, mediaGw.removed)
	assert.ElementsMatch(t, []string{"post-images/i1", "post-images/i2"}, report.Deleted)

	// The document delete is the order-critical step.
	require.NotEmpty(t, posts.log.events)
	assert.Equal(t, "delete", posts.log.events[0])
}

func TestDeleteSucceedsWhenImagesAlreadyGone(t *testing.T) {
	c, _, mediaGw := newTestCoordinator()
	mediaGw.results = map[string]media.RemoveResult{
		"post-images/i1": media.RemoveNotFound,
		"post-images/i2": media.RemoveNotFound,
	}

	post := &model.Post{
		ID:    "p1",
		Title: "T",
		Sections: []model.Section{
			{Content: "A", ImgURL: "https://cdn.example.com/post-images/i1.png"},
			{Content: "B", ImgURL: "https://cdn.example.com/post-images/i2.png"},
		},
	}

	report, err := c.Delete(context.Background(), post)
	require.NoError(t, err, "delete is successful once the document is gone")
	assert.ElementsMatch(t, []string{"post-images/i1", "post-images/i2"}, report.NotFound)
	assert.Len(t, report.Warnings(), 2)
}

func TestDeleteDocumentFailureIsFatal(t *testing.T) {
	c, _, mediaGw := newTestCoordinator()

	posts := c.posts.(*mockPosts)
	posts.deleteErr = errors.New("403")

	post := &model.Post{
		ID:       "p1",
		Sections: []model.Section{{Content: "A", ImgURL: "https://cdn.example.com/post-images/i1.png"}},
	}

	_, err := c.Delete(context.Background(), post)

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)

	// No image is touched if the document could not be deleted.
	assert.Empty(t, mediaGw.removed)
}

func TestEditLoadsPostOnce(t *testing.T) {
	c, posts, _ := newTestCoordinator()
	posts.post = &model.Post{
		ID:       "p1",
		Title:    "T",
		Sections: []model.Section{{Content: "A", ImgURL: "https://cdn.example.com/post-images/a.png"}},
	}

	d, err := c.Edit(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, []string{"get"}, posts.log.events)
	assert.Equal(t, model.DocumentID("p1"), d.PostID)
	require.Len(t, d.Sections, 1)
	assert.Equal(t, "https://cdn.example.com/post-images/a.png", d.Sections[0].ImgURL)
}
