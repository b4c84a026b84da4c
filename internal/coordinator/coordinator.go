// Package coordinator keeps a post's section list and its backing images
// consistent across the two independently-failing stores. No transaction
// spans the document API and the object store, so every operation here is a
// fixed sequence of calls with an explicit failure policy: uploads are fatal
// to their operation, image deletes never are.
package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/hndao/inkpost/internal/document"
	"github.com/hndao/inkpost/internal/draft"
	"github.com/hndao/inkpost/internal/media"
	"github.com/hndao/inkpost/internal/model"
	"github.com/hndao/inkpost/internal/storageid"
)

var coordLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	coordLogger = l
}

var validate = validator.New()

// PostGateway is the document-store side of the coordinator. Satisfied by
// *document.Client.
type PostGateway interface {
	Create(ctx context.Context, input document.CreatePost) (*model.Post, error)
	GetByID(ctx context.Context, id model.DocumentID) (*model.Post, error)
	Update(ctx context.Context, id model.DocumentID, input document.UpdatePost) (*model.Post, error)
	Delete(ctx context.Context, id model.DocumentID) error
}

type Coordinator struct {
	posts  PostGateway
	media  media.Gateway
	folder string
}

// New wires the coordinator to its two gateways. folder is the single
// object-storage folder all post images live under.
func New(posts PostGateway, mediaGw media.Gateway, folder string) *Coordinator {
	return &Coordinator{
		posts:  posts,
		media:  mediaGw,
		folder: folder,
	}
}

// CleanupReport collects the per-image outcomes of best-effort deletes.
// Failed and not-found entries are warnings, never fatal.
type CleanupReport struct {
	mu       sync.Mutex
	Deleted  []string
	NotFound []string
	Failed   []string
}

func (r *CleanupReport) record(publicID string, res media.RemoveResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch res {
	case media.RemoveDeleted:
		r.Deleted = append(r.Deleted, publicID)
	case media.RemoveNotFound:
		r.NotFound = append(r.NotFound, publicID)
	default:
		r.Failed = append(r.Failed, publicID)
	}
}

// Warnings renders the non-clean outcomes as user-facing messages.
func (r *CleanupReport) Warnings() []string {
	var warnings []string
	for _, id := range r.NotFound {
		warnings = append(warnings, fmt.Sprintf("image %s was already gone", id))
	}
	for _, id := range r.Failed {
		warnings = append(warnings, fmt.Sprintf("image %s could not be deleted", id))
	}
	return warnings
}

type submissionSection struct {
	Content string `validate:"required"`
}

type submission struct {
	Title    string              `validate:"required"`
	Sections []submissionSection `validate:"required,min=1,dive"`
}

// validateDraft enforces the pre-network invariants: non-empty title, at
// least one section, no empty section content. No partial post is ever
// submitted.
func validateDraft(d *draft.Draft) error {
	sub := submission{Title: d.Title}
	for _, s := range d.Sections {
		sub.Sections = append(sub.Sections, submissionSection{Content: s.Content})
	}

	if err := validate.Struct(sub); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Create publishes a brand-new post: validate, materialize every staged file
// into a hosted URL, then a single document create with the fully resolved
// section list. If any upload fails the document store is never called.
func (c *Coordinator) Create(ctx context.Context, d *draft.Draft) (*model.Post, *CleanupReport, error) {
	if err := validateDraft(d); err != nil {
		return nil, nil, err
	}
	if err := d.BeginSubmit(); err != nil {
		return nil, nil, err
	}

	sections, err := c.resolveSections(ctx, d)
	if err != nil {
		d.EndSubmit(false)
		return nil, nil, err
	}

	post, err := c.posts.Create(ctx, document.CreatePost{Title: d.Title, Sections: sections})
	if err != nil {
		d.EndSubmit(false)
		return nil, nil, &DocumentError{Op: "create", Err: err}
	}

	report := c.removeAll(ctx, d.SupersededURLs())

	d.ResetFrom(post)
	coordLogger.Info().Str("post_id", string(post.ID)).Str("title", post.Title).Msg("Post created")
	return post, report, nil
}

// Edit loads the post once and opens an authoring session over it. All
// section edits are staged locally until Submit; only RemoveSection commits
// eagerly.
func (c *Coordinator) Edit(ctx context.Context, id model.DocumentID) (*draft.Draft, error) {
	post, err := c.posts.GetByID(ctx, id)
	if err != nil {
		return nil, &DocumentError{Op: "get", Err: err}
	}
	return draft.FromPost(post), nil
}

// Submit commits the staged edits of an existing post: validate, resolve
// pending uploads (same all-or-nothing rule as Create), then one document
// update carrying the complete replacement section list. After a confirmed
// update, images superseded by new uploads are deleted best-effort.
func (c *Coordinator) Submit(ctx context.Context, d *draft.Draft) (*model.Post, *CleanupReport, error) {
	if d.PostID == "" {
		return nil, nil, fmt.Errorf("draft is not bound to a post; use Create")
	}
	if err := validateDraft(d); err != nil {
		return nil, nil, err
	}
	if err := d.BeginSubmit(); err != nil {
		return nil, nil, err
	}

	sections, err := c.resolveSections(ctx, d)
	if err != nil {
		d.EndSubmit(false)
		return nil, nil, err
	}

	superseded := d.SupersededURLs()

	post, err := c.posts.Update(ctx, d.PostID, document.UpdatePost{Title: d.Title, Sections: sections})
	if err != nil {
		d.EndSubmit(false)
		return nil, nil, &DocumentError{Op: "update", Err: err}
	}

	report := c.removeAll(ctx, superseded)

	d.ResetFrom(post)
	coordLogger.Info().Str("post_id", string(post.ID)).Msg("Post updated")
	return post, report, nil
}

// RemoveSection is the eager sub-protocol: image deletion is irreversible,
// so a removed section is committed immediately instead of waiting for the
// next full submit. The section's committed image (if any) is deleted, then
// the document is updated with the reduced list so it never references a
// just-deleted image — even if the user abandons the rest of the edit.
func (c *Coordinator) RemoveSection(ctx context.Context, d *draft.Draft, index int) (*CleanupReport, error) {
	removed := d.RemoveSection(index)

	if d.PostID == "" {
		// Unpublished draft: nothing is committed anywhere yet.
		return &CleanupReport{}, nil
	}

	var urls []string
	if url := removed.CommittedURL(); url != "" {
		urls = append(urls, url)
	}
	report := c.removeAll(ctx, urls)

	_, err := c.posts.Update(ctx, d.PostID, document.UpdatePost{
		Title:    d.Title,
		Sections: committedSections(d),
	})
	if err != nil {
		return report, &DocumentError{Op: "update", Err: err}
	}

	coordLogger.Info().
		Str("post_id", string(d.PostID)).
		Int("index", index).
		Msg("Section removed and committed")
	return report, nil
}

// Delete removes a whole post. The document delete comes first and is the
// authoritative step: a document the user can still see but whose images are
// gone is worse than a leaked image object. Image cleanup afterwards is
// concurrent and best-effort; the delete is reported successful once the
// document is gone.
func (c *Coordinator) Delete(ctx context.Context, post *model.Post) (*CleanupReport, error) {
	if err := c.posts.Delete(ctx, post.ID); err != nil {
		return nil, &DocumentError{Op: "delete", Err: err}
	}

	report := c.removeAll(ctx, post.ImageURLs())
	coordLogger.Info().Str("post_id", string(post.ID)).Msg("Post deleted")
	return report, nil
}

// resolveSections materializes every staged file into a hosted URL. Uploads
// are independent per section and run concurrently; the coordinator waits
// for the whole batch and fails the operation if any of them failed.
// Successful siblings are not rolled back.
func (c *Coordinator) resolveSections(ctx context.Context, d *draft.Draft) ([]model.Section, error) {
	sections := make([]model.Section, len(d.Sections))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var uploadErr *UploadError

	for i := range d.Sections {
		s := &d.Sections[i]
		sections[i] = model.Section{Content: s.Content, ImgURL: s.ImgURL}

		if s.PendingFile == nil {
			continue
		}

		wg.Add(1)
		go func(i int, file *draft.LocalFile) {
			defer wg.Done()

			url, err := c.media.Upload(ctx, bytes.NewReader(file.Data), file.Name, c.folder)
			if err != nil {
				mu.Lock()
				if uploadErr == nil {
					uploadErr = &UploadError{Section: i, Err: err}
				}
				mu.Unlock()
				return
			}
			sections[i].ImgURL = url
		}(i, s.PendingFile)
	}

	wg.Wait()

	if uploadErr != nil {
		return nil, uploadErr
	}
	return sections, nil
}

// committedSections builds the full replacement list from what the document
// store currently references: staged-but-unuploaded files keep their old
// hosted URL (or none) until the next full submit.
func committedSections(d *draft.Draft) []model.Section {
	sections := make([]model.Section, len(d.Sections))
	for i := range d.Sections {
		sections[i] = model.Section{
			Content: d.Sections[i].Content,
			ImgURL:  d.Sections[i].CommittedURL(),
		}
	}
	return sections
}

// removeAll issues best-effort image deletes, concurrently. Unparsable URLs
// are logged and recorded as failures without blocking anything else.
func (c *Coordinator) removeAll(ctx context.Context, urls []string) *CleanupReport {
	report := &CleanupReport{}

	var wg sync.WaitGroup
	for _, url := range urls {
		id, ok := storageid.FromURL(url)
		if !ok {
			coordLogger.Warn().Str("url", url).Msg("Cannot derive storage identifier from image URL")
			report.record(url, media.RemoveFailed)
			continue
		}

		wg.Add(1)
		go func(id storageid.Identifier) {
			defer wg.Done()

			res, err := c.media.Remove(ctx, id)
			if err != nil {
				coordLogger.Warn().Err(err).Str("public_id", id.PublicID()).Msg("Image delete failed")
			}
			report.record(id.PublicID(), res)
		}(id)
	}
	wg.Wait()

	return report
}
