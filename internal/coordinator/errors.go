package coordinator

import "fmt"

// ValidationError rejects a submission before any network call is made.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid post: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UploadError aborts the enclosing create or edit submit. Uploads that
// already succeeded in the same batch are not rolled back; that leak is
// accepted and the coordinator reports only the failure.
type UploadError struct {
	Section int
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for section %d: %v", e.Section, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DocumentError is a failed document-store call. The draft is preserved so
// the user can retry without re-entering data.
type DocumentError struct {
	Op  string
	Err error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s failed: %v", e.Op, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }
