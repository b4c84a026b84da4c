// Package storageid derives object-storage identifiers from hosted image URLs.
//
// The object store addresses images by a "folder/name" public id, but the
// document store only ever holds the hosted URL. Deletion therefore depends on
// reconstructing the identifier from the URL alone, so this codec must stay in
// lock-step with the naming scheme the media gateways use on upload.
package storageid

import "strings"

type Identifier struct {
	Folder string
	Name   string
}

// PublicID serializes the identifier in the form the object-storage delete
// endpoint expects.
func (i Identifier) PublicID() string {
	return i.Folder + "/" + i.Name
}

// FromURL extracts the identifier from a hosted URL of the form
// .../<folder>/<name>[.<ext>]. The name is the last path segment with
// everything from the first dot stripped; the folder is the segment before it.
// URLs with fewer than two segments, or with an empty folder or name, fail.
func FromURL(url string) (Identifier, bool) {
	parts := strings.Split(url, "/")
	if len(parts) < 2 {
		return Identifier{}, false
	}

	name, _, _ := strings.Cut(parts[len(parts)-1], ".")
	folder := parts[len(parts)-2]
	if name == "" || folder == "" {
		return Identifier{}, false
	}

	return Identifier{Folder: folder, Name: name}, true
}
