package draft

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"

	"github.com/hndao/inkpost/internal/util"
)

// imageLine matches a line that is nothing but a markdown image. Only
// already-hosted URLs make sense here; local paths are attached explicitly.
var imageLine = regexp.MustCompile(`^!\[[^\]]*\]\((\S+)\)$`)

// FromMarkdown builds a draft from a markdown document. An optional %%% TOML
// front-matter block supplies the title; standalone image lines split the
// body into sections, each owning the image that opened it.
func FromMarkdown(data []byte) (*Draft, error) {
	d := New()

	// Front-matter offsets are computed against the normalized form, so slice
	// the same form here.
	data = bytes.TrimLeft(markdown.NormalizeNewlines(data), "\n \t\r")

	body := data
	if fm, err := util.GetFrontMatter(data); err == nil {
		d.Title = fm.Title
		body = data[fm.Consumed:]
	}

	for _, line := range strings.Split(string(body), "\n") {
		trimmed := strings.TrimSpace(line)

		if m := imageLine.FindStringSubmatch(trimmed); m != nil {
			i := d.AddSection()
			d.Sections[i].ImgURL = m[1]
			continue
		}

		if len(d.Sections) == 0 {
			if trimmed == "" {
				continue
			}
			d.AddSection()
		}

		i := len(d.Sections) - 1
		if d.Sections[i].Content != "" {
			d.Sections[i].Content += "\n"
		}
		d.Sections[i].Content += line
	}

	for i := range d.Sections {
		d.Sections[i].Content = strings.TrimSpace(d.Sections[i].Content)
	}

	if len(d.Sections) == 0 {
		return nil, fmt.Errorf("markdown document has no content")
	}

	return d, nil
}
