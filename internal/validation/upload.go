package validation

import (
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"tantalus-boxing/internal/constants"
)

// FileInput describes an uploaded file without tying the schema to a
// particular transport.
type FileInput struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type MediaInput struct {
	Title       string    `form:"title" validate:"required,min=2,max=100"`
	Description string    `form:"description" validate:"max=500"`
	File        FileInput `form:"-" validate:"-"`
	// MimeType is the sniffed content type, which must agree with the allow-list.
	MimeType string `form:"-" validate:"-"`
}

// Media validates the descriptive fields and the file together. The size
// limit is checked before the file is opened.
func (v *Validator) Media(form Form, file *FileInput) (MediaInput, error) {
	d := newDecoder(form)
	in := MediaInput{
		Title:       d.text("title"),
		Description: d.text("description"),
	}
	if file == nil {
		d.fail("file", "is required")
	} else {
		in.File = *file
		mimeType, msg := checkFile(*file)
		if msg != "" {
			d.fail("file", msg)
		}
		in.MimeType = mimeType
	}
	return check(v, d, in)
}

func checkFile(file FileInput) (string, string) {
	if file.Size <= 0 {
		return "", "file is empty"
	}
	if file.Size > constants.MaxUploadBytes {
		return "", fmt.Sprintf("file exceeds the %dMB limit", constants.MaxUploadBytes>>20)
	}
	declared := strings.TrimSpace(strings.SplitN(file.ContentType, ";", 2)[0])
	if !mimetype.EqualsAny(declared, constants.AllowedMediaTypes...) {
		return "", "file type is not allowed"
	}
	if file.Open == nil {
		return "", "file could not be read"
	}

	rc, err := file.Open()
	if err != nil {
		return "", "file could not be read"
	}
	defer rc.Close()

	detected, err := mimetype.DetectReader(rc)
	if err != nil {
		return "", "file could not be read"
	}
	if !mimetype.EqualsAny(detected.String(), constants.AllowedMediaTypes...) {
		return "", "file content does not match an allowed type"
	}
	return detected.String(), ""
}
