// Package datauri decodes base64 "data:" URIs into in-memory uploaded files.
package datauri

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// PhotoFieldName is the form field name attached to extracted photos.
const PhotoFieldName = "photo"

// ErrMalformedDataURI is returned when the input is not a base64 data URI.
var ErrMalformedDataURI = errors.New("datauri: malformed data uri")

var dataURIPattern = regexp.MustCompile(`^data:(\w+/(\w+));base64,(.*)$`)

// UploadedFile is an in-memory upload extracted from a data URI.
type UploadedFile struct {
	FieldName   string
	Name        string
	ContentType string
	Charset     string
	Size        int64

	data   []byte
	reader *bytes.Reader
}

// NewUploadedFile wraps data as an uploaded file.
func NewUploadedFile(fieldName, name, contentType string, data []byte) *UploadedFile {
	return &UploadedFile{
		FieldName:   fieldName,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		data:        data,
		reader:      bytes.NewReader(data),
	}
}

// Read implements io.Reader over the decoded bytes.
func (f *UploadedFile) Read(p []byte) (int, error) {
	return f.reader.Read(p)
}

// Seek implements io.Seeker over the decoded bytes.
func (f *UploadedFile) Seek(offset int64, whence int) (int64, error) {
	return f.reader.Seek(offset, whence)
}

// Bytes returns the decoded payload. The slice must not be modified.
func (f *UploadedFile) Bytes() []byte {
	return f.data
}

// Detect sniffs the payload and returns its actual MIME type, ignoring the declared one.
func (f *UploadedFile) Detect() string {
	return mimetype.Detect(f.data).String()
}

// Matches reports whether the sniffed MIME type is one of allowed.
func (f *UploadedFile) Matches(allowed ...string) bool {
	detected := mimetype.Detect(f.data)
	for _, candidate := range allowed {
		if detected.Is(candidate) {
			return true
		}
	}
	return false
}

// ExtractPhoto parses a data:<mime>;base64,<payload> string into an UploadedFile
// named after the MIME subtype.
func ExtractPhoto(uri string) (*UploadedFile, error) {
	match := dataURIPattern.FindStringSubmatch(strings.TrimSpace(uri))
	if match == nil {
		return nil, ErrMalformedDataURI
	}

	contentType, subtype, payload := match[1], match[2], match[3]

	data, err := decodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("datauri: decode payload: %w", err)
	}

	return NewUploadedFile(PhotoFieldName, subtype, contentType, data), nil
}

func decodePayload(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

var _ io.ReadSeeker = (*UploadedFile)(nil)
