package services

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes are inspected to detect a file type
const sniffLen = 3072

var errTooLarge = errors.New("file exceeds size limit")

// Upload is one file part of a request. Open is called lazily by the
// pipeline, and the returned reader is always closed.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// imageType resolves the MIME type of an upload and whether it is an image.
// The declared type is trusted unless it is missing or generic, in which
// case the leading bytes are sniffed.
func imageType(u Upload) (string, bool) {
	declared := ""
	if u.ContentType != "" {
		if mt, _, err := mime.ParseMediaType(u.ContentType); err == nil {
			declared = strings.ToLower(mt)
		}
	}
	if strings.HasPrefix(declared, "image/") {
		return declared, true
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared, false
	}

	head, err := readHead(u)
	if err != nil {
		return declared, false
	}
	detected := mimetype.Detect(head)
	mt := strings.SplitN(detected.String(), ";", 2)[0]
	return mt, strings.HasPrefix(mt, "image/")
}

func readHead(u Upload) ([]byte, error) {
	if u.Open == nil {
		return nil, errors.New("upload has no content")
	}
	rc, err := u.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, sniffLen))
}

// readUpload reads the whole file, refusing anything above maxBytes
func readUpload(u Upload, maxBytes int64) ([]byte, error) {
	if u.Open == nil {
		return nil, errors.New("upload has no content")
	}
	if maxBytes > 0 && u.Size > maxBytes {
		return nil, errTooLarge
	}
	rc, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer rc.Close()

	r := io.Reader(rc)
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errTooLarge
	}
	return data, nil
}
