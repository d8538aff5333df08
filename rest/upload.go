package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// UploadField is the multipart field every file is sent under.
const UploadField = "files"

// ErrNoFiles is returned by Upload when there is nothing to send.
var ErrNoFiles = errors.New("rest: no files to upload")

// File is one part of a multipart upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Upload posts files as multipart/form-data, one part per file under
// UploadField, and decodes the JSON response into out.
func (c *Client) Upload(ctx context.Context, name, route string, files []File, out any, params ...string) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	payload, contentType, err := encodeMultipart(files)
	if err != nil {
		return fmt.Errorf("rest: encode %s: %w", name, err)
	}
	return c.Do(ctx, &Request{
		Name:        name,
		Method:      http.MethodPost,
		Route:       route,
		Params:      params,
		payload:     payload,
		contentType: contentType,
	}, out)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(files []File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			UploadField, quoteEscaper.Replace(f.Name)))
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
