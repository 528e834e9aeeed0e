package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Request describes one call against the API. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Body is either a JSON-serialisable value or a *Multipart form. Nil sends no body.
	Body any
	// Timeout overrides the client default when positive.
	Timeout time.Duration
	// Anonymous requests carry no bearer token and are never refreshed.
	Anonymous bool
}

// Multipart is a multipart/form-data body. It is encoded anew for every attempt,
// so a request can be retried after a token refresh.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

// File is one file part of a Multipart body.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// encodeBody returns the encoded body and its content type.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return b.encode()
	case Multipart:
		return b.encode()
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling json body: %w", err)
		}
		return bytes.NewReader(encoded), "application/json", nil
	}
}

func (m Multipart) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range m.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("writing form field %q: %w", name, err)
		}
	}

	for _, f := range m.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.Filename)))
		contentType := f.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(f.Data)
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %q: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("writing form file %q: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
