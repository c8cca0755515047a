package httpapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/domain"
)

// Field is one ordinary multipart form field.
type Field struct {
	Name  string
	Value string
}

// Upload describes a multipart request carrying one file.
type Upload struct {
	Path      string
	FileField string
	File      domain.FileRef
	Fields    []Field
	Timeout   time.Duration
}

// SendUpload streams the file and fields as multipart/form-data and decodes
// a 2xx JSON body into out.
func (c *Client) SendUpload(ctx context.Context, up Upload, out any) error {
	op := http.MethodPost + " " + up.Path

	f, err := os.Open(up.File.Path)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, op, fmt.Errorf("open %s: %w", up.File.Path, err))
	}

	field := up.FileField
	if field == "" {
		field = "file"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer f.Close()
		pw.CloseWithError(writeMultipart(mw, field, up.File, f, up.Fields))
	}()

	header := http.Header{}
	header.Set("Content-Type", mw.FormDataContentType())

	timeout := up.Timeout
	if timeout <= 0 {
		timeout = c.uploadTimeout
	}
	err = c.do(ctx, http.MethodPost, up.Path, nil, pr, header, timeout, false, out)
	// Unblocks the writer goroutine when the request ended before the body
	// was fully consumed.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	return err
}

func writeMultipart(mw *multipart.Writer, field string, file domain.FileRef, content io.Reader, fields []Field) error {
	for _, fl := range fields {
		if err := mw.WriteField(fl.Name, fl.Value); err != nil {
			return fmt.Errorf("write field %s: %w", fl.Name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(field), escapeQuotes(file.FileName)))
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
