package zoho

import (
	"io"
	"mime/multipart"
)

// multipartUpload wraps a multipart.Writer so callers can io.Copy file
// content straight into the "content" form field of the body written to
// dst, generalizing the teacher's InitiateUpload multipart body
// construction.
type multipartUpload struct {
	writer    *multipart.Writer
	fieldPart io.Writer
}

func newMultipartUpload(dst io.Writer, filename, parentID string) *multipartUpload {
	w := multipart.NewWriter(dst)
	_ = w.WriteField("parent_id", parentID)
	_ = w.WriteField("override-name-exist", "true")
	part, _ := w.CreateFormFile("content", filename)
	return &multipartUpload{writer: w, fieldPart: part}
}

func (m *multipartUpload) Write(p []byte) (int, error) {
	return m.fieldPart.Write(p)
}

// Close finalizes the multipart body and returns its Content-Type header
// value.
func (m *multipartUpload) Close() (string, error) {
	contentType := m.writer.FormDataContentType()
	if err := m.writer.Close(); err != nil {
		return "", err
	}
	return contentType, nil
}
