package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"example.com/peersgate/internal/common"
)

const (
	defaultUploadName = "upload.dat"

	// multipartSlack covers part headers and boundaries around the file.
	multipartSlack = 1 << 20
)

// readUpload returns the peers file carried by r and a display name.  The
// body is either the raw file or a multipart form whose first file part
// holds it.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		name := uploadName(r.URL.Query().Get("name"))
		data, err := common.ReadLimited(r.Body, s.maxUpload)
		if err != nil {
			return nil, "", fmt.Errorf("read body: %w", err)
		}
		if len(data) == 0 {
			return nil, "", errors.New("empty body")
		}
		return data, name, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartSlack)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("parse multipart: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, "", errors.New("no file uploaded")
		}
		if err != nil {
			return nil, "", fmt.Errorf("parse multipart: %w", tooLarge(err))
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}
		data, err := common.ReadLimited(part, s.maxUpload)
		part.Close()
		if err != nil {
			return nil, "", fmt.Errorf("read upload %s: %w", part.FileName(), tooLarge(err))
		}
		return data, uploadName(part.FileName()), nil
	}
}

func tooLarge(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%v: %w", err, common.ErrInputTooLarge)
	}
	return err
}

func uploadName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return defaultUploadName
	}
	return name
}
