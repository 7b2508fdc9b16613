package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/kozaktomas/face-studio/internal/constants"
)

// readUploadedImages parses a multipart form and returns the raw bytes of
// every file in the given field. Empty files are rejected.
func readUploadedImages(r *http.Request, field string) ([][]byte, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, fmt.Errorf("no files provided in field %q", field)
	}
	if len(files) > constants.MaxFilesPerUpload {
		return nil, fmt.Errorf("too many files: %d (max %d)", len(files), constants.MaxFilesPerUpload)
	}

	images := make([][]byte, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open file %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", header.Filename, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("file %s is empty", header.Filename)
		}
		images = append(images, data)
	}
	return images, nil
}
