// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum multipart upload size in bytes (50MB)
	MaxUploadSize = 50 << 20

	// MaxFilesPerUpload caps the number of files accepted in one request
	MaxFilesPerUpload = 200
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)
