package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// FileConstraints defines validation rules for one kind of upload
type FileConstraints struct {
	MediaType         string
	AllowedMimeTypes  map[string]bool
	AllowedExtensions map[string]bool
	MaxSize           int64
}

// DetectedFile is what content sniffing established about an upload.
type DetectedFile struct {
	MediaType string
	MimeType  string
	Ext       string
}

var (
	ImageConstraints = FileConstraints{
		MediaType: "image",
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/webp": true,
			"image/gif":  true,
		},
		AllowedExtensions: map[string]bool{
			".jpg":  true,
			".jpeg": true,
			".png":  true,
			".webp": true,
			".gif":  true,
		},
		MaxSize: 10 << 20, // 10MB
	}

	VideoConstraints = FileConstraints{
		MediaType: "video",
		AllowedMimeTypes: map[string]bool{
			"video/mp4":  true,
			"video/webm": true,
		},
		AllowedExtensions: map[string]bool{
			".mp4":  true,
			".m4v":  true,
			".webm": true,
		},
		MaxSize: 100 << 20, // 100MB
	}
)

// ValidateFile validates a file upload against one or more constraint sets
// If multiple constraints are provided, file must match at least one (OR logic)
func ValidateFile(header *multipart.FileHeader, constraints ...FileConstraints) (*DetectedFile, error) {
	if len(constraints) == 0 {
		return nil, fmt.Errorf("no file constraints provided")
	}

	// Read first 512 bytes for magic number detection
	detectedType, err := sniff(header)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))

	var lastErr error
	for _, constraint := range constraints {
		err := validateAgainstConstraint(header.Size, detectedType, ext, constraint)
		if err == nil {
			return &DetectedFile{MediaType: constraint.MediaType, MimeType: detectedType, Ext: ext}, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%s: %w", header.Filename, lastErr)
}

func sniff(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// http.DetectContentType reads max 512 bytes to determine MIME type
	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("%s: file is empty", header.Filename)
	}

	// Detected from content, so a renamed file or a forged Content-Type header is caught
	return http.DetectContentType(buffer[:n]), nil
}

func validateAgainstConstraint(size int64, detectedType, ext string, constraints FileConstraints) error {
	if !constraints.AllowedMimeTypes[detectedType] {
		return fmt.Errorf("invalid file type (detected: %s)", detectedType)
	}

	if !constraints.AllowedExtensions[ext] {
		return fmt.Errorf("invalid file extension: %s", ext)
	}

	if size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return fmt.Errorf("file too large: maximum size is %d MB", maxMB)
	}

	return nil
}
