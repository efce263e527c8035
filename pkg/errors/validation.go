package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// coordinatePartRegex matches a single Maven coordinate segment
// (groupId, artifactId, version or classifier).
var coordinatePartRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._+\-]*$`)

// ValidateCoordinatePart validates one segment of a coordinate.
// It rejects anything that could escape the repository layout once the
// segment is embedded in a URL or a file path:
//   - No empty segments
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - No colons (the coordinate separator)
//   - Maximum length of 256 characters
//
// The coordinate string is only used to build the error message.
func ValidateCoordinatePart(coordinate, field, value string) error {
	if value == "" {
		return &MalformedCoordinateError{Coordinate: coordinate, Reason: field + " cannot be empty"}
	}
	if len(value) > 256 {
		return &MalformedCoordinateError{Coordinate: coordinate, Reason: field + " too long (max 256 characters)"}
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return &MalformedCoordinateError{Coordinate: coordinate, Reason: field + " contains control characters"}
		}
	}
	if strings.Contains(value, "..") {
		return &MalformedCoordinateError{Coordinate: coordinate, Reason: field + " contains path traversal sequence"}
	}
	if !coordinatePartRegex.MatchString(value) {
		return &MalformedCoordinateError{Coordinate: coordinate, Reason: field + " contains invalid characters: " + value}
	}
	return nil
}

// ValidateManifestFilename validates a manifest filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateManifestFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidManifest, "manifest filename cannot be empty")
	}
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidManifest, "manifest filename cannot contain path separators")
	}
	return nil
}

// ValidatePath validates a file path within a repository for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateRepositoryURL validates a repository base URL.
// Repositories may be remote (http, https) or local (file).
func ValidateRepositoryURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "repository URL cannot be empty")
	}
	for _, scheme := range []string{"http://", "https://", "file://"} {
		if strings.HasPrefix(rawURL, scheme) {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "repository URL must use http, https or file scheme: %q", rawURL)
}
