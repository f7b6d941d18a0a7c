package gcsuploader

import (
	"fmt"
	"path"
	"strings"
)

const gcsScheme = "gs://"

// IsGCSURI reports whether location points at Google Cloud Storage.
func IsGCSURI(location string) bool {
	return strings.HasPrefix(location, gcsScheme)
}

// ParseGCSURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, gcsScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// ExtractFilename returns the last path element of a GCS URI or local path.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func ExtractFilename(location string) string {
	if _, object, err := ParseGCSURI(location); err == nil {
		return path.Base(object)
	}
	return path.Base(location)
}
