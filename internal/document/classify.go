// Package document classifies uploaded bills and stages them on local disk.
package document

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
)

// Classify maps a file name to its canonical document kind by extension.
func Classify(fileName string) (constants.DocumentKind, error) {
	ext := constants.NormalizeExt(filepath.Ext(fileName))
	kind := constants.MapExtToKind(ext)
	if kind == "" {
		return "", common.UnsupportedFileTypeError(ext)
	}
	return kind, nil
}

// KindForContentType maps a declared content type (parameters allowed) to a document kind.
func KindForContentType(contentType string) (constants.DocumentKind, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	kind, ok := constants.AllowedContentTypes[mediaType]
	return kind, ok
}

// MediaType strips parameters from a content type header value.
func MediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}
