package constants

import "strings"

// DocumentKind is the canonical type of an uploaded bill document.
type DocumentKind string

const (
	PDF  DocumentKind = "pdf"
	JPEG DocumentKind = "jpeg"
	PNG  DocumentKind = "png"
	TIFF DocumentKind = "tiff"
)

// IsImage reports whether the kind is OCR'd directly.
func (k DocumentKind) IsImage() bool {
	return k == JPEG || k == PNG || k == TIFF
}

// AllowedExtensions maps lowercased extensions (sans '.') to their document kind.
var AllowedExtensions = map[string]DocumentKind{
	"pdf":  PDF,
	"jpg":  JPEG,
	"jpeg": JPEG,
	"png":  PNG,
	"tif":  TIFF,
	"tiff": TIFF,
}

// AllowedContentTypes are the upload content types accepted before any processing.
var AllowedContentTypes = map[string]DocumentKind{
	"application/pdf": PDF,
	"image/jpeg":      JPEG,
	"image/png":       PNG,
	"image/tiff":      TIFF,
}

// ContentTypeList returns the accepted content types in a stable order, for error details.
func ContentTypeList() []string {
	return []string{"application/pdf", "image/jpeg", "image/png", "image/tiff"}
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToKind returns the document kind for an extension, or "" when unsupported.
func MapExtToKind(ext string) DocumentKind {
	return AllowedExtensions[NormalizeExt(ext)]
}

// ContentTypeFor returns the canonical MIME type of a document kind.
func ContentTypeFor(kind DocumentKind) string {
	for ct, k := range AllowedContentTypes {
		if k == kind {
			return ct
		}
	}
	return "application/octet-stream"
}
