package service

import (
	"campus_api/internal/common"
	"campus_api/internal/models"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

const defaultMaxImageBytes = 5 << 20

// rasterTypes are the only image types accepted. Vector formats such as SVG can
// carry script and are served back on a public route, so they are refused.
var rasterTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
	"image/webp": {},
}

// decodeImage accepts plain base64 or a data URI ("data:image/png;base64,...").
// The stored type is always the one sniffed from the bytes; a declared type,
// explicit or from the data URI, must agree with it.
func decodeImage(encoded, mimeType string, maxBytes int) (models.Image, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}

	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return models.Image{}, common.NewValidationError("Image is required")
	}

	if strings.HasPrefix(encoded, "data:") {
		comma := strings.Index(encoded, ",")
		if comma < 0 {
			return models.Image{}, common.NewValidationError("Malformed image data URI")
		}
		header := strings.TrimPrefix(encoded[:comma], "data:")
		if !strings.HasSuffix(header, ";base64") {
			return models.Image{}, common.NewValidationError("Image data URI must be base64 encoded")
		}
		if strings.TrimSpace(mimeType) == "" {
			mimeType = strings.TrimSuffix(header, ";base64")
		}
		encoded = encoded[comma+1:]
	}

	if base64.StdEncoding.DecodedLen(len(encoded)) > maxBytes+2 {
		return models.Image{}, common.NewValidationError(fmt.Sprintf("Image exceeds %d bytes", maxBytes))
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return models.Image{}, common.NewValidationError("Image is not valid base64")
	}
	if len(data) == 0 {
		return models.Image{}, common.NewValidationError("Image is required")
	}
	if len(data) > maxBytes {
		return models.Image{}, common.NewValidationError(fmt.Sprintf("Image exceeds %d bytes", maxBytes))
	}

	detected := http.DetectContentType(data)
	if _, ok := rasterTypes[detected]; !ok {
		return models.Image{}, common.NewValidationError("Unsupported image type")
	}

	if declared := strings.TrimSpace(mimeType); declared != "" {
		mediaType, _, err := mime.ParseMediaType(declared)
		if err != nil || mediaType != detected {
			return models.Image{}, common.NewValidationError("Image type does not match its content")
		}
	}

	return models.Image{Data: data, MimeType: detected}, nil
}
