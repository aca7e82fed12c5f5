package media

import (
	"encoding/base64"
	"regexp"

	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

var dataURLPattern = regexp.MustCompile(`^data:([^,]*?);base64,([\s\S]*)$`)

// CreateDataURL builds a base64 data URL for data with the given MIME type.
func CreateDataURL(data, mimeType string) string {
	return "data:" + mimeType + ";base64," + data
}

// ParseDataURL splits a base64 data URL into MIME type and payload.
func ParseDataURL(url string) (mimeType, data string, err error) {
	m := dataURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", apperrors.NewValidationError("malformed data URL", "INVALID_DATA_URL",
			"Send media as data:<mime>;base64,<payload>.")
	}
	return m[1], m[2], nil
}

// MIMEFromDataURL returns the MIME type of a data URL, or "" when url is not one.
func MIMEFromDataURL(url string) string {
	mimeType, _, err := ParseDataURL(url)
	if err != nil {
		return ""
	}
	return mimeType
}

// DecodeDataURL returns the MIME type and raw bytes of a base64 data URL.
func DecodeDataURL(url string) (string, []byte, error) {
	mimeType, data, err := ParseDataURL(url)
	if err != nil {
		return "", nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, apperrors.NewValidationError("data URL payload is not valid base64", "INVALID_DATA_URL", "")
	}
	return mimeType, raw, nil
}

// FromDataURL wraps an already base64 encoded data URL as a payload of kind.
// Size is estimated from the base64 length.
func FromDataURL(kind Kind, url string) (*Encoded, error) {
	mimeType, data, err := ParseDataURL(url)
	if err != nil {
		return nil, err
	}
	size := len(data) / 4 * 3
	return &Encoded{
		Kind:         kind,
		MIMEType:     mimeType,
		Data:         data,
		OriginalSize: size,
		Size:         size,
	}, nil
}
