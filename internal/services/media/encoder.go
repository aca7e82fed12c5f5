// Package media turns uploaded photos and voice recordings into the base64
// payloads AI providers accept.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Kind is the modality of a media payload.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

const (
	// MaxImageDimension bounds the longer edge of an encoded photo.
	MaxImageDimension = 1024
	// JPEGQuality is used when re-encoding photos.
	JPEGQuality = 80
)

// Encoded is a base64 media payload ready to be sent to a provider.
type Encoded struct {
	Kind         Kind
	MIMEType     string
	Data         string
	OriginalSize int
	Size         int
	Width        int
	Height       int
}

// DataURL renders the payload as a data URL.
func (e *Encoded) DataURL() string {
	return CreateDataURL(e.Data, e.MIMEType)
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, apperrors.NewValidationError("failed to read upload", "UPLOAD_READ_FAILED", "")
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("upload exceeds %d bytes", maxBytes), "UPLOAD_TOO_LARGE", "Send a smaller file.")
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("upload is empty", "UPLOAD_EMPTY", "")
	}
	return data, nil
}

// EncodeImage sniffs, downscales and re-encodes a photo as JPEG. Formats the
// decoder does not know are passed through unchanged with their sniffed type.
func EncodeImage(r io.Reader, maxBytes int64) (*Encoded, error) {
	data, err := readLimited(r, maxBytes)
	if err != nil {
		return nil, err
	}

	mimeType := mimetype.Detect(data).String()
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("expected an image, got %s", mimeType), "UNSUPPORTED_MEDIA_TYPE", "Upload a JPEG, PNG, GIF or WebP photo.")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("Image not decodable, sending original bytes", "mime_type", mimeType, "error", err)
		return &Encoded{
			Kind:         KindImage,
			MIMEType:     mimeType,
			Data:         base64.StdEncoding.EncodeToString(data),
			OriginalSize: len(data),
			Size:         len(data),
		}, nil
	}

	out, w, h, err := compress(img)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode image", "IMAGE_ENCODE_FAILED", err)
	}

	return &Encoded{
		Kind:         KindImage,
		MIMEType:     "image/jpeg",
		Data:         base64.StdEncoding.EncodeToString(out),
		OriginalSize: len(data),
		Size:         len(out),
		Width:        w,
		Height:       h,
	}, nil
}

// compress flattens img onto white, scales it to fit MaxImageDimension and
// encodes it as JPEG.
func compress(img image.Image) ([]byte, int, int, error) {
	w, h := fitWithin(img.Bounds().Dx(), img.Bounds().Dy(), MaxImageDimension)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), w, h, nil
}

// fitWithin scales w x h down so the longer edge is at most limit.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// audioTypes maps sniffed container types to the type sent to providers.
var audioTypes = map[string]string{
	"video/webm": "audio/webm",
	"video/mp4":  "audio/mp4",
}

// EncodeAudio sniffs a voice recording and base64 encodes it.
func EncodeAudio(r io.Reader, maxBytes int64) (*Encoded, error) {
	data, err := readLimited(r, maxBytes)
	if err != nil {
		return nil, err
	}

	mimeType := mimetype.Detect(data).String()
	if mapped, ok := audioTypes[mimeType]; ok {
		mimeType = mapped
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("expected an audio recording, got %s", mimeType), "UNSUPPORTED_MEDIA_TYPE", "Upload an MP3, WAV, OGG, M4A or WebM recording.")
	}

	return &Encoded{
		Kind:         KindAudio,
		MIMEType:     mimeType,
		Data:         base64.StdEncoding.EncodeToString(data),
		OriginalSize: len(data),
		Size:         len(data),
	}, nil
}

// Encode dispatches on kind.
func Encode(kind Kind, r io.Reader, maxBytes int64) (*Encoded, error) {
	switch kind {
	case KindImage:
		return EncodeImage(r, maxBytes)
	case KindAudio:
		return EncodeAudio(r, maxBytes)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported media kind %q", kind), "UNSUPPORTED_MEDIA_KIND", "")
	}
}
