package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

func TestDataURL_RoundTrip(t *testing.T) {
	tests := []struct {
		data     string
		mimeType string
	}{
		{"aGVsbG8=", "image/jpeg"},
		{"", "image/png"},
		{"UklGRg==", "audio/webm;codecs=opus"},
		{"AAAA", "application/octet-stream"},
	}

	for _, tt := range tests {
		url := CreateDataURL(tt.data, tt.mimeType)
		if got := MIMEFromDataURL(url); got != tt.mimeType {
			t.Errorf("MIMEFromDataURL(%q) = %q, want %q", url, got, tt.mimeType)
		}
		mimeType, data, err := ParseDataURL(url)
		if err != nil {
			t.Fatalf("ParseDataURL(%q) failed: %v", url, err)
		}
		if mimeType != tt.mimeType || data != tt.data {
			t.Errorf("ParseDataURL(%q) = %q, %q", url, mimeType, data)
		}
	}
}

func TestParseDataURL_Invalid(t *testing.T) {
	for _, url := range []string{"", "https://example.com/a.jpg", "data:image/png,rawbytes", "image/png;base64,AAAA"} {
		if _, _, err := ParseDataURL(url); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("ParseDataURL(%q) expected validation error, got %v", url, err)
		}
		if got := MIMEFromDataURL(url); got != "" {
			t.Errorf("MIMEFromDataURL(%q) = %q, want empty", url, got)
		}
	}
}

func TestDecodeDataURL(t *testing.T) {
	mimeType, raw, err := DecodeDataURL(CreateDataURL(base64.StdEncoding.EncodeToString([]byte("meal")), "text/plain"))
	if err != nil {
		t.Fatalf("DecodeDataURL failed: %v", err)
	}
	if mimeType != "text/plain" || string(raw) != "meal" {
		t.Errorf("unexpected decode result %q %q", mimeType, raw)
	}

	if _, _, err := DecodeDataURL("data:image/png;base64,!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{800, 600, 800, 600},
		{2048, 1024, 1024, 512},
		{1000, 4000, 256, 1024},
		{1024, 1024, 1024, 1024},
		{5000, 1, 1024, 1},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, MaxImageDimension)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWithin(%d, %d) = %d, %d, want %d, %d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestEncodeImage_Downscales(t *testing.T) {
	src := pngBytes(t, 2000, 1000)

	enc, err := EncodeImage(bytes.NewReader(src), 8<<20)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}

	if enc.Kind != KindImage || enc.MIMEType != "image/jpeg" {
		t.Errorf("unexpected kind/type %s %s", enc.Kind, enc.MIMEType)
	}
	if enc.Width != 1024 || enc.Height != 512 {
		t.Errorf("expected 1024x512, got %dx%d", enc.Width, enc.Height)
	}
	if enc.OriginalSize != len(src) {
		t.Errorf("expected original size %d, got %d", len(src), enc.OriginalSize)
	}

	raw, err := base64.StdEncoding.DecodeString(enc.Data)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not a JPEG: %v", err)
	}
	if cfg.Width != 1024 || cfg.Height != 512 {
		t.Errorf("decoded JPEG is %dx%d", cfg.Width, cfg.Height)
	}
	if !strings.HasPrefix(enc.DataURL(), "data:image/jpeg;base64,") {
		t.Errorf("unexpected data URL prefix %q", enc.DataURL()[:30])
	}
}

func TestEncodeImage_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		max  int64
		code string
	}{
		{"not an image", []byte("two eggs and toast"), 1 << 20, "UNSUPPORTED_MEDIA_TYPE"},
		{"too large", pngBytes(t, 64, 64), 10, "UPLOAD_TOO_LARGE"},
		{"empty", nil, 1 << 20, "UPLOAD_EMPTY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeImage(bytes.NewReader(tt.data), tt.max)
			appErr, ok := apperrors.As(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code() != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, appErr.Code())
			}
		})
	}
}

func wavBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	buf.Write([]byte{0x24, 0x08, 0x00, 0x00})
	buf.WriteString("WAVEfmt ")
	buf.Write([]byte{16, 0, 0, 0, 1, 0, 1, 0, 0x40, 0x1f, 0, 0, 0x80, 0x3e, 0, 0, 2, 0, 16, 0})
	buf.WriteString("data")
	buf.Write(make([]byte, 64))
	return buf.Bytes()
}

func TestEncodeAudio(t *testing.T) {
	enc, err := Encode(KindAudio, bytes.NewReader(wavBytes()), 1<<20)
	if err != nil {
		t.Fatalf("EncodeAudio failed: %v", err)
	}
	if enc.Kind != KindAudio || !strings.HasPrefix(enc.MIMEType, "audio/") {
		t.Errorf("unexpected kind/type %s %s", enc.Kind, enc.MIMEType)
	}

	if _, err := EncodeAudio(bytes.NewReader(pngBytes(t, 4, 4)), 1<<20); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected validation error for image bytes, got %v", err)
	}
}

func TestEncode_UnknownKind(t *testing.T) {
	if _, err := Encode(Kind("video"), bytes.NewReader([]byte("x")), 10); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestFromDataURL(t *testing.T) {
	enc, err := FromDataURL(KindAudio, CreateDataURL("AAAAAAAA", "audio/webm"))
	if err != nil {
		t.Fatalf("FromDataURL failed: %v", err)
	}
	if enc.Kind != KindAudio || enc.MIMEType != "audio/webm" || enc.Data != "AAAAAAAA" || enc.Size != 6 {
		t.Errorf("unexpected payload %+v", enc)
	}

	if _, err := FromDataURL(KindImage, "not a data url"); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
