// Package png renders verification payloads into QR code PNG images.
package png

import (
	"encoding/base64"
	"strings"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/go-faster/errors"
	"github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	dataURIPNG  = "data:image/png;base64,"
)

var ErrEmptyPayload = errors.New("empty QR payload")

// Generator encodes payloads at a fixed size and error correction level.
// Output is deterministic: the same payload always yields the same bytes.
type Generator struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewGenerator(size int, level qrcode.RecoveryLevel) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{Size: size, Level: level}
}

// ParseLevel maps low|medium|high|highest onto a recovery level.
func ParseLevel(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return qrcode.Low, nil
	case "medium", "":
		return qrcode.Medium, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	}
	return qrcode.Medium, errors.Errorf("invalid QR recovery level %q", s)
}

// Encode returns the PNG bytes for payload.
func (g *Generator) Encode(payload string) ([]byte, error) {
	if payload == "" {
		return nil, &etims.QrGenerationError{PayloadLength: 0, Err: ErrEmptyPayload}
	}

	b, err := qrcode.Encode(payload, g.Level, g.Size)
	if err != nil {
		return nil, &etims.QrGenerationError{PayloadLength: len(payload), Err: err}
	}
	return b, nil
}

// DataURI returns payload as an inline data:image/png;base64 URI.
func (g *Generator) DataURI(payload string) (string, error) {
	b, err := g.Encode(payload)
	if err != nil {
		return "", err
	}
	return dataURIPNG + base64.StdEncoding.EncodeToString(b), nil
}

// Qr encodes content with the default size and medium recovery level.
func Qr(content string) ([]byte, error) {
	return NewGenerator(DefaultSize, qrcode.Medium).Encode(content)
}
