package qrcode

import (
	"fmt"
	"net/url"

	"lens/internal/domain/service"

	"github.com/skip2/go-qrcode"
)

// recoveryLevels maps the configured one-letter level to the library's.
// Unknown values fall back to Medium.
var recoveryLevels = map[string]qrcode.RecoveryLevel{
	"L": qrcode.Low,
	"M": qrcode.Medium,
	"Q": qrcode.High,
	"H": qrcode.Highest,
}

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
}

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(size int, errorCorrectionLevel string) service.QRCodeService {
	level, ok := recoveryLevels[errorCorrectionLevel]
	if !ok {
		level = qrcode.Medium
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
	}
}

// GenerateSignInQR renders the federated authorize URL as a PNG so a phone
// camera can pick up a sign-in started on another device.
func (s *qrcodeService) GenerateSignInQR(authorizeURL string) ([]byte, error) {
	parsed, err := url.Parse(authorizeURL)
	if err != nil || !parsed.IsAbs() {
		return nil, fmt.Errorf("authorize URL must be absolute, got %q", authorizeURL)
	}

	qrCode, err := qrcode.New(authorizeURL, s.errorCorrectionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	return pngBytes, nil
}
