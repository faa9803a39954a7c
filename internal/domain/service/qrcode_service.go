package service

// QRCodeService defines the interface for QR code generation services
type QRCodeService interface {
	// GenerateSignInQR renders a federated authorize URL as a PNG so a
	// sign-in started on this device can continue on another one.
	GenerateSignInQR(authorizeURL string) ([]byte, error)
}
