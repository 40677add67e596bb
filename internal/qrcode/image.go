package qrcode

import (
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

const DefaultImageSize = 256

// PNG renders payload as a QR code image for the holder's screen or print-out.
func PNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultImageSize
	}
	png, err := goqrcode.Encode(payload, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}
