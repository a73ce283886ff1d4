// Package qrcode produces session join codes and the QR images that carry them.
package qrcode

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"

	goqr "github.com/skip2/go-qrcode"
)

// ImageSize is the edge length in pixels of generated QR PNGs.
const ImageSize = 256

var otpSpace = big.NewInt(1_000_000)

// OTP returns a uniformly random six digit code read from r.
// A nil reader uses crypto/rand.
func OTP(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, otpSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// JoinURL is the deep link the driver app opens after scanning a session QR.
func JoinURL(otp string) string {
	return "mysettle://join?otp=" + otp
}

// PNG renders content as a QR code PNG.
func PNG(content string) ([]byte, error) {
	png, err := goqr.Encode(content, goqr.Medium, ImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}

// DataURI renders content as a QR code and returns it as a
// data:image/png;base64 URI suitable for an <img> src.
func DataURI(content string) (string, error) {
	png, err := PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
