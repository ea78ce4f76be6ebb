package qrcode

import "errors"

var (
	ErrEmptyContent = errors.New("qrcode: content cannot be empty")
	ErrGenerate     = errors.New("qrcode: failed to generate QR code")
	ErrNotDataURI   = errors.New("qrcode: not a PNG data URI")
)
