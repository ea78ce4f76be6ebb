// Package qrcode renders two-factor enrolment URIs as QR codes, either as a
// PNG data URI for the backend response or as block characters for a
// terminal.
package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

const (
	defaultSize   = 256
	dataURIPrefix  = "data:image/png;base64,"
)

// PNG encodes content as a PNG image of size×size pixels.
// A non-positive size uses 256.
func PNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = defaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrGenerate, err)
	}
	return png, nil
}

// DataURI returns the PNG as a "data:image/png;base64,..." string.
func DataURI(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// DecodeDataURI extracts the PNG bytes from a string produced by DataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	raw, ok := strings.CutPrefix(uri, dataURIPrefix)
	if !ok {
		return nil, ErrNotDataURI
	}
	png, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.Join(ErrNotDataURI, err)
	}
	return png, nil
}

// Terminal renders content with half-block characters, two modules per
// character row. Low recovery keeps the code small enough for an 80-column
// terminal.
func Terminal(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	q, err := skipqrcode.New(content, skipqrcode.Low)
	if err != nil {
		return "", errors.Join(ErrGenerate, err)
	}
	return q.ToSmallString(false), nil
}
