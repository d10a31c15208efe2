package service

import (
	"crypto/rand"
	"encoding/hex"
)

// Short codes avoid 0/O and 1/I/L so they survive being read aloud.
const shortCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const shortCodeLength = 8

func newID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func newToken() string {
	bytes := make([]byte, 20)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func newShortCode() string {
	bytes := make([]byte, shortCodeLength)
	_, _ = rand.Read(bytes)
	code := make([]byte, shortCodeLength)
	for i, b := range bytes {
		code[i] = shortCodeAlphabet[int(b)%len(shortCodeAlphabet)]
	}
	return string(code)
}
