package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

const nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NanoidSize is the length of record ids minted by the engine and the stores.
var NanoidSize = 32

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

// NanoIDSize falls back to NanoidSize for non-positive sizes.
func NanoIDSize(size int) string {
	if size <= 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}
