package mmr

import (
	"crypto/sha256"

	"miden-client/core/ids"
)

func sha256Digest(b []byte) ids.Digest {
	sum := sha256.Sum256(b)
	return ids.Digest(sum)
}
