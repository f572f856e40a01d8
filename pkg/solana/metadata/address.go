package metadata

import (
	"crypto/ed25519"

	"github.com/solana-token-factory/factory/pkg/solana"
)

var (
	MetadataPrefix = []byte("metadata")
)

// GetMetadataAddress derives the metadata account for a mint from the seeds
// ["metadata", program id, mint].
func GetMetadataAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		MetadataPrefix,
		PROGRAM_ID,
		mint,
	)
}
