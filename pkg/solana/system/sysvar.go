package system

import (
	"crypto/ed25519"
)

// RentSysVar is SysvarRent111111111111111111111111111111111. InitializeMint
// reads it, InitializeMint2 does not.
var RentSysVar = ed25519.PublicKey{6, 167, 213, 23, 25, 44, 92, 81, 33, 140, 201, 76, 61, 74, 241, 127, 88, 218, 238, 8, 155, 161, 253, 68, 227, 219, 217, 138, 0, 0, 0, 0}
