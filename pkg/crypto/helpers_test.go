package crypto

import "github.com/mr-tron/base58"

func encodeForTest(b []byte) string { return base58.Encode(b) }
