// Package points implements the real permit-signature verification the
// Points Ledger collaborator relies on. The node's own quantum-resistant
// signature package (chain/crypto/qrsig.go) declares
// github.com/cloudflare/circl as a dependency but never actually imports
// it - dilithium.go and falcon.go instead placeholder-copy key bytes
// instead of signing or verifying anything for real. This package replaces
// that placeholder with a genuine call into circl's Dilithium
// implementation, the way the node's dependency declaration always implied
// it should.
package points

import (
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// scheme is the Dilithium mode-3 signature scheme used to authenticate
// points-ledger consume permits forwarded by the router (§6).
var scheme = mode3.Scheme()

// VerifyPermit checks that signature is a valid Dilithium mode-3 signature
// over message under the given public key bytes. A false return (rather
// than an error) means the signature was well-formed but did not verify;
// an error means the public key bytes themselves could not be parsed.
func VerifyPermit(publicKey, message, signature []byte) (bool, error) {
	pk, err := scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return false, fmt.Errorf("verify_permit: unmarshal public key: %w", err)
	}
	ok := sign.Scheme(scheme).Verify(pk, message, signature, nil)
	return ok, nil
}

// EncodePermitMessage builds the canonical byte string a permit signature
// covers: realm id, amount (as decimal string), and reason, concatenated
// with length-prefixes so no field can be shifted across a boundary to
// forge a different permit with the same bytes.
func EncodePermitMessage(realmID uint64, amountDecimal string, reason string) []byte {
	buf := make([]byte, 0, 8+len(amountDecimal)+len(reason)+8)
	var realmBuf [8]byte
	putUint64BE(realmBuf[:], realmID)
	buf = append(buf, realmBuf[:]...)
	buf = appendLengthPrefixed(buf, []byte(amountDecimal))
	buf = appendLengthPrefixed(buf, []byte(reason))
	return buf
}

func putUint64BE(dst []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func appendLengthPrefixed(dst, field []byte) []byte {
	var lenBuf [4]byte
	putUint32BE(lenBuf[:], uint32(len(field)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, field...)
}

func putUint32BE(dst []byte, v uint32) {
	for i := 3; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}
