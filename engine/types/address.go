package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const (
	// AddressLength is the width of a principal-holder identifier, matching
	// the node's own 20-byte account address convention.
	AddressLength = 20
	// VaultIDLength is the width of the opaque vault identifier (§3).
	VaultIDLength = 32
)

// Address identifies a principal holder, vault creator, or caller.
type Address [AddressLength]byte

// VaultID is the opaque 256-bit vault identifier.
type VaultID [VaultIDLength]byte

// ZeroAddress is the empty address.
var ZeroAddress = Address{}

// CustodianAddress is the sentinel holder identity representing the
// Principal Custodian's own internal balance, the destination of
// stake_tokens' TransferFrom and the implicit source of unstake's Transfer
// (§6). It is distinct from ZeroAddress so a custody balance is never
// confused with "no holder".
var CustodianAddress = Address{0xff}

// ZeroVaultID is the empty vault id, never a valid vault.
var ZeroVaultID = VaultID{}

// BytesToAddress right-aligns b into an Address, truncating from the left
// if b is longer than AddressLength.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// BytesToVaultID right-aligns b into a VaultID.
func BytesToVaultID(b []byte) VaultID {
	var id VaultID
	if len(b) > VaultIDLength {
		b = b[len(b)-VaultIDLength:]
	}
	copy(id[VaultIDLength-len(b):], b)
	return id
}

// HexToAddress parses a 0x-prefixed hex string into an Address.
func HexToAddress(s string) (Address, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address hex: %w", err)
	}
	return BytesToAddress(b), nil
}

// HexToVaultID parses a 0x-prefixed hex string into a VaultID.
func HexToVaultID(s string) (VaultID, error) {
	b, err := decodeHex(s)
	if err != nil {
		return VaultID{}, fmt.Errorf("invalid vault id hex: %w", err)
	}
	return BytesToVaultID(b), nil
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}

// Hex returns the 0x-prefixed hex encoding of the address.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// Hex returns the 0x-prefixed hex encoding of the vault id.
func (id VaultID) Hex() string { return "0x" + hex.EncodeToString(id[:]) }

// Bytes returns a copy of the underlying bytes.
func (a Address) Bytes() []byte { b := make([]byte, AddressLength); copy(b, a[:]); return b }

// Bytes returns a copy of the underlying bytes.
func (id VaultID) Bytes() []byte { b := make([]byte, VaultIDLength); copy(b, id[:]); return b }

// IsZero reports whether the vault id is the empty value.
func (id VaultID) IsZero() bool { return id == ZeroVaultID }

// MarshalJSON renders an Address as its 0x-prefixed hex string, so event log
// rows and the websocket feed (engine/feed) read as hex rather than byte
// arrays.
func (a Address) MarshalJSON() ([]byte, error) { return json.Marshal(a.Hex()) }

// UnmarshalJSON parses an Address from its 0x-prefixed hex string.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal address: %w", err)
	}
	parsed, err := HexToAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON renders a VaultID as its 0x-prefixed hex string.
func (id VaultID) MarshalJSON() ([]byte, error) { return json.Marshal(id.Hex()) }

// UnmarshalJSON parses a VaultID from its 0x-prefixed hex string.
func (id *VaultID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal vault id: %w", err)
	}
	parsed, err := HexToVaultID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// deriveVaultIDPreimage builds the hash preimage for a candidate vault id:
// the creator address, the creation timestamp, and a collision-retry salt.
func deriveVaultIDPreimage(creator Address, now int64, salt uint32) []byte {
	buf := make([]byte, 0, AddressLength+8+4)
	buf = append(buf, creator[:]...)
	var tsBuf [8]byte
	for i := 7; i >= 0; i-- {
		tsBuf[i] = byte(now)
		now >>= 8
	}
	buf = append(buf, tsBuf[:]...)
	var saltBuf [4]byte
	for i := 3; i >= 0; i-- {
		saltBuf[i] = byte(salt)
		salt >>= 8
	}
	buf = append(buf, saltBuf[:]...)
	return buf
}

// DeriveVaultID computes the candidate vault id for (creator, now, salt)
// using Keccak-256, matching the node's own address/hash derivation in
// chain/types/address.go. Callers retry with an incremented salt on
// collision, per §4.5.
func DeriveVaultID(creator Address, now int64, salt uint32) VaultID {
	preimage := deriveVaultIDPreimage(creator, now, salt)
	h := sha3.NewLegacyKeccak256()
	h.Write(preimage)
	return BytesToVaultID(h.Sum(nil))
}
