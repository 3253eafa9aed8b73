package genesis

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"

	"academicchain/crypto"
)

// ParseAccount decodes an actor identity given either as an acad1... bech32
// string or as 0x-prefixed hex. Record addresses (acadr) are rejected since
// no key can act for them.
func ParseAccount(addr string) (common.Address, error) {
	trimmed := strings.TrimSpace(addr)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		return crypto.ParseIdentity(trimmed)
	}
	hrp, data, err := bech32.Decode(trimmed)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode bech32 account: %w", err)
	}
	if hrp != string(crypto.AcademicPrefix) {
		return common.Address{}, fmt.Errorf("decode bech32 account: unsupported hrp %q", hrp)
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode bech32 account: %w", err)
	}
	if len(decoded) != common.AddressLength {
		return common.Address{}, fmt.Errorf("decode bech32 account: invalid address length %d", len(decoded))
	}
	return common.BytesToAddress(decoded), nil
}
