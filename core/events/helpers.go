package events

import (
	"encoding/hex"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/crypto"
)

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatIdentity(addr [20]byte) string {
	return crypto.FormatIdentity(common.Address(addr))
}

func formatRecord(addr [20]byte) string {
	return crypto.FormatRecord(common.Address(addr))
}

func hexString(b []byte) string {
	return hex.EncodeToString(b)
}
