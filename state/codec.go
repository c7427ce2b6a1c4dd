package state

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
)

// RLP only knows how to encode exported struct fields of its own supported
// kinds, so external types with unexported internals (decimal.Decimal,
// crypto.Address) are never embedded directly in a stored* wrapper type.
// These helpers convert them to/from the plain string/[]byte shapes RLP can
// carry; every stored* type in this package funnels through them.

func encodeDecimal(d decimal.Decimal) string {
	return d.String()
}

func decodeDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func encodeAddress(a crypto.Address) (prefix string, raw []byte) {
	b := a.Bytes()
	if len(b) == 0 {
		return "", nil
	}
	return string(a.Prefix()), b
}

func decodeAddress(prefix string, raw []byte) crypto.Address {
	if len(raw) == 0 {
		return crypto.Address{}
	}
	addr, err := crypto.NewAddress(crypto.AddressPrefix(prefix), raw)
	if err != nil {
		return crypto.Address{}
	}
	return addr
}

func encodeBigInt(v *big.Int) []byte {
	if v == nil {
		return []byte{}
	}
	return v.Bytes()
}

func decodeBigInt(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(b)
}
