package crypto

import "bytes"

// Equal reports whether a and b identify the same account. Address embeds a
// byte slice, so it is not comparable with ==; native/* engines that key
// state by owner address compare through this helper instead.
func (a Address) Equal(b Address) bool {
	return a.prefix == b.prefix && bytes.Equal(a.bytes, b.bytes)
}
