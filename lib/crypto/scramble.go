package crypto

// scrambleConstant is the fixed addend used by the key scrambler, the
// platform's well-known generator constant (§4.3 "KeyScrambler").
var scrambleConstant = [16]byte{
	0x1F, 0xF9, 0xE9, 0xAA, 0xC5, 0xFE, 0x04, 0x08,
	0x02, 0x45, 0x91, 0xDC, 0x5D, 0x52, 0x76, 0x8A,
}

// Scramble derives a normal AES key from a key-X slot value and a key-Y
// seed: rotl128(keyX, 2) XOR keyY, plus the generator constant (mod 2^128),
// rotated left 87 bits. This is the KeyScrambler primitive named in §4.3.
func Scramble(keyX, keyY [16]byte) [16]byte {
	t := xor128(rotl128(keyX, 2), keyY)
	t = add128(t, scrambleConstant)
	return rotl128(t, 87)
}

func xor128(a, b [16]byte) [16]byte {
	var out [16]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// add128 adds two big-endian 128-bit values modulo 2^128.
func add128(a, b [16]byte) [16]byte {
	var out [16]byte
	var carry uint16
	for i := 15; i >= 0; i-- {
		sum := uint16(a[i]) + uint16(b[i]) + carry
		out[i] = byte(sum)
		carry = sum >> 8
	}
	return out
}

// rotl128 rotates a big-endian 128-bit value left by n bits (0 <= n < 128*k
// tolerated via modulo).
func rotl128(a [16]byte, n uint) [16]byte {
	n %= 128
	if n == 0 {
		return a
	}
	// Represent as a 128-bit big-endian bit string and rotate via byte+bit shift.
	byteShift := n / 8
	bitShift := n % 8

	var shifted [16]byte
	for i := 0; i < 16; i++ {
		srcIdx := (uint(i) + byteShift) % 16
		shifted[i] = a[srcIdx]
	}
	if bitShift == 0 {
		return shifted
	}
	var out [16]byte
	for i := 0; i < 16; i++ {
		cur := shifted[i]
		next := shifted[(i+1)%16]
		out[i] = (cur << bitShift) | (next >> (8 - bitShift))
	}
	return out
}
