// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package key

// base62Alphabet orders digits, then uppercase, then lowercase letters.
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// base62Index maps an ASCII byte to its digit value, or -1.
var base62Index = func() [256]int8 {
	var table [256]int8
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(base62Alphabet); i++ {
		table[base62Alphabet[i]] = int8(i)
	}
	return table
}()

// encodeBase62 encodes data as a big-endian base-62 number. Each
// leading zero byte becomes one leading '0' character, which makes the
// encoding a bijection between byte strings and canonical base-62
// strings (the same convention base58 uses for Bitcoin addresses).
func encodeBase62(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	// Little-endian base-62 digits of data[zeros:]. Each input byte
	// expands to at most log(256)/log(62) ≈ 1.344 digits.
	digits := make([]byte, 0, (len(data)-zeros)*138/100+1)
	for _, b := range data[zeros:] {
		carry := int(b)
		for i := range digits {
			carry += int(digits[i]) << 8
			digits[i] = byte(carry % 62)
			carry /= 62
		}
		for carry > 0 {
			digits = append(digits, byte(carry%62))
			carry /= 62
		}
	}

	out := make([]byte, zeros+len(digits))
	for i := 0; i < zeros; i++ {
		out[i] = base62Alphabet[0]
	}
	for i, digit := range digits {
		out[len(out)-1-i] = base62Alphabet[digit]
	}
	return string(out)
}

// decodeBase62 is the inverse of encodeBase62. It returns a
// *FormatError for characters outside the alphabet.
func decodeBase62(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == base62Alphabet[0] {
		zeros++
	}

	// Little-endian bytes of the number encoded by s[zeros:].
	value := make([]byte, 0, (len(s)-zeros)*3/4+1)
	for position := zeros; position < len(s); position++ {
		digit := base62Index[s[position]]
		if digit < 0 {
			return nil, &FormatError{
				Input:  s,
				Reason: "character " + quoteByte(s[position]) + " is not in the base-62 alphabet",
			}
		}
		carry := int(digit)
		for i := range value {
			carry += int(value[i]) * 62
			value[i] = byte(carry & 0xFF)
			carry >>= 8
		}
		for carry > 0 {
			value = append(value, byte(carry&0xFF))
			carry >>= 8
		}
	}

	out := make([]byte, zeros+len(value))
	for i, b := range value {
		out[len(out)-1-i] = b
	}
	return out, nil
}

func quoteByte(b byte) string {
	if b >= 0x20 && b < 0x7F {
		return "'" + string(rune(b)) + "'"
	}
	const hexDigits = "0123456789abcdef"
	return "0x" + string([]byte{hexDigits[b>>4], hexDigits[b&0xF]})
}
