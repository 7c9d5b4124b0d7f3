package extern

import (
	"encoding/hex"
	"fmt"
)

// HexKeySlots is a KeySlots backed by a flat map of hex-encoded 16-byte
// keys, the shape a CLI loads from an external key file (real device keys
// are never embedded in this toolkit, per §1/§6: the core only consumes
// the KeySlots contract).
type HexKeySlots struct {
	KeyXHex      map[int]string
	CommonKeyHex map[byte]string
}

func (s HexKeySlots) parse(hexKey string) ([16]byte, error) {
	var out [16]byte
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return out, fmt.Errorf("extern: decode key: %w", err)
	}
	if len(raw) != 16 {
		return out, fmt.Errorf("extern: key must be 16 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func (s HexKeySlots) KeyX(slot int) ([16]byte, error) {
	hexKey, ok := s.KeyXHex[slot]
	if !ok {
		return [16]byte{}, fmt.Errorf("extern: no key loaded for slot %#x", slot)
	}
	return s.parse(hexKey)
}

func (s HexKeySlots) CommonKey(idx byte) ([16]byte, error) {
	hexKey, ok := s.CommonKeyHex[idx]
	if !ok {
		return [16]byte{}, fmt.Errorf("extern: no common key loaded for index %d", idx)
	}
	return s.parse(hexKey)
}
