package extern

import "testing"

func TestHexKeySlots(t *testing.T) {
	s := HexKeySlots{
		KeyXHex:      map[int]string{SlotNCCHStandard: "000102030405060708090a0b0c0d0e0f"},
		CommonKeyHex: map[byte]string{0: "0f0e0d0c0b0a09080706050403020100"},
	}
	k, err := s.KeyX(SlotNCCHStandard)
	if err != nil {
		t.Fatalf("KeyX: %v", err)
	}
	if k[0] != 0x00 || k[15] != 0x0f {
		t.Fatalf("unexpected key bytes: %x", k)
	}

	ck, err := s.CommonKey(0)
	if err != nil {
		t.Fatalf("CommonKey: %v", err)
	}
	if ck[0] != 0x0f || ck[15] != 0x00 {
		t.Fatalf("unexpected common key bytes: %x", ck)
	}

	if _, err := s.KeyX(SlotSeed); err == nil {
		t.Fatalf("expected error for unloaded slot")
	}
}
