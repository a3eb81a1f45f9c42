package crypto

import (
	"bytes"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, 20)
	addr := NewAddress(LSGPrefix, raw)

	encoded := addr.String()
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode %q: %v", encoded, err)
	}
	if decoded.Prefix() != LSGPrefix {
		t.Fatalf("prefix = %s, want %s", decoded.Prefix(), LSGPrefix)
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("bytes did not round trip")
	}
}

func TestNewAddressRejectsWrongLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for short address")
		}
	}()
	NewAddress(LSGPrefix, []byte{0x01, 0x02})
}

func TestDecodeAddressInvalid(t *testing.T) {
	if _, err := DecodeAddress("not-a-bech32-address"); err == nil {
		t.Fatalf("expected error for invalid encoding")
	}
}
