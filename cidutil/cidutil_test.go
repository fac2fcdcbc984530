package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestSumContract(t *testing.T) {
	data := []byte("content addressed")
	id, err := Sum(data)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if id.Version() != 1 {
		t.Fatalf("version %d, want 1", id.Version())
	}
	if id.Type() != cid.Raw {
		t.Fatalf("codec %d, want raw", id.Type())
	}
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		t.Fatalf("multihash.Decode: %v", err)
	}
	if dec.Code != multihash.SHA2_256 || dec.Length != 32 {
		t.Fatalf("multihash %d/%d, want sha2-256/32", dec.Code, dec.Length)
	}

	again, err := Sum(data)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if id != again {
		t.Fatalf("Sum is not deterministic")
	}

	other, err := Sum([]byte("different bytes"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if id == other {
		t.Fatalf("distinct bytes share a CID")
	}
}

func TestMustSumMatchesSum(t *testing.T) {
	data := []byte("x")
	id, err := Sum(data)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if MustSum(data) != id {
		t.Fatalf("MustSum disagrees with Sum")
	}
}
