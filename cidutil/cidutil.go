// Package cidutil pins down the CID contract for stored documents:
// CIDv1, raw multicodec, sha2-256 multihash.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CIDv1 (raw + sha2-256) for data. Every Store
// implementation must assign exactly this CID to Put bytes.
func Sum(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// MustSum is Sum for callers that have already validated their input.
// multihash.Sum cannot fail for sha2-256 with default length.
func MustSum(data []byte) cid.Cid {
	id, err := Sum(data)
	if err != nil {
		panic(err)
	}
	return id
}
