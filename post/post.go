// Package post defines the signed message envelope exchanged between
// agents and its canonicalization, signing, and verification rules.
package post

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/agoramesh/agora/identity"
)

// Version is the current envelope schema version.
const Version = 1

// TypePost is the default envelope type.
const TypePost = "post"

// Envelope is a single signed message. It is immutable once signed: any
// mutation invalidates the signature.
//
// Refs is never null in the serialized form; an envelope with no
// references carries an empty array. Tags is optional and omitted when
// empty. The envelope's external identifier is the CID the store assigns
// to its Encode bytes.
type Envelope struct {
	V         int      `json:"v"`
	Type      string   `json:"type"`
	Content   string   `json:"content"`
	Author    string   `json:"author"`
	Refs      []string `json:"refs"`
	Tags      []string `json:"tags,omitempty"`
	Timestamp string   `json:"timestamp"`
	Signature string   `json:"signature,omitempty"`
}

// New builds an unsigned envelope authored by the given DID, timestamped
// with the current UTC time.
func New(author, content string, refs, tags []string) *Envelope {
	if refs == nil {
		refs = []string{}
	}
	return &Envelope{
		V:         Version,
		Type:      TypePost,
		Content:   content,
		Author:    author,
		Refs:      refs,
		Tags:      tags,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Encode serializes the envelope as compact JSON, the exact bytes handed
// to the content store.
func (e *Envelope) Encode() ([]byte, error) {
	return marshalCompact(e)
}

// Decode parses an envelope from stored bytes.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Refs == nil {
		e.Refs = []string{}
	}
	return &e, nil
}

// Sign computes the Ed25519 signature over the canonical payload and
// attaches it as base64 text. Any previous signature is replaced.
func (e *Envelope) Sign(key ed25519.PrivateKey) error {
	payload, err := e.CanonicalPayload()
	if err != nil {
		return err
	}
	e.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(key, payload))
	return nil
}

// Verify checks the envelope signature against the public key recovered
// from the author DID.
//
// It fails closed: a missing signature, undecodable base64, a malformed
// author DID, or a failing raw check all yield false. No error is ever
// returned for an untrustworthy envelope; "could not be trusted" is a
// result, not a fault.
func (e *Envelope) Verify() bool {
	if e.Signature == "" {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(e.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	pub, err := identity.DecodeDID(e.Author)
	if err != nil {
		return false
	}
	payload, err := e.CanonicalPayload()
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}
