// Package confirmref encodes the parameters of a verified approval into a
// compact, tamper-evident reference that travels through the notification
// channel and comes back with the operator's confirmation. The reference is
// authenticated, not encrypted: it carries nothing secret, it only has to be
// unforgeable and fail closed on any modification.
package confirmref

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

var (
	// ErrInvalidReference covers malformed, truncated, or tampered tokens.
	// Decoding never "repairs" a bad reference.
	ErrInvalidReference = errors.New("invalid confirmation reference")
	// ErrExpiredReference marks an authentic but stale reference.
	ErrExpiredReference = errors.New("confirmation reference expired")
)

const macSize = sha256.Size

// Payload is what a reference carries: enough to execute a previously
// verified approval, nothing more.
type Payload struct {
	TxSignature   string
	SourceAccount string
	Amount        uint64
	IssuedAt      time.Time
}

// Codec signs and verifies confirmation references with a process-wide key.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// New creates a codec. ttl <= 0 disables expiry.
func New(key []byte, ttl time.Duration) *Codec {
	return &Codec{key: key, ttl: ttl, now: time.Now}
}

// Encode serializes the payload and appends an HMAC-SHA256 tag, returning a
// base64url string safe for chat-message metadata.
func (c *Codec) Encode(p Payload) string {
	body := marshalPayload(p)

	mac := hmac.New(sha256.New, c.key)
	mac.Write(body)
	token := mac.Sum(body)

	return base64.RawURLEncoding.EncodeToString(token)
}

// Decode authenticates and deserializes a reference. Any flipped byte in
// body or tag yields ErrInvalidReference; an authentic reference past the
// TTL yields ErrExpiredReference.
func (c *Codec) Decode(ref string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ref)
	if err != nil || len(raw) <= macSize {
		return Payload{}, ErrInvalidReference
	}

	body, tag := raw[:len(raw)-macSize], raw[len(raw)-macSize:]
	mac := hmac.New(sha256.New, c.key)
	mac.Write(body)
	if !hmac.Equal(tag, mac.Sum(nil)) {
		return Payload{}, ErrInvalidReference
	}

	p, ok := unmarshalPayload(body)
	if !ok {
		return Payload{}, ErrInvalidReference
	}

	if c.ttl > 0 && c.now().Sub(p.IssuedAt) > c.ttl {
		return Payload{}, ErrExpiredReference
	}
	return p, nil
}

// Wire layout: u16 len + tx signature bytes, u16 len + source account bytes,
// u64 amount, i64 unix-seconds issue time. All big-endian.
func marshalPayload(p Payload) []byte {
	buf := make([]byte, 0, 4+len(p.TxSignature)+len(p.SourceAccount)+16)
	buf = appendString(buf, p.TxSignature)
	buf = appendString(buf, p.SourceAccount)
	buf = binary.BigEndian.AppendUint64(buf, p.Amount)
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.IssuedAt.Unix()))
	return buf
}

func unmarshalPayload(b []byte) (Payload, bool) {
	var p Payload
	var ok bool

	p.TxSignature, b, ok = readString(b)
	if !ok {
		return Payload{}, false
	}
	p.SourceAccount, b, ok = readString(b)
	if !ok {
		return Payload{}, false
	}
	if len(b) != 16 {
		return Payload{}, false
	}
	p.Amount = binary.BigEndian.Uint64(b[:8])
	p.IssuedAt = time.Unix(int64(binary.BigEndian.Uint64(b[8:])), 0).UTC()
	return p, true
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func readString(b []byte) (string, []byte, bool) {
	if len(b) < 2 {
		return "", nil, false
	}
	n := int(binary.BigEndian.Uint16(b))
	b = b[2:]
	if len(b) < n {
		return "", nil, false
	}
	return string(b[:n]), b[n:], true
}
