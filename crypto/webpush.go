// Package crypto implements the key material and content encryption for
// push subscriptions: P-256 ECDH subscription keys with an auth secret,
// and the aes128gcm content coding of RFC 8188 keyed per RFC 8291.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	authSecretSize     = 16
	p256PublicKeySize  = 65
	contentKeySize     = 16
	nonceSize          = 12
	defaultRecordSize  = 4096
	paddingDelimiter   = 0x02
	contentHeaderFloor = 16 + 4 + 1
)

var p256Curve = ecdh.P256()

// ErrBadCiphertext indicates a push body that failed to parse or decrypt.
var ErrBadCiphertext = errors.New("crypto: bad push ciphertext")

// SubscriptionKeys is the receiver-side key material of one push
// subscription: a P-256 keypair and the 16-byte auth secret shared with
// the server at subscribe time.
type SubscriptionKeys struct {
	privateKey *ecdh.PrivateKey
	authSecret []byte
}

// GenerateSubscriptionKeys creates fresh subscription key material.
func GenerateSubscriptionKeys() (*SubscriptionKeys, error) {
	privateKey, err := p256Curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate P-256 private key: %w", err)
	}

	authSecret := make([]byte, authSecretSize)
	if _, err := rand.Read(authSecret); err != nil {
		return nil, fmt.Errorf("generate auth secret: %w", err)
	}

	return &SubscriptionKeys{privateKey: privateKey, authSecret: authSecret}, nil
}

// LoadSubscriptionKeys rebuilds key material from its stored byte form.
func LoadSubscriptionKeys(privateKey, authSecret []byte) (*SubscriptionKeys, error) {
	if len(authSecret) != authSecretSize {
		return nil, fmt.Errorf("invalid auth secret size: got %d want %d", len(authSecret), authSecretSize)
	}

	key, err := p256Curve.NewPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parse P-256 private key: %w", err)
	}

	return &SubscriptionKeys{privateKey: key, authSecret: append([]byte(nil), authSecret...)}, nil
}

// PrivateKeyBytes returns the private scalar for persistence.
func (k *SubscriptionKeys) PrivateKeyBytes() []byte {
	return k.privateKey.Bytes()
}

// PublicKey returns the uncompressed 65-byte public point.
func (k *SubscriptionKeys) PublicKey() []byte {
	return k.privateKey.PublicKey().Bytes()
}

// AuthSecret returns a copy of the shared auth secret.
func (k *SubscriptionKeys) AuthSecret() []byte {
	return append([]byte(nil), k.authSecret...)
}

// P256DH returns the public key in the transport encoding servers expect.
func (k *SubscriptionKeys) P256DH() string {
	return base64.RawURLEncoding.EncodeToString(k.PublicKey())
}

// Auth returns the auth secret in the transport encoding servers expect.
func (k *SubscriptionKeys) Auth() string {
	return base64.RawURLEncoding.EncodeToString(k.authSecret)
}

// DecryptContent opens an aes128gcm push body addressed to these keys and
// returns the padded-out plaintext.
func DecryptContent(keys *SubscriptionKeys, body []byte) ([]byte, error) {
	if len(body) < contentHeaderFloor {
		return nil, fmt.Errorf("%w: body too short", ErrBadCiphertext)
	}

	salt := body[:16]
	idLen := int(body[20])
	if idLen != p256PublicKeySize {
		return nil, fmt.Errorf("%w: unexpected key id length %d", ErrBadCiphertext, idLen)
	}
	if len(body) < contentHeaderFloor+idLen {
		return nil, fmt.Errorf("%w: truncated header", ErrBadCiphertext)
	}

	senderPublicBytes := body[contentHeaderFloor : contentHeaderFloor+idLen]
	ciphertext := body[contentHeaderFloor+idLen:]

	senderPublic, err := p256Curve.NewPublicKey(senderPublicBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse sender key: %v", ErrBadCiphertext, err)
	}

	contentKey, nonce, err := deriveContentKeys(keys.privateKey, senderPublic,
		keys.PublicKey(), senderPublicBytes, keys.authSecret, salt)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(contentKey)
	if err != nil {
		return nil, err
	}
	padded, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCiphertext, err)
	}

	return stripPadding(padded)
}

// EncryptContent seals plaintext for the subscription identified by
// receiverPublic and authSecret, using a fresh ephemeral sender key and
// salt, and returns the complete aes128gcm body.
func EncryptContent(receiverPublic, authSecret, plaintext []byte) ([]byte, error) {
	receiver, err := p256Curve.NewPublicKey(receiverPublic)
	if err != nil {
		return nil, fmt.Errorf("parse receiver key: %w", err)
	}

	sender, err := p256Curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate sender key: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	senderPublicBytes := sender.PublicKey().Bytes()
	contentKey, nonce, err := deriveContentKeys(sender, receiver,
		receiverPublic, senderPublicBytes, authSecret, salt)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(contentKey)
	if err != nil {
		return nil, err
	}
	padded := append(append([]byte(nil), plaintext...), paddingDelimiter)
	ciphertext := aead.Seal(nil, nonce, padded, nil)

	body := make([]byte, 0, contentHeaderFloor+len(senderPublicBytes)+len(ciphertext))
	body = append(body, salt...)
	body = binary.BigEndian.AppendUint32(body, defaultRecordSize)
	body = append(body, byte(len(senderPublicBytes)))
	body = append(body, senderPublicBytes...)
	body = append(body, ciphertext...)
	return body, nil
}

// deriveContentKeys runs the RFC 8291 schedule: ECDH shared secret, auth
// extract with the WebPush info, then the RFC 8188 content key and nonce.
func deriveContentKeys(local *ecdh.PrivateKey, remote *ecdh.PublicKey,
	receiverPublic, senderPublic, authSecret, salt []byte) (contentKey, nonce []byte, err error) {

	sharedSecret, err := local.ECDH(remote)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ecdh: %v", ErrBadCiphertext, err)
	}

	keyInfo := make([]byte, 0, 14+2*p256PublicKeySize)
	keyInfo = append(keyInfo, []byte("WebPush: info\x00")...)
	keyInfo = append(keyInfo, receiverPublic...)
	keyInfo = append(keyInfo, senderPublic...)

	prkKey := hkdf.Extract(sha256.New, sharedSecret, authSecret)
	ikm, err := readKDF(hkdf.Expand(sha256.New, prkKey, keyInfo), 32)
	if err != nil {
		return nil, nil, err
	}

	prk := hkdf.Extract(sha256.New, ikm, salt)
	contentKey, err = readKDF(hkdf.Expand(sha256.New, prk, []byte("Content-Encoding: aes128gcm\x00")), contentKeySize)
	if err != nil {
		return nil, nil, err
	}
	nonce, err = readKDF(hkdf.Expand(sha256.New, prk, []byte("Content-Encoding: nonce\x00")), nonceSize)
	if err != nil {
		return nil, nil, err
	}

	return contentKey, nonce, nil
}

func newAEAD(contentKey []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(contentKey)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}

func readKDF(r io.Reader, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("derive key material: %w", err)
	}
	return out, nil
}

// stripPadding removes the record padding: zero bytes after the 0x02
// delimiter that closes the final record.
func stripPadding(padded []byte) ([]byte, error) {
	trimmed := bytes.TrimRight(padded, "\x00")
	if len(trimmed) == 0 || trimmed[len(trimmed)-1] != paddingDelimiter {
		return nil, fmt.Errorf("%w: missing padding delimiter", ErrBadCiphertext)
	}
	return trimmed[:len(trimmed)-1], nil
}
