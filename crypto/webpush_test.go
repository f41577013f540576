package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func b64(t *testing.T, s string) []byte {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(strings.ReplaceAll(s, "\n", ""))
	if err != nil {
		t.Fatalf("bad base64 fixture: %v", err)
	}
	return raw
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	keys, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("GenerateSubscriptionKeys failed: %v", err)
	}

	plaintext := []byte(`{"title":"New message","body":"hi","url":"/chat"}`)
	body, err := EncryptContent(keys.PublicKey(), keys.AuthSecret(), plaintext)
	if err != nil {
		t.Fatalf("EncryptContent failed: %v", err)
	}

	got, err := DecryptContent(keys, body)
	if err != nil {
		t.Fatalf("DecryptContent failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestLoadSubscriptionKeysRestoresDecryption(t *testing.T) {
	keys, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("GenerateSubscriptionKeys failed: %v", err)
	}

	body, err := EncryptContent(keys.PublicKey(), keys.AuthSecret(), []byte("persisted"))
	if err != nil {
		t.Fatalf("EncryptContent failed: %v", err)
	}

	restored, err := LoadSubscriptionKeys(keys.PrivateKeyBytes(), keys.AuthSecret())
	if err != nil {
		t.Fatalf("LoadSubscriptionKeys failed: %v", err)
	}
	got, err := DecryptContent(restored, body)
	if err != nil {
		t.Fatalf("DecryptContent with restored keys failed: %v", err)
	}
	if string(got) != "persisted" {
		t.Fatalf("unexpected plaintext %q", got)
	}
}

func TestLoadSubscriptionKeysValidates(t *testing.T) {
	keys, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("GenerateSubscriptionKeys failed: %v", err)
	}

	if _, err := LoadSubscriptionKeys(keys.PrivateKeyBytes(), []byte("short")); err == nil {
		t.Fatal("expected auth secret size validation")
	}
	if _, err := LoadSubscriptionKeys([]byte("not a key"), keys.AuthSecret()); err == nil {
		t.Fatal("expected private key validation")
	}
}

func TestDecryptRejectsTamperedBody(t *testing.T) {
	keys, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("GenerateSubscriptionKeys failed: %v", err)
	}
	body, err := EncryptContent(keys.PublicKey(), keys.AuthSecret(), []byte("secret"))
	if err != nil {
		t.Fatalf("EncryptContent failed: %v", err)
	}

	body[len(body)-1] ^= 0x01
	if _, err := DecryptContent(keys, body); !errors.Is(err, ErrBadCiphertext) {
		t.Fatalf("expected ErrBadCiphertext, got %v", err)
	}
}

func TestDecryptRejectsTruncatedBody(t *testing.T) {
	keys, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("GenerateSubscriptionKeys failed: %v", err)
	}

	for _, body := range [][]byte{nil, []byte("short"), make([]byte, 30)} {
		if _, err := DecryptContent(keys, body); !errors.Is(err, ErrBadCiphertext) {
			t.Fatalf("expected ErrBadCiphertext for %d bytes, got %v", len(body), err)
		}
	}
}

func TestDecryptRejectsWrongKeys(t *testing.T) {
	keys, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("GenerateSubscriptionKeys failed: %v", err)
	}
	other, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("GenerateSubscriptionKeys failed: %v", err)
	}

	body, err := EncryptContent(keys.PublicKey(), keys.AuthSecret(), []byte("secret"))
	if err != nil {
		t.Fatalf("EncryptContent failed: %v", err)
	}
	if _, err := DecryptContent(other, body); !errors.Is(err, ErrBadCiphertext) {
		t.Fatalf("expected ErrBadCiphertext with wrong keys, got %v", err)
	}
}

func TestTransportEncodings(t *testing.T) {
	keys, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("GenerateSubscriptionKeys failed: %v", err)
	}

	p256dh, err := base64.RawURLEncoding.DecodeString(keys.P256DH())
	if err != nil {
		t.Fatalf("P256DH is not raw url base64: %v", err)
	}
	if len(p256dh) != 65 || p256dh[0] != 0x04 {
		t.Fatalf("P256DH must be an uncompressed point, got %d bytes", len(p256dh))
	}

	auth, err := base64.RawURLEncoding.DecodeString(keys.Auth())
	if err != nil {
		t.Fatalf("Auth is not raw url base64: %v", err)
	}
	if len(auth) != 16 {
		t.Fatalf("auth secret must be 16 bytes, got %d", len(auth))
	}
}

// Known-answer test from RFC 8291 appendix A.
func TestDecryptRFC8291Vector(t *testing.T) {
	receiverPrivate := b64(t, "q1dXpw3UpT5VOmu_cf_v6ih07Aems3njxI-JWgLcM94")
	authSecret := b64(t, "BTBZMqHH6r4Tts7J_aSIgg")
	body := b64(t, "DGv6ra1nlYgDCS1FRnbzlwAAEABBBP4z9KsN6nGRTbVYI_c7VJSPQTBtkgcy27ml\n"+
		"mlMoZIIgDll6e3vCYLocInmYWAmS6TlzAC8wEqKK6PBru3jl7A_yl95bQpu6cVPT\n"+
		"pK4Mqgkf1CXztLVBSt2Ks3oZwbuwXPXLWyouBWLVWGNWQexSgSxsj_Qulcy4a-fN")

	keys, err := LoadSubscriptionKeys(receiverPrivate, authSecret)
	if err != nil {
		t.Fatalf("LoadSubscriptionKeys failed: %v", err)
	}

	got, err := DecryptContent(keys, body)
	if err != nil {
		t.Fatalf("DecryptContent failed: %v", err)
	}
	want := "When I grow up, I want to be a watermelon"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
