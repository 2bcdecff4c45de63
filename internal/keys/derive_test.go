package keys

import (
	"crypto/ed25519"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestDeriveDeterministic(t *testing.T) {
	first, err := Derive(testMnemonic)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	second, err := Derive(testMnemonic)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if !first.PublicKey.Equals(second.PublicKey) {
		t.Errorf("same seed phrase produced different public keys: %s vs %s", first.PublicKey, second.PublicKey)
	}
	if len(first.PrivateKey) != ed25519.PrivateKeySize {
		t.Errorf("expected %d-byte private key, got %d", ed25519.PrivateKeySize, len(first.PrivateKey))
	}
}

func TestDeriveNormalizesWhitespace(t *testing.T) {
	messy := "  abandon abandon  abandon abandon abandon abandon abandon abandon abandon abandon abandon\tabout "
	a, err := Derive(messy)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	b, err := Derive(testMnemonic)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if !a.PublicKey.Equals(b.PublicKey) {
		t.Error("whitespace variations should derive the same keypair")
	}
}

func TestDeriveInvalidSeedPhrase(t *testing.T) {
	cases := []string{
		"",
		"definitely not a mnemonic",
		"abandon abandon abandon",
		// valid words, broken checksum
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
	}
	for _, phrase := range cases {
		if _, err := Derive(phrase); err != ErrInvalidSeedPhrase {
			t.Errorf("Derive(%q): expected ErrInvalidSeedPhrase, got %v", phrase, err)
		}
	}
}

func TestDeriveSigningRoundTrip(t *testing.T) {
	kp, err := Derive(testMnemonic)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	msg := []byte("reward payout")
	sig := ed25519.Sign(ed25519.PrivateKey(kp.PrivateKey), msg)
	if !ed25519.Verify(ed25519.PublicKey(kp.PublicKey.Bytes()), msg, sig) {
		t.Error("signature from derived key did not verify against derived public key")
	}
}

func TestTreasuryCachesDerivation(t *testing.T) {
	tr := NewTreasury(testMnemonic)
	first, err := tr.Keypair()
	if err != nil {
		t.Fatalf("Keypair failed: %v", err)
	}
	second, err := tr.Keypair()
	if err != nil {
		t.Fatalf("Keypair failed: %v", err)
	}
	if !first.PublicKey.Equals(second.PublicKey) {
		t.Error("cached keypair changed between calls")
	}

	pub, err := tr.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey failed: %v", err)
	}
	if !pub.Equals(first.PublicKey) {
		t.Error("PublicKey does not match Keypair")
	}
}

func TestTreasuryInvalidPhrase(t *testing.T) {
	tr := NewTreasury("not a mnemonic")
	if _, err := tr.Keypair(); err != ErrInvalidSeedPhrase {
		t.Fatalf("expected ErrInvalidSeedPhrase, got %v", err)
	}
	// Cached failure is sticky.
	if _, err := tr.PublicKey(); err != ErrInvalidSeedPhrase {
		t.Fatalf("expected cached ErrInvalidSeedPhrase, got %v", err)
	}
}
