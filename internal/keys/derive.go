// Package keys derives the treasury signing keypair from a BIP-39 seed
// phrase using SLIP-0010 ed25519 derivation along the standard Solana path.
package keys

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	bip39 "github.com/tyler-smith/go-bip39"
)

// DerivationPath is the hierarchical path used for the treasury account,
// m/44'/501'/0'/0'. All segments are hardened; SLIP-0010 ed25519 only
// supports hardened derivation.
const DerivationPath = "m/44'/501'/0'/0'"

// hardened derivation indexes for DerivationPath.
var pathIndexes = []uint32{44, 501, 0, 0}

const hardenedOffset = uint32(0x80000000)

// Errors
var (
	ErrInvalidSeedPhrase = errors.New("invalid seed phrase")
)

// Keypair is an ed25519 signing keypair for the treasury account.
type Keypair struct {
	PublicKey  solana.PublicKey
	PrivateKey solana.PrivateKey
}

// Derive deterministically derives the treasury keypair from a BIP-39
// mnemonic. The mnemonic is checked against the word list and checksum;
// ErrInvalidSeedPhrase is returned when it does not validate. Pure function
// of its input: the same phrase always yields the same keypair.
func Derive(seedPhrase string) (Keypair, error) {
	mnemonic := strings.Join(strings.Fields(seedPhrase), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return Keypair{}, ErrInvalidSeedPhrase
	}

	seed := bip39.NewSeed(mnemonic, "")

	key, chainCode := masterKey(seed)
	for _, index := range pathIndexes {
		key, chainCode = deriveChild(key, chainCode, index|hardenedOffset)
	}

	priv := solana.PrivateKey(ed25519.NewKeyFromSeed(key))
	return Keypair{PublicKey: priv.PublicKey(), PrivateKey: priv}, nil
}

// masterKey computes the SLIP-0010 ed25519 master key and chain code.
func masterKey(seed []byte) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// deriveChild derives a hardened child key. index must include the hardened
// offset.
func deriveChild(key, chainCode []byte, index uint32) (childKey, childChain []byte) {
	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, key...)
	data = binary.BigEndian.AppendUint32(data, index)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// Treasury holds the seed phrase and derives the keypair lazily on first
// use, caching it for the process lifetime. The raw phrase is never exposed
// and must never be logged.
type Treasury struct {
	seedPhrase string

	once sync.Once
	kp   Keypair
	err  error
}

// NewTreasury creates a treasury key holder. Derivation is deferred until
// Keypair is first called.
func NewTreasury(seedPhrase string) *Treasury {
	return &Treasury{seedPhrase: seedPhrase}
}

// Keypair returns the cached treasury keypair, deriving it on first call.
func (t *Treasury) Keypair() (Keypair, error) {
	t.once.Do(func() {
		t.kp, t.err = Derive(t.seedPhrase)
	})
	return t.kp, t.err
}

// PublicKey returns the treasury public key, deriving the keypair if needed.
func (t *Treasury) PublicKey() (solana.PublicKey, error) {
	kp, err := t.Keypair()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return kp.PublicKey, nil
}
