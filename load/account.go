package load

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Account is an ephemeral signer: a fresh key pair and its derived
// address. It lives in process memory only and is never persisted.
type Account struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// PrivateKeyHex renders the key material as a 0x-prefixed hex string.
// Handle with care; this is the sensitive part of the account.
func (a *Account) PrivateKeyHex() string {
	return "0x" + hex.EncodeToString(crypto.FromECDSA(a.PrivateKey))
}

// Provisioner generates fresh accounts from an injectable random source.
type Provisioner struct {
	rng io.Reader
}

// NewProvisioner builds a provisioner reading randomness from rng. A nil
// rng falls back to crypto/rand, which is what production runs use; tests
// may substitute a deterministic source.
func NewProvisioner(rng io.Reader) *Provisioner {
	if rng == nil {
		rng = rand.Reader
	}
	return &Provisioner{rng: rng}
}

// Generate creates n accounts. The returned order is the generation order
// and determines both funding-recipient order and dispatch order.
func (p *Provisioner) Generate(n int) ([]*Account, error) {
	accounts := make([]*Account, 0, n)

	for i := 0; i < n; i++ {
		key, err := ecdsa.GenerateKey(crypto.S256(), p.rng)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to generate key pair %d", i)
		}

		accounts = append(accounts, &Account{
			PrivateKey: key,
			Address:    crypto.PubkeyToAddress(key.PublicKey),
		})
	}

	return accounts, nil
}

// ParseFunderKey imports the funder's private key from hex input
// (0x prefix optional) and derives its address.
func ParseFunderKey(keyHex string) (*Account, error) {
	trimmed := keyHex
	if len(trimmed) >= 2 && trimmed[:2] == "0x" {
		trimmed = trimmed[2:]
	}

	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, &ConfigurationError{Field: "funder-private-key", Reason: err.Error()}
	}

	return &Account{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Addresses projects the account list onto its addresses, preserving
// order.
func Addresses(accounts []*Account) []common.Address {
	addrs := make([]common.Address, len(accounts))
	for i, account := range accounts {
		addrs[i] = account.Address
	}
	return addrs
}
