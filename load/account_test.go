package load

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for _, n := range []int{0, 1, 1000} {
		accounts, err := NewProvisioner(nil).Generate(n)
		require.NoError(t, err)
		require.Len(t, accounts, n)

		seen := make(map[common.Address]struct{}, n)
		for _, account := range accounts {
			require.NotNil(t, account.PrivateKey)
			assert.Equal(t, ethcrypto.PubkeyToAddress(account.PrivateKey.PublicKey), account.Address)

			_, dup := seen[account.Address]
			assert.False(t, dup, "duplicate address %s", account.Address)
			seen[account.Address] = struct{}{}
		}
	}
}

func TestPrivateKeyHex(t *testing.T) {
	account := mustGenerate(1)[0]

	keyHex := account.PrivateKeyHex()
	require.True(t, len(keyHex) == 66 && keyHex[:2] == "0x")

	// the hex form must import back to the same address
	parsed, err := ParseFunderKey(keyHex)
	require.NoError(t, err)
	assert.Equal(t, account.Address, parsed.Address)
}

func TestParseFunderKey(t *testing.T) {
	account := mustGenerate(1)[0]

	// prefix optional
	withPrefix, err := ParseFunderKey(account.PrivateKeyHex())
	require.NoError(t, err)
	withoutPrefix, err := ParseFunderKey(account.PrivateKeyHex()[2:])
	require.NoError(t, err)
	assert.Equal(t, withPrefix.Address, withoutPrefix.Address)
}

func TestParseFunderKeyInvalid(t *testing.T) {
	for _, input := range []string{"", "0x", "nothex", "0x1234"} {
		_, err := ParseFunderKey(input)

		var configErr *ConfigurationError
		require.ErrorAs(t, err, &configErr, "input %q", input)
	}
}

func TestAddresses(t *testing.T) {
	accounts := mustGenerate(3)
	addrs := Addresses(accounts)

	require.Len(t, addrs, 3)
	for i, account := range accounts {
		assert.Equal(t, account.Address, addrs[i])
	}
}
