package load

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/pkg/errors"
)

var weiPerDisplay = new(big.Int).SetUint64(params.Ether)

// WeiToDisplay renders a wei amount as an exact decimal string in the
// chain's 18-decimal display unit. Safe for any magnitude.
func WeiToDisplay(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	sign := ""
	abs := new(big.Int).Abs(wei)
	if wei.Sign() < 0 {
		sign = "-"
	}

	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(abs, weiPerDisplay, frac)

	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracPart := frac.Text(10)
	for len(fracPart) < 18 {
		fracPart = "0" + fracPart
	}
	fracPart = strings.TrimRight(fracPart, "0")

	return sign + whole.String() + "." + fracPart
}

// WeiToFloat converts wei to a float64 display-unit value. Lossy; used
// only for human-readable fee logging, never for balance comparisons.
func WeiToFloat(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}

	f := new(big.Float).SetInt(wei)
	f.Quo(f, new(big.Float).SetInt(weiPerDisplay))
	out, _ := f.Float64()
	return out
}

// DisplayToWei parses a decimal display-unit string ("1", "0.25") into
// wei. Rejects negatives and more than 18 fractional digits.
func DisplayToWei(display string) (*big.Int, error) {
	display = strings.TrimSpace(display)
	if display == "" {
		return nil, errors.New("empty amount")
	}
	if strings.HasPrefix(display, "-") {
		return nil, errors.Errorf("negative amount %q", display)
	}

	wholePart := display
	fracPart := ""
	if i := strings.IndexByte(display, '.'); i >= 0 {
		wholePart, fracPart = display[:i], display[i+1:]
	}
	if wholePart == "" {
		wholePart = "0"
	}
	if len(fracPart) > 18 {
		return nil, errors.Errorf("amount %q has more than 18 decimal places", display)
	}

	whole, ok := new(big.Int).SetString(wholePart, 10)
	if !ok {
		return nil, errors.Errorf("invalid amount %q", display)
	}

	wei := new(big.Int).Mul(whole, weiPerDisplay)

	if fracPart != "" {
		frac, ok := new(big.Int).SetString(fracPart, 10)
		if !ok {
			return nil, errors.Errorf("invalid amount %q", display)
		}
		wei.Add(wei, frac.Mul(frac, pow10(18-len(fracPart))))
	}

	return wei, nil
}

// ParseFundingAmount converts a display-unit amount from the command
// line into the per-account wei amount the funding arithmetic works in.
// The result must fit in 64 bits.
func ParseFundingAmount(display string) (uint64, error) {
	wei, err := DisplayToWei(display)
	if err != nil {
		return 0, err
	}
	if !wei.IsUint64() {
		return 0, errors.Errorf("amount %q exceeds the 64-bit wei range", display)
	}
	return wei.Uint64(), nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
