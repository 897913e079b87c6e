package quant

import (
	"fmt"
	"strings"

	"github.com/carbocation/pfx"
)

// ParseContrast splits a "<treatment>_vs_<baseline>" label at its single
// "_vs_" token. The baseline is the right-hand side; the negative-binomial
// model is releveled so fold changes are expressed relative to it. Labels are
// registry constants, so exactly one "_vs_" is assumed rather than handling
// group names that themselves contain the token.
func ParseContrast(label string) (treatment, baseline string, err error) {
	parts := strings.SplitN(label, "_vs_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", pfx.Err(fmt.Errorf("contrast %q cannot be split into exactly 2 groups", label))
	}

	return parts[0], parts[1], nil
}
