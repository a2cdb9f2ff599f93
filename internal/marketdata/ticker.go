package marketdata

import (
	"fmt"
	"math"

	"OptionSentinel/internal/model"
)

// FormatOptionTicker derives the OCC-style option symbol shared by both
// data providers: {UNDERLYING}{YYMMDD}{C|P}{strike*1000 zero-padded to 8
// digits}. Example: QQQ 2026-01-26 CALL 620 -> QQQ260126C00620000.
// This is a hard format contract, not a convention.
func FormatOptionTicker(p *model.Position) string {
	kind := "C"
	if p.Kind == model.Put {
		kind = "P"
	}
	// Round, don't truncate: strike*1000 can land a hair under the
	// integer (2.01 -> 2009.999...) and a one-off symbol reads as a
	// contract with no data.
	return fmt.Sprintf("%s%s%s%08d", p.Underlying, p.Expiration.Format("060102"), kind, int(math.Round(p.Strike*1000)))
}
