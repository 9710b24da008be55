package lottery

import (
	"math"
	"strconv"
	"strings"

	"fairdraw/pkg/digest"
)

// CanonicalSeedParts returns the labelled seed inputs in their fixed protocol
// order. Reordering or dropping a label changes every seed.
func CanonicalSeedParts(m SeedMaterial) []string {
	return []string{
		"excel_hash=" + m.ExcelHash,
		"selected_dong=" + strings.TrimSpace(m.Config.SelectedDong),
		"capacity=" + strconv.Itoa(m.Config.Capacity),
		"rounding_mode=" + string(m.Config.RoundingMode),
		"btc=" + m.FinalBTCValueUsed,
		"nist=" + m.FinalNISTValueUsed,
		"run_id=" + m.RunID,
		"run_salt=" + m.RunSaltHex,
	}
}

// DeriveSeedHash is SHA-256 over the newline-joined canonical parts.
func DeriveSeedHash(m SeedMaterial) string {
	return digest.ConcatAndHashHex(CanonicalSeedParts(m))
}

// CalcGuaranteeQuota is capacity/2 rounded per mode. RoundingRound rounds
// half up.
func CalcGuaranteeQuota(capacity int, mode RoundingMode) int {
	half := float64(capacity) / 2
	switch mode {
	case RoundingFloor:
		return int(math.Floor(half))
	case RoundingCeil:
		return int(math.Ceil(half))
	default:
		return int(math.Floor(half + 0.5))
	}
}
