package weights

import (
	"fmt"
	"sort"
)

// CapsConfig defines per-asset and per-bucket exposure limits. Percentages
// are expressed 0..100; a value of 100 (or zero-value maps) disables the cap.
type CapsConfig struct {
	MaxPerAssetPct  float64            `yaml:"max_per_asset_pct"`
	PerAssetCapsPct map[string]float64 `yaml:"per_asset_caps"`
	BucketCapsPct   map[string]float64 `yaml:"bucket_caps"`
	// Categories labels each symbol with a bucket name; unlabeled symbols
	// belong to no capped bucket.
	Categories map[string]string `yaml:"categories"`
}

// EnforceCaps clamps weights to the configured limits, in order: explicit
// per-asset caps, the uniform per-asset cap, then bucket caps (members scaled
// down proportionally so the bucket sum equals the cap exactly). The result
// is renormalized; if the capped total is non-positive the uncapped map is
// returned unchanged. The returned reasons name each cap that actually bound.
func EnforceCaps(w Map, cfg CapsConfig) (Map, []string) {
	out := w.Clone()
	var reasons []string

	for _, sym := range sortedKeys(cfg.PerAssetCapsPct) {
		cap := cfg.PerAssetCapsPct[sym] / 100.0
		if cur, ok := out[sym]; ok && cur > cap {
			out[sym] = cap
			reasons = append(reasons, fmt.Sprintf("per_asset:%s", sym))
		}
	}

	if cfg.MaxPerAssetPct > 0 && cfg.MaxPerAssetPct < 100 {
		maxW := cfg.MaxPerAssetPct / 100.0
		for _, sym := range sortedKeys(out) {
			if out[sym] > maxW {
				out[sym] = maxW
				reasons = append(reasons, fmt.Sprintf("max_asset:%s", sym))
			}
		}
	}

	for _, bucket := range sortedKeys(cfg.BucketCapsPct) {
		cap := cfg.BucketCapsPct[bucket] / 100.0
		var members []string
		var total float64
		for sym, b := range cfg.Categories {
			if b != bucket {
				continue
			}
			if v, ok := out[sym]; ok {
				members = append(members, sym)
				total += v
			}
		}
		if total > cap && total > 0 {
			scale := cap / total
			for _, sym := range members {
				out[sym] *= scale
			}
			reasons = append(reasons, fmt.Sprintf("bucket:%s", bucket))
		}
	}

	if out.Sum() <= 0 {
		return w.Clone(), reasons
	}
	return out.Normalize(), reasons
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
