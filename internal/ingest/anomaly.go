package ingest

// anomaly.go flags suspicious rows for human review. A match is metadata on
// a row that imports normally; detection runs after normalization and before
// the write, and its outcome never changes whether or how the row is stored.
// High CTR alone is not proof of fraud, and clicks briefly exceeding
// impressions can be midnight-boundary timing, so nothing here blocks.

// Anomaly type names as stored on anomaly records.
const (
	AnomalyClicksExceedImpressions = "clicks_exceed_impressions"
	AnomalyExtremelyHighCTR        = "extremely_high_ctr"
	AnomalyZeroImpressionsSpend    = "zero_impressions_with_spend"
)

// Predicate is one independent heuristic: given a normalized row it reports
// whether it matches and, if so, the evidence payload for the review surface.
type Predicate struct {
	Name  string
	Match func(r *CanonicalRow) (bool, map[string]any)
}

// DetectorConfig tunes the built-in heuristics.
type DetectorConfig struct {
	// CTRThreshold is the clicks/impressions ratio above which a row is
	// flagged extremely_high_ctr.
	CTRThreshold float64
	// MinImpressions gates the CTR check so tiny samples do not flag.
	MinImpressions int64
}

// DefaultDetectorConfig matches the review thresholds used in production.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{CTRThreshold: 0.5, MinImpressions: 100}
}

// Detector holds a registry of predicates. New heuristics are added with
// Register without touching the import loop.
type Detector struct {
	checks []Predicate
}

// NewDetector builds a detector with the built-in heuristics.
func NewDetector(cfg DetectorConfig) *Detector {
	d := &Detector{}

	d.Register(Predicate{
		Name: AnomalyClicksExceedImpressions,
		Match: func(r *CanonicalRow) (bool, map[string]any) {
			if r.Clicks == nil || *r.Clicks <= r.Impressions {
				return false, nil
			}
			return true, map[string]any{
				"clicks":      *r.Clicks,
				"impressions": r.Impressions,
			}
		},
	})

	d.Register(Predicate{
		Name: AnomalyExtremelyHighCTR,
		Match: func(r *CanonicalRow) (bool, map[string]any) {
			if r.Clicks == nil || r.Impressions < cfg.MinImpressions || r.Impressions == 0 {
				return false, nil
			}
			ctr := float64(*r.Clicks) / float64(r.Impressions)
			if ctr <= cfg.CTRThreshold {
				return false, nil
			}
			return true, map[string]any{
				"ctr":         ctr,
				"threshold":   cfg.CTRThreshold,
				"clicks":      *r.Clicks,
				"impressions": r.Impressions,
			}
		},
	})

	d.Register(Predicate{
		Name: AnomalyZeroImpressionsSpend,
		Match: func(r *CanonicalRow) (bool, map[string]any) {
			if r.Impressions != 0 || r.SpendMicros == nil || *r.SpendMicros <= 0 {
				return false, nil
			}
			return true, map[string]any{
				"spend_micros": *r.SpendMicros,
			}
		},
	})

	return d
}

// Register appends a predicate to the registry.
func (d *Detector) Register(p Predicate) {
	d.checks = append(d.checks, p)
}

// Inspect evaluates every predicate against the row. Multiple predicates may
// match the same row; each match yields one Anomaly referencing the row's
// creative and app identifiers.
func (d *Detector) Inspect(r *CanonicalRow, rowNumber int) []Anomaly {
	var out []Anomaly
	for _, p := range d.checks {
		hit, details := p.Match(r)
		if !hit {
			continue
		}
		out = append(out, Anomaly{
			Type:       p.Name,
			RowNumber:  rowNumber,
			CreativeID: r.CreativeID,
			AppID:      r.AppID,
			AppName:    r.AppName,
			Details:    details,
		})
	}
	return out
}
