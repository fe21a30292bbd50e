package domain

// VoiceProfile fixes the synthesis voice and delivery parameters for the
// agent. The profile is set once at startup; per-request overrides are not
// supported.
type VoiceProfile struct {
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
	Style           float64
	Speed           float64
}
