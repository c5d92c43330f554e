package model

import "fmt"

// FusionStrategy names a score-fusion algorithm (§4.4).
type FusionStrategy string

const (
	FusionScoreWeightedRRF FusionStrategy = "score_weighted_rrf"
	FusionWeightedAverage  FusionStrategy = "weighted_average"
	FusionMaxConfidence    FusionStrategy = "max_confidence"
	FusionRRFLegacy        FusionStrategy = "rrf"
)

// NormalizationMode names a score normalization scheme used before fusion.
type NormalizationMode string

const (
	NormalizeMinMax NormalizationMode = "minmax"
	NormalizeZScore NormalizationMode = "zscore"
	NormalizeNone   NormalizationMode = "none"
)

// TenantSearchConfig is the per-tenant typed, validated-on-write search
// configuration (§3). Global defaults apply for unknown tenants.
type TenantSearchConfig struct {
	TenantID             string            `json:"tenantId"`
	KeywordSearchEnabled bool              `json:"keywordSearchEnabled"`
	DefaultVectorWeight  float64           `json:"defaultVectorWeight"`
	DefaultKeywordWeight float64           `json:"defaultKeywordWeight"`
	DefaultRRFK          int               `json:"defaultRrfK"`
	FusionStrategy       FusionStrategy    `json:"fusionStrategy"`
	Normalization        NormalizationMode `json:"normalization"`
	AdaptiveWeights      bool              `json:"adaptiveWeights"`

	RerankerEnabled   bool    `json:"rerankerEnabled"`
	RerankerModel     string  `json:"rerankerModel,omitempty"`
	RerankerTopKIn    int     `json:"rerankerTopKIn"`
	RerankerTopKOut   int     `json:"rerankerTopKOut"`
	RerankerThreshold float64 `json:"rerankerThreshold"`

	VectorTimeoutMS    int `json:"vectorTimeoutMs"`
	KeywordTimeoutMS   int `json:"keywordTimeoutMs"`
	RerankerTimeoutMS  int `json:"rerankerTimeoutMs"`
	EmbeddingTimeoutMS int `json:"embeddingTimeoutMs"`
	OverallTimeoutMS   int `json:"overallTimeoutMs"`

	DomainlessRankingEnabled bool `json:"domainlessRankingEnabled"`
	MMREnabled               bool `json:"mmrEnabled"`
	DeduplicationEnabled     bool `json:"deduplicationEnabled"`

	MaxContextTokens int     `json:"maxContextTokens"`
	PerDocCap        int     `json:"perDocCap"`
	PerSectionCap    int     `json:"perSectionCap"`
	PackerAlpha      float64 `json:"packerAlpha"`
}

// DefaultTenantSearchConfig returns the global defaults applied to any
// tenant without an explicit override, matching the env-var defaults of §6.
func DefaultTenantSearchConfig(tenantID string) TenantSearchConfig {
	return TenantSearchConfig{
		TenantID:                 tenantID,
		KeywordSearchEnabled:     true,
		DefaultVectorWeight:      0.6,
		DefaultKeywordWeight:     0.4,
		DefaultRRFK:              60,
		FusionStrategy:           FusionScoreWeightedRRF,
		Normalization:            NormalizeMinMax,
		AdaptiveWeights:          false,
		RerankerEnabled:          true,
		RerankerTopKIn:           20,
		RerankerTopKOut:          8,
		RerankerThreshold:        0.0,
		VectorTimeoutMS:          5000,
		KeywordTimeoutMS:         3000,
		RerankerTimeoutMS:        10000,
		EmbeddingTimeoutMS:       5000,
		OverallTimeoutMS:         45000,
		DomainlessRankingEnabled: false,
		MMREnabled:               false,
		DeduplicationEnabled:     true,
		MaxContextTokens:         8000,
		PerDocCap:                2,
		PerSectionCap:            2,
		PackerAlpha:              0.5,
	}
}

// Validate enforces the structural invariants checked at write time so
// query-time code can assume correctness (§7, §9).
func (c TenantSearchConfig) Validate() error {
	if c.DefaultRRFK < 0 {
		return fmt.Errorf("model.TenantSearchConfig.Validate: rrfK must be >= 0")
	}
	if c.MaxContextTokens < 1000 {
		return fmt.Errorf("model.TenantSearchConfig.Validate: maxContextTokens must be >= 1000")
	}
	if c.PerDocCap < 1 || c.PerSectionCap < 1 {
		return fmt.Errorf("model.TenantSearchConfig.Validate: perDocCap and perSectionCap must be >= 1")
	}
	if c.PackerAlpha < 0 || c.PackerAlpha > 1 {
		return fmt.Errorf("model.TenantSearchConfig.Validate: packerAlpha must be in [0,1]")
	}
	return nil
}

// GuardrailPreset names a built-in answerability threshold bundle.
type GuardrailPreset string

const (
	PresetStrict    GuardrailPreset = "strict"
	PresetModerate  GuardrailPreset = "moderate"
	PresetPermissive GuardrailPreset = "permissive"
	PresetCustom    GuardrailPreset = "custom"
)

// GuardrailThreshold holds the hard predicate bounds a candidate answer
// must satisfy (§4.8).
type GuardrailThreshold struct {
	MinConfidence  float64 `json:"minConfidence"`
	MinTopScore    float64 `json:"minTopScore"`
	MinMeanScore   float64 `json:"minMeanScore"`
	MaxStdDev      float64 `json:"maxStdDev"`
	MinResultCount int     `json:"minResultCount"`
}

// PresetThreshold returns the named built-in threshold bundle.
func PresetThreshold(p GuardrailPreset) GuardrailThreshold {
	switch p {
	case PresetStrict:
		return GuardrailThreshold{MinConfidence: 0.8, MinTopScore: 0.7, MinMeanScore: 0.5, MaxStdDev: 0.3, MinResultCount: 2}
	case PresetPermissive:
		return GuardrailThreshold{MinConfidence: 0.35, MinTopScore: 0.3, MinMeanScore: 0.2, MaxStdDev: 0.6, MinResultCount: 1}
	default: // moderate
		return GuardrailThreshold{MinConfidence: 0.55, MinTopScore: 0.5, MinMeanScore: 0.35, MaxStdDev: 0.45, MinResultCount: 1}
	}
}

// GuardrailWeights are the algorithmic sub-score weights; they must sum to
// at most 1.2 (§3).
type GuardrailWeights struct {
	Statistical        float64 `json:"statistical"`
	Threshold          float64 `json:"threshold"`
	MLFeatures         float64 `json:"mlFeatures"`
	RerankerConfidence float64 `json:"rerankerConfidence"`
}

// Sum returns the total of the four sub-score weights.
func (w GuardrailWeights) Sum() float64 {
	return w.Statistical + w.Threshold + w.MLFeatures + w.RerankerConfidence
}

// DefaultGuardrailWeights returns a balanced weight set summing to 1.0.
func DefaultGuardrailWeights() GuardrailWeights {
	return GuardrailWeights{Statistical: 0.35, Threshold: 0.35, MLFeatures: 0.15, RerankerConfidence: 0.15}
}

// FallbackSuggestionsConfig controls whether/how suggestions are attached
// to an IDK response.
type FallbackSuggestionsConfig struct {
	Enabled             bool    `json:"enabled"`
	MaxSuggestions      int     `json:"maxSuggestions"`
	SuggestionThreshold float64 `json:"suggestionThreshold"`
}

// TenantGuardrailConfig is the per-tenant answerability guardrail config (§3).
type TenantGuardrailConfig struct {
	TenantID    string                    `json:"tenantId"`
	Preset      GuardrailPreset           `json:"preset"`
	Threshold   GuardrailThreshold        `json:"threshold"`
	Weights     GuardrailWeights          `json:"weights"`
	IDKTemplateIDs []string               `json:"idkTemplateIds"`
	Disabled    bool                      `json:"disabled"`
	BypassEnabled bool                    `json:"bypassEnabled"`
	BypassGroups  []string                `json:"bypassGroups,omitempty"`
	Fallback    FallbackSuggestionsConfig `json:"fallback"`
}

// DefaultTenantGuardrailConfig returns the moderate-preset default config.
func DefaultTenantGuardrailConfig(tenantID string) TenantGuardrailConfig {
	return TenantGuardrailConfig{
		TenantID:       tenantID,
		Preset:         PresetModerate,
		Threshold:      PresetThreshold(PresetModerate),
		Weights:        DefaultGuardrailWeights(),
		IDKTemplateIDs: []string{"default"},
		Fallback:       FallbackSuggestionsConfig{Enabled: true, MaxSuggestions: 3, SuggestionThreshold: 0.2},
	}
}

// Validate enforces §3's guardrail config invariants at write time.
func (c TenantGuardrailConfig) Validate() error {
	if c.Threshold.MinConfidence < 0 || c.Threshold.MinConfidence > 1 {
		return fmt.Errorf("model.TenantGuardrailConfig.Validate: minConfidence must be in [0,1]")
	}
	if c.Weights.Sum() > 1.2 {
		return fmt.Errorf("model.TenantGuardrailConfig.Validate: weights must sum to <= 1.2")
	}
	if c.Fallback.MaxSuggestions > 10 {
		return fmt.Errorf("model.TenantGuardrailConfig.Validate: maxSuggestions must be <= 10")
	}
	if len(c.IDKTemplateIDs) == 0 {
		return fmt.Errorf("model.TenantGuardrailConfig.Validate: at least one IDK template id is required")
	}
	for _, id := range c.IDKTemplateIDs {
		if id == "" {
			return fmt.Errorf("model.TenantGuardrailConfig.Validate: IDK template ids must be non-empty")
		}
	}
	return nil
}
