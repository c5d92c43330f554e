package model

// ScoreStatistics summarizes the top-N post-reranker scores (§4.8).
type ScoreStatistics struct {
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
	StdDev float64 `json:"stdDev"`
	Count  int     `json:"count"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
}

// SubScores are the algorithmic component scores feeding the composite
// confidence (§4.8), each in [0,1].
type SubScores struct {
	Statistical        float64 `json:"statistical"`
	Threshold          float64 `json:"threshold"`
	MLFeatures         float64 `json:"mlFeatures"`
	RerankerConfidence float64 `json:"rerankerConfidence"`
}

// AnswerabilityScore is the full guardrail scoring record.
type AnswerabilityScore struct {
	Confidence      float64         `json:"confidence"`
	Stats           ScoreStatistics `json:"stats"`
	SubScores       SubScores       `json:"subScores"`
	Reasoning       string          `json:"reasoning"`
	ComputeTimeMS   float64         `json:"computeTimeMs"`
}

// IDKResponse is the structured "I don't know" refusal (§4.8).
type IDKResponse struct {
	Message     string   `json:"message"`
	ReasonCode  string   `json:"reasonCode"`
	Suggestions []string `json:"suggestions,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// GuardrailAuditTrail captures the inputs/outputs of one guardrail
// evaluation for the audit log.
type GuardrailAuditTrail struct {
	TimestampISO       string  `json:"timestamp"`
	Query              string  `json:"query"`
	TenantID           string  `json:"tenantId"`
	RetrievalCount     int     `json:"retrievalCount"`
	ScoreStatsSummary  string  `json:"scoreStatsSummary"`
	DecisionType       string  `json:"decisionType"`
	DecisionRationale  string  `json:"decisionRationale"`
	ReasonCode         string  `json:"reasonCode,omitempty"`
	LatencyMS          float64 `json:"latencyMs"`
	CallerID           string  `json:"callerId"`
}

// GuardrailDecision is the output of the answerability guardrail (§3).
type GuardrailDecision struct {
	IsAnswerable bool                `json:"isAnswerable"`
	Score        AnswerabilityScore  `json:"score"`
	Threshold    GuardrailThreshold  `json:"threshold"`
	IDK          *IDKResponse        `json:"idk,omitempty"`
	Audit        GuardrailAuditTrail `json:"audit"`
}
