package model

import (
	"encoding/json"
	"time"
)

// Audit decision-type constants emitted by the guardrail (§4.8, §7).
const (
	AuditDecisionAnswerable    = "answerable"
	AuditDecisionNotAnswerable = "not_answerable"
	AuditDecisionBypassed      = "bypassed"
	AuditDecisionDisabled      = "disabled"
	AuditDecisionError         = "error"
)

// AuditLog is an immutable, hash-chained audit trail entry. The chain links
// each entry to the previous one via DetailsHash so tampering is detectable
// (§4.8's audit requirement).
type AuditLog struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenantId"`
	CallerID     string          `json:"callerId"`
	Query        string          `json:"query"`
	DecisionType string          `json:"decisionType"`
	ReasonCode   string          `json:"reasonCode,omitempty"`
	ResultCount  int             `json:"resultCount"`
	Details      json.RawMessage `json:"details,omitempty"`
	DetailsHash  *string         `json:"detailsHash,omitempty"`
	LatencyMS    float64         `json:"latencyMs"`
	CreatedAt    time.Time       `json:"createdAt"`
}
