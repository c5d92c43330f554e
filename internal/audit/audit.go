// Package audit implements SHA-256 hash-chained audit logging for
// guardrail decisions (§4.9's audit emission, §7's decision taxonomy).
//
// Directly adapted from the corpus's service/audit.go: same
// previousHash+action+timestamp+details hashing scheme and the same
// VerifyChain walk, generalized from document-management actions to the
// guardrail's five decision types and from an optional BigQuery WORM
// writer to an optional secondary writer of the caller's choice.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ragcore/retrieval-core/internal/model"
)

// Repository abstracts persistent audit log storage.
type Repository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	GetLatestHash(ctx context.Context, tenantID string) (string, error)
	GetRange(ctx context.Context, tenantID, startID, endID string) ([]model.AuditLog, error)
}

// SecondaryWriter mirrors audit entries to a secondary WORM-style store.
type SecondaryWriter interface {
	Write(ctx context.Context, entry *model.AuditLog) error
}

// VerificationResult reports a hash-chain verification outcome.
type VerificationResult struct {
	Valid          bool   `json:"valid"`
	EntriesChecked int    `json:"entriesChecked"`
	BrokenAt       string `json:"brokenAt,omitempty"`
	BrokenIndex    int    `json:"brokenIndex,omitempty"`
}

// Service writes guardrail decisions to a hash-chained audit log, keyed
// per tenant since each tenant's chain is independent.
type Service struct {
	repo      Repository
	secondary SecondaryWriter // nil disables mirroring
	lastHash  map[string]string
}

// New creates a Service. secondary may be nil.
func New(repo Repository, secondary SecondaryWriter) *Service {
	return &Service{repo: repo, secondary: secondary, lastHash: make(map[string]string)}
}

func (s *Service) resolveLastHash(ctx context.Context, tenantID string) (string, error) {
	if h, ok := s.lastHash[tenantID]; ok {
		return h, nil
	}
	h, err := s.repo.GetLatestHash(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("audit.resolveLastHash: %w", err)
	}
	s.lastHash[tenantID] = h
	return h, nil
}

// Record writes a guardrail decision audit entry and advances the
// tenant's hash chain.
func (s *Service) Record(ctx context.Context, tenantID, callerID, query, decisionType, reasonCode string, resultCount int, details map[string]any, latencyMS float64) error {
	prevHash, err := s.resolveLastHash(ctx, tenantID)
	if err != nil {
		return err
	}

	entry := &model.AuditLog{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		CallerID:     callerID,
		Query:        query,
		DecisionType: decisionType,
		ReasonCode:   reasonCode,
		ResultCount:  resultCount,
		LatencyMS:    latencyMS,
		CreatedAt:    time.Now().UTC(),
	}

	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("audit.Record: marshal details: %w", err)
		}
		entry.Details = data
	}

	hash := computeHash(prevHash, entry)
	entry.DetailsHash = &hash
	s.lastHash[tenantID] = hash

	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("audit.Record: %w", err)
	}

	if s.secondary != nil {
		go func() {
			if err := s.secondary.Write(context.Background(), entry); err != nil {
				slog.Warn("audit: secondary write failed", "error", err, "entry_id", entry.ID)
			}
		}()
	}

	return nil
}

// VerifyChain validates hash-chain integrity for a tenant's audit range.
func (s *Service) VerifyChain(ctx context.Context, tenantID, startID, endID string) (*VerificationResult, error) {
	entries, err := s.repo.GetRange(ctx, tenantID, startID, endID)
	if err != nil {
		return nil, fmt.Errorf("audit.VerifyChain: %w", err)
	}
	if len(entries) == 0 {
		return &VerificationResult{Valid: true}, nil
	}

	var prevHash string
	if entries[0].DetailsHash != nil {
		prevHash = *entries[0].DetailsHash
	}

	for i := 1; i < len(entries); i++ {
		expected := computeHash(prevHash, &entries[i])
		actual := ""
		if entries[i].DetailsHash != nil {
			actual = *entries[i].DetailsHash
		}
		if actual != expected {
			return &VerificationResult{Valid: false, EntriesChecked: i + 1, BrokenAt: entries[i].ID, BrokenIndex: i}, nil
		}
		prevHash = actual
	}

	return &VerificationResult{Valid: true, EntriesChecked: len(entries)}, nil
}

// computeHash formula: SHA-256(previousHash + tenantId + decisionType +
// createdAt(RFC3339Nano) + details).
func computeHash(previousHash string, entry *model.AuditLog) string {
	h := sha256.New()
	h.Write([]byte(previousHash))
	h.Write([]byte(entry.TenantID))
	h.Write([]byte(entry.DecisionType))
	h.Write([]byte(entry.CreatedAt.Format(time.RFC3339Nano)))
	if entry.Details != nil {
		h.Write(entry.Details)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
