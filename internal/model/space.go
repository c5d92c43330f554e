package model

// GeneralSpaceName is the always-present per-tenant fallback space.
const GeneralSpaceName = "general"

// SpaceStatus is the lifecycle status of a Space.
type SpaceStatus string

const (
	SpaceActive   SpaceStatus = "active"
	SpaceArchived SpaceStatus = "archived"
)

// Space is a per-tenant logical bucket assigning a topic label to documents.
type Space struct {
	SpaceID        string      `json:"spaceId"`
	TenantID       string      `json:"tenantId"`
	Name           string      `json:"name"`
	AuthorityScore float64     `json:"authorityScore"`
	AutoCreated    bool        `json:"autoCreated"`
	Status         SpaceStatus `json:"status"`
}

// Registry is the per-tenant JSON-persisted space list (§6).
type Registry struct {
	TenantID string  `json:"tenantId"`
	Spaces   []Space `json:"spaces"`
	Version  int     `json:"version"`
}
