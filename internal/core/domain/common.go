package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
}

// Actor identifies who performs an operation. Supplied by the authentication layer.
// An empty BranchID means the actor works across all branches of the tenant.
type Actor struct {
	UserID   string `json:"userID"`
	TenantID string `json:"tenantID"`
	BranchID string `json:"branchID,omitempty"`
}

// CanAccessBranch reports whether the actor may read or mutate branchID.
func (a Actor) CanAccessBranch(branchID string) bool {
	return a.BranchID == "" || a.BranchID == branchID
}
