package navigation

import (
	"encoding/json"
	"fmt"

	"github.com/seralis/authgate/session"
)

// AuditLevel controls how much context a route's audit events carry.
type AuditLevel uint8

const (
	// AuditNone emits only the decision.
	AuditNone AuditLevel = iota
	// AuditBasic adds the user identity.
	AuditBasic
	// AuditDetailed adds navigation params.
	AuditDetailed
)

var auditLevelNames = map[string]AuditLevel{
	"none":     AuditNone,
	"basic":    AuditBasic,
	"detailed": AuditDetailed,
}

func (l AuditLevel) String() string {
	switch l {
	case AuditBasic:
		return "basic"
	case AuditDetailed:
		return "detailed"
	default:
		return "none"
	}
}

// UnmarshalJSON accepts the string form used in route table files.
func (l *AuditLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, ok := auditLevelNames[s]
	if !ok {
		return fmt.Errorf("unknown audit level %q", s)
	}
	*l = level
	return nil
}

// MarshalJSON emits the string form.
func (l AuditLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// AccessRestrictions are the optional per-route constraints. Only
// MFARequired participates in the guard pipeline; the other two are
// carried for table completeness and caller-side enforcement.
type AccessRestrictions struct {
	TimeBasedAccess bool `json:"time_based_access"`
	GeoFencing      bool `json:"geo_fencing"`
	MFARequired     bool `json:"mfa_required"`
}

// RoutePermission is one static, read-only route entry.
type RoutePermission struct {
	Route              string             `json:"route"`
	AllowedRoles       []session.Role     `json:"allowed_roles"`
	RequiresAuth       bool               `json:"requires_auth"`
	AuditLevel         AuditLevel         `json:"audit_level"`
	HIPAACompliant     bool               `json:"hipaa_compliant"`
	AccessRestrictions AccessRestrictions `json:"access_restrictions"`
}

func (p RoutePermission) roleAllowed(role session.Role) bool {
	if len(p.AllowedRoles) == 0 {
		return true
	}
	for _, allowed := range p.AllowedRoles {
		if allowed == session.RoleAll || allowed == role {
			return true
		}
	}
	return false
}

// Table is the frozen route permission table. Loaded once at startup and
// read-only thereafter.
type Table struct {
	routes map[string]RoutePermission
}

// NewTable builds a table from entries. Duplicate routes are rejected.
func NewTable(entries []RoutePermission) (*Table, error) {
	routes := make(map[string]RoutePermission, len(entries))
	for _, entry := range entries {
		if entry.Route == "" {
			return nil, fmt.Errorf("route permission with empty route")
		}
		if _, dup := routes[entry.Route]; dup {
			return nil, fmt.Errorf("duplicate route permission for %q", entry.Route)
		}
		routes[entry.Route] = entry
	}
	return &Table{routes: routes}, nil
}

// ParseTable decodes a JSON array of route permissions.
func ParseTable(data []byte) (*Table, error) {
	var entries []RoutePermission
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}
	return NewTable(entries)
}

// Get returns the permission entry for route.
func (t *Table) Get(route string) (RoutePermission, bool) {
	if t == nil {
		return RoutePermission{}, false
	}
	perm, ok := t.routes[route]
	return perm, ok
}

// Len returns the number of configured routes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.routes)
}
