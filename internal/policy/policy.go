// Package policy decides whether a role may perform an action on a resource.
// Anything not matched by an explicit rule is denied.
package policy

import (
	"strings"

	"wastewatch-backend/internal/models"
)

// Action is an operation checked by Permit.
type Action int

const (
	// ActionUnknown is any action name we do not recognise. It is never permitted.
	ActionUnknown Action = iota
	ActionCreateReport
	ActionReadReport
	ActionUpdateReportStatus
	ActionReadBins
	ActionWriteBins
	ActionReadDrivers
	ActionAssignDriver
	ActionWriteDrivers
	ActionReadAnalytics
	ActionReadUser
	ActionManageUsers
)

var actionNames = map[Action]string{
	ActionCreateReport:       "createReport",
	ActionReadReport:         "readReport",
	ActionUpdateReportStatus: "updateReportStatus",
	ActionReadBins:           "readBins",
	ActionWriteBins:          "writeBins",
	ActionReadDrivers:        "readDrivers",
	ActionAssignDriver:       "assignDriver",
	ActionWriteDrivers:       "writeDrivers",
	ActionReadAnalytics:      "readAnalytics",
	ActionReadUser:           "readUser",
	ActionManageUsers:        "manageUsers",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, name := range actionNames {
		m[strings.ToLower(name)] = a
	}
	return m
}()

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction maps an action name to an Action. Matching ignores case and
// underscores, so "readReport" and "read_report" are the same action.
// Unrecognised names return ActionUnknown.
func ParseAction(name string) Action {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
	if a, ok := actionsByName[key]; ok {
		return a
	}
	return ActionUnknown
}

// Subject is the authenticated caller.
type Subject struct {
	UserID string
	Role   models.Role
}

// Resource describes what the action touches. OwnerID is the creator of a
// report or the target user; Status is the report status when relevant.
type Resource struct {
	OwnerID string
	Status  models.ReportStatus
}

// Permit reports whether subject may perform action on resource.
func Permit(s Subject, a Action, r Resource) bool {
	if a == ActionUnknown {
		return false
	}

	switch s.Role {
	case models.RoleCitizen:
		return permitCitizen(s, a, r)
	case models.RoleWorker:
		return permitWorker(s, a, r)
	case models.RoleAdmin:
		_, known := actionNames[a]
		return known
	default:
		return false
	}
}

func permitCitizen(s Subject, a Action, r Resource) bool {
	switch a {
	case ActionCreateReport, ActionReadReport, ActionReadUser:
		return isOwner(s, r)
	case ActionUpdateReportStatus, ActionReadBins, ActionWriteBins, ActionReadDrivers,
		ActionAssignDriver, ActionWriteDrivers, ActionReadAnalytics, ActionManageUsers:
		return false
	default:
		return false
	}
}

func permitWorker(s Subject, a Action, r Resource) bool {
	switch a {
	case ActionReadReport:
		// Listing without a status filter is narrowed to open reports by the caller.
		return r.Status != models.ReportStatusResolved
	case ActionUpdateReportStatus:
		return true
	case ActionReadUser:
		return isOwner(s, r)
	case ActionCreateReport, ActionReadBins, ActionWriteBins, ActionReadDrivers,
		ActionAssignDriver, ActionWriteDrivers, ActionReadAnalytics, ActionManageUsers:
		return false
	default:
		return false
	}
}

func isOwner(s Subject, r Resource) bool {
	return s.UserID != "" && s.UserID == r.OwnerID
}
