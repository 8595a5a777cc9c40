package rbac

type Role string
type Action string

const (
	RoleAuthor   Role = "author"
	RoleReviewer Role = "reviewer"
	RoleEditor   Role = "editor"
	RoleAdmin    Role = "admin"
)

const (
	ActionSubmitPaper       Action = "submit_paper"
	ActionListAllPapers     Action = "list_all_papers"
	ActionUpdatePaperStatus Action = "update_paper_status"
	ActionOverrideStatus    Action = "override_status"
	ActionAssignReviewer    Action = "assign_reviewer"
	ActionListReviewers     Action = "list_reviewers"
	ActionRecordDecision    Action = "record_decision"
	ActionViewConfidential  Action = "view_confidential"
	ActionExportReport      Action = "export_report"
	ActionReviewPapers      Action = "review_papers"
	ActionCreateCategory    Action = "create_category"
)

var editorial = []Role{RoleEditor, RoleAdmin}

var matrix = map[Action][]Role{
	ActionSubmitPaper:       {RoleAuthor, RoleReviewer, RoleEditor, RoleAdmin},
	ActionListAllPapers:     editorial,
	ActionUpdatePaperStatus: editorial,
	ActionOverrideStatus:    editorial,
	ActionAssignReviewer:    editorial,
	ActionListReviewers:     editorial,
	ActionRecordDecision:    editorial,
	ActionViewConfidential:  editorial,
	ActionExportReport:      editorial,
	ActionReviewPapers:      {RoleReviewer, RoleEditor, RoleAdmin},
	ActionCreateCategory:    {RoleAdmin},
}

func Can(role Role, action Action) bool {
	for _, allowed := range matrix[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// Normalize maps unknown or empty roles to author, the least privileged role.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleAuthor, RoleReviewer, RoleEditor, RoleAdmin:
		return Role(role)
	default:
		return RoleAuthor
	}
}

func Valid(role string) bool {
	switch Role(role) {
	case RoleAuthor, RoleReviewer, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}

// Denial returns the message shown when role may not perform action.
func Denial(action Action) string {
	switch action {
	case ActionUpdatePaperStatus, ActionOverrideStatus:
		return "Only editors can update paper status"
	case ActionAssignReviewer:
		return "Only editors can assign reviewers"
	case ActionRecordDecision:
		return "Only editors can record decisions"
	case ActionCreateCategory:
		return "Only admins can create categories"
	case ActionExportReport:
		return "Only editors can export reports"
	case ActionListReviewers:
		return "Only editors can list reviewers"
	default:
		return "Forbidden"
	}
}

type Tab string

const (
	TabSubmit      Tab = "submit"
	TabMyPapers    Tab = "my_papers"
	TabReviews     Tab = "reviews"
	TabEditorial   Tab = "editorial"
	TabAdmin       Tab = "admin"
	TabSearch      Tab = "search"
	TabNotifyInbox Tab = "notifications"
)

// Tabs lists the dashboard sections visible to role, in display order.
func Tabs(role Role) []Tab {
	tabs := []Tab{TabSubmit, TabMyPapers}
	if Can(role, ActionReviewPapers) {
		tabs = append(tabs, TabReviews)
	}
	if Can(role, ActionListAllPapers) {
		tabs = append(tabs, TabEditorial)
	}
	if Can(role, ActionCreateCategory) {
		tabs = append(tabs, TabAdmin)
	}
	return append(tabs, TabSearch, TabNotifyInbox)
}
