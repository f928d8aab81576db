package models

import (
	"fmt"
	"strings"
)

type VisibilityScope string
type DocumentStatus string
type ApprovalStatus string
type Category string
type FileCategory string
type MemberRole string
type EntityType string
type Action string

const (
	VisibilityPrivate VisibilityScope = "private"
	VisibilityProject VisibilityScope = "project"

	StatusForTender       DocumentStatus = "For Tender"
	StatusForInformation  DocumentStatus = "For Information"
	StatusForConstruction DocumentStatus = "For Construction"

	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"

	CategoryDrawings       Category = "drawings"
	CategorySpecifications Category = "specifications"
	CategoryReports        Category = "reports"
	CategoryContracts      Category = "contracts"
	CategoryCorrespondence Category = "correspondence"
	CategoryPhotos         Category = "photos"
	CategoryGeneral        Category = "general"

	FileCategoryPDF         FileCategory = "pdf"
	FileCategoryImage       FileCategory = "image"
	FileCategoryDrawing     FileCategory = "drawing"
	FileCategorySpreadsheet FileCategory = "spreadsheet"
	FileCategoryDocument    FileCategory = "document"
	FileCategoryArchive     FileCategory = "archive"
	FileCategoryOther       FileCategory = "other"

	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"

	EntityDocument EntityType = "document"
	EntityVersion  EntityType = "document_version"
	EntityApproval EntityType = "document_approval"
	EntityProject  EntityType = "project"

	ActionCreated      Action = "created"
	ActionUpdated      Action = "updated"
	ActionDeleted      Action = "deleted"
	ActionDownloaded   Action = "downloaded"
	ActionSuperseded   Action = "superseded"
	ActionVersioned    Action = "version_created"
	ActionReverted     Action = "reverted"
	ActionLocked       Action = "locked"
	ActionUnlocked     Action = "unlocked"
	ActionShared       Action = "shared"
	ActionUnshared     Action = "unshared"
	ActionApprovalReq  Action = "approval_requested"
	ActionApproved     Action = "approved"
	ActionRejected     Action = "rejected"
	ActionMemberAdded  Action = "member_added"
	ActionStatusChange Action = "status_changed"
)

var (
	visibilityScopes = []VisibilityScope{VisibilityPrivate, VisibilityProject}
	documentStatuses = []DocumentStatus{StatusForTender, StatusForInformation, StatusForConstruction}
	categories       = []Category{
		CategoryDrawings, CategorySpecifications, CategoryReports, CategoryContracts,
		CategoryCorrespondence, CategoryPhotos, CategoryGeneral,
	}
	memberRoles = []MemberRole{RoleOwner, RoleAdmin, RoleMember}
)

// ParseVisibilityScope validates a visibility value. Empty input yields the project scope.
func ParseVisibilityScope(s string) (VisibilityScope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return VisibilityProject, nil
	}
	for _, v := range visibilityScopes {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid visibility scope %q", s)
}

// ParseDocumentStatus accepts the display form ("For Construction") or a
// snake form ("for_construction"). Empty input yields For Information.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StatusForInformation, nil
	}
	norm := strings.ToLower(strings.ReplaceAll(s, "_", " "))
	for _, st := range documentStatuses {
		if strings.ToLower(string(st)) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid document status %q", s)
}

// ParseCategory validates a document category. Empty input yields general.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryGeneral, nil
	}
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", s)
}

func ParseMemberRole(s string) (MemberRole, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleMember, nil
	}
	for _, r := range memberRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", s)
}

// CanManage reports whether the role may administer other members' documents
func (r MemberRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}
