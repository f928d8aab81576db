package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONB type for PostgreSQL jsonb columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	return scanJSON(value, j)
}

// StringList is a set of strings stored as a JSON array
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(value interface{}) error {
	return scanJSON(value, s)
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}

type Project struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedBy   uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null"`
}

type ProjectMember struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	ProjectID uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_member"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_member;index"`
	Role      MemberRole `json:"role" gorm:"type:varchar(20);not null"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null"`
}

// Document is a logical file within a project. Superseded rows are kept as history.
type Document struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	ProjectID     uuid.UUID       `json:"project_id" gorm:"type:uuid;not null;index;index:idx_documents_head,unique,where:is_superseded = false AND document_number <> ''"`
	Name          string          `json:"name" gorm:"type:varchar(255);not null"`
	Title         string          `json:"title" gorm:"type:varchar(500)"`
	FilePath      string          `json:"file_path" gorm:"type:varchar(1000);not null"`
	FileType      string          `json:"file_type" gorm:"type:varchar(255)"`
	FileSize      int64           `json:"file_size" gorm:"not null"`
	FileExtension string          `json:"file_extension" gorm:"type:varchar(20)"`
	FileCategory  FileCategory    `json:"file_category" gorm:"type:varchar(20)"`
	Category      Category        `json:"category" gorm:"type:varchar(50);not null"`
	Tags          StringList      `json:"tags" gorm:"type:jsonb"`
	UploadedBy    uuid.UUID       `json:"uploaded_by" gorm:"type:uuid;not null;index"`
	Visibility    VisibilityScope `json:"visibility_scope" gorm:"column:visibility_scope;type:varchar(20);not null"`
	Status        DocumentStatus  `json:"status" gorm:"type:varchar(32);not null"`
	Version       int             `json:"version" gorm:"not null"`

	DocumentNumber string     `json:"document_number" gorm:"type:varchar(100);index:idx_documents_head,unique,where:is_superseded = false AND document_number <> ''"`
	AssignedTo     *uuid.UUID `json:"assigned_to,omitempty" gorm:"type:uuid"`

	IsLocked bool       `json:"is_locked" gorm:"not null"`
	LockedBy *uuid.UUID `json:"locked_by,omitempty" gorm:"type:uuid"`
	LockedAt *time.Time `json:"locked_at,omitempty"`

	SupersededBy        *uuid.UUID `json:"superseded_by,omitempty" gorm:"type:uuid"`
	IsSuperseded        bool       `json:"is_superseded" gorm:"not null;index"`
	RestoredFromVersion *int       `json:"restored_from_version,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

// DocumentVersion is an immutable snapshot of a document's file
type DocumentVersion struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	DocumentID    uuid.UUID `json:"document_id" gorm:"type:uuid;not null;uniqueIndex:idx_document_version"`
	VersionNumber int       `json:"version_number" gorm:"not null;uniqueIndex:idx_document_version"`
	FilePath      string    `json:"file_path" gorm:"type:varchar(1000);not null"`
	FileType      string    `json:"file_type" gorm:"type:varchar(255)"`
	FileSize      int64     `json:"file_size"`
	FileExtension string    `json:"file_extension" gorm:"type:varchar(20)"`
	UploadedBy    uuid.UUID `json:"uploaded_by" gorm:"type:uuid;not null"`
	ChangeSummary string    `json:"change_summary" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`
}

type DocumentShare struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	DocumentID uuid.UUID `json:"document_id" gorm:"type:uuid;not null;uniqueIndex:idx_document_share"`
	SharedWith uuid.UUID `json:"shared_with" gorm:"type:uuid;not null;uniqueIndex:idx_document_share;index"`
	SharedBy   uuid.UUID `json:"shared_by" gorm:"type:uuid;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
}

type DocumentApproval struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	DocumentID   uuid.UUID      `json:"document_id" gorm:"type:uuid;not null;index"`
	ApproverID   uuid.UUID      `json:"approver_id" gorm:"type:uuid;not null;index"`
	RequestedBy  uuid.UUID      `json:"requested_by" gorm:"type:uuid;not null"`
	Status       ApprovalStatus `json:"status" gorm:"type:varchar(20);not null"`
	Comments     string         `json:"comments" gorm:"type:text"`
	ApprovedDate *time.Time     `json:"approved_date,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null"`
}

// DocumentEvent is a dated entry (inspection, issue date, ...) attached to a document
type DocumentEvent struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	DocumentID uuid.UUID `json:"document_id" gorm:"type:uuid;not null;index"`
	ProjectID  uuid.UUID `json:"project_id" gorm:"type:uuid;not null;index"`
	Title      string    `json:"title" gorm:"type:varchar(255);not null"`
	EventDate  time.Time `json:"event_date" gorm:"not null"`
	CreatedBy  uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
}

// ActivityLog is an append-only record of user actions
type ActivityLog struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty" gorm:"type:uuid;index"`
	ActorID     uuid.UUID  `json:"actor_id" gorm:"type:uuid;not null;index"`
	EntityType  EntityType `json:"entity_type" gorm:"type:varchar(50);not null"`
	EntityID    uuid.UUID  `json:"entity_id" gorm:"type:uuid;not null;index"`
	Action      Action     `json:"action" gorm:"type:varchar(50);not null"`
	Description string     `json:"description" gorm:"type:text"`
	Metadata    JSONB      `json:"metadata" gorm:"type:jsonb"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;index"`
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (p *Project) BeforeCreate(tx *gorm.DB) error          { assignID(&p.ID); return nil }
func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error    { assignID(&m.ID); return nil }
func (d *Document) BeforeCreate(tx *gorm.DB) error         { assignID(&d.ID); return nil }
func (v *DocumentVersion) BeforeCreate(tx *gorm.DB) error  { assignID(&v.ID); return nil }
func (s *DocumentShare) BeforeCreate(tx *gorm.DB) error    { assignID(&s.ID); return nil }
func (a *DocumentApproval) BeforeCreate(tx *gorm.DB) error { assignID(&a.ID); return nil }
func (e *DocumentEvent) BeforeCreate(tx *gorm.DB) error    { assignID(&e.ID); return nil }
func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error      { assignID(&l.ID); return nil }

// IsHead reports whether the document is the tip of its lineage
func (d *Document) IsHead() bool {
	return !d.IsSuperseded
}

// DownloadName returns the display name with the stored extension appended when missing
func (d *Document) DownloadName() string {
	return WithExtension(d.Name, d.FileExtension)
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&Project{},
		&ProjectMember{},
		&Document{},
		&DocumentVersion{},
		&DocumentShare{},
		&DocumentApproval{},
		&DocumentEvent{},
		&ActivityLog{},
	}
}
