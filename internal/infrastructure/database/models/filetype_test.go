package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 1x1 transparent PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func TestDetectFileInfo(t *testing.T) {
	tests := []struct {
		name         string
		fileName     string
		reportedType string
		head         []byte
		wantExt      string
		wantMIME     string
		wantCategory FileCategory
	}{
		{"trusts specific browser type", "plan.pdf", "application/pdf", nil, "pdf", "application/pdf", FileCategoryPDF},
		{"generic type falls back to extension", "plan.PDF", "application/octet-stream", nil, "pdf", "application/pdf", FileCategoryPDF},
		{"empty type falls back to extension", "site.dwg", "", nil, "dwg", "image/vnd.dwg", FileCategoryDrawing},
		{"spreadsheet", "boq.xlsx", "", nil, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FileCategorySpreadsheet},
		{"extensionless image uses reported subtype", "IMG_0042", "image/jpeg", nil, "jpg", "image/jpeg", FileCategoryImage},
		{"extensionless file is sniffed", "scan", "", pngBytes, "png", "image/png", FileCategoryImage},
		{"unknown everything", "blob", "", nil, "bin", "application/octet-stream", FileCategoryOther},
		{"strips content type params", "notes.txt", "text/plain; charset=utf-8", nil, "txt", "text/plain", FileCategoryDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DetectFileInfo(tt.fileName, tt.reportedType, tt.head)
			assert.Equal(t, tt.wantExt, info.Extension)
			assert.Equal(t, tt.wantMIME, info.MIMEType)
			assert.Equal(t, tt.wantCategory, info.Category)
		})
	}
}

func TestWithExtension(t *testing.T) {
	assert.Equal(t, "plan.pdf", WithExtension("plan.pdf", "pdf"))
	assert.Equal(t, "Plan.PDF", WithExtension("Plan.PDF", "pdf"))
	assert.Equal(t, "Ground floor.pdf", WithExtension("Ground floor", "pdf"))
	assert.Equal(t, "readme", WithExtension("readme", ""))
}

func TestParseEnums(t *testing.T) {
	status, err := ParseDocumentStatus("for_construction")
	assert.NoError(t, err)
	assert.Equal(t, StatusForConstruction, status)

	status, err = ParseDocumentStatus("")
	assert.NoError(t, err)
	assert.Equal(t, StatusForInformation, status)

	_, err = ParseDocumentStatus("approved")
	assert.Error(t, err)

	scope, err := ParseVisibilityScope("Private")
	assert.NoError(t, err)
	assert.Equal(t, VisibilityPrivate, scope)

	_, err = ParseVisibilityScope("public")
	assert.Error(t, err)

	cat, err := ParseCategory("")
	assert.NoError(t, err)
	assert.Equal(t, CategoryGeneral, cat)

	_, err = ParseCategory("misc")
	assert.Error(t, err)

	role, err := ParseMemberRole("ADMIN")
	assert.NoError(t, err)
	assert.True(t, role.CanManage())
	assert.False(t, RoleMember.CanManage())
}
