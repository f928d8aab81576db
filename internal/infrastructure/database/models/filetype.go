package models

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// genericMIMETypes are values browsers send when they do not know the type
var genericMIMETypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
	"application/x-unknown":    true,
	"application/unknown":      true,
}

var extensionMIMETypes = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"heic": "image/heic",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"svg":  "image/svg+xml",
	"dwg":  "image/vnd.dwg",
	"dxf":  "image/vnd.dxf",
	"ifc":  "application/x-step",
	"rvt":  "application/vnd.autodesk.revit",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"csv":  "text/csv",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"txt":  "text/plain",
	"rtf":  "application/rtf",
	"zip":  "application/zip",
	"7z":   "application/x-7z-compressed",
}

var drawingExtensions = map[string]bool{"dwg": true, "dxf": true, "ifc": true, "rvt": true}

// FileInfo is the type information derived for an uploaded file
type FileInfo struct {
	Extension string
	MIMEType  string
	Category  FileCategory
}

// Extension returns the lower-case extension of name without the dot
func Extension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// WithExtension appends ext to name unless name already ends with it
func WithExtension(name, ext string) string {
	if ext == "" || strings.EqualFold(Extension(name), ext) {
		return name
	}
	return name + "." + ext
}

// DetectFileInfo derives extension, MIME type and file category for an upload.
// The reported MIME type is used only when it is not a generic placeholder.
// Extensionless files fall back to an image/* reported type, then to content sniffing.
func DetectFileInfo(name, reportedType string, head []byte) FileInfo {
	reportedType = strings.ToLower(strings.TrimSpace(reportedType))
	if i := strings.Index(reportedType, ";"); i >= 0 {
		reportedType = strings.TrimSpace(reportedType[:i])
	}

	ext := Extension(name)
	mimeType := ""
	if !genericMIMETypes[reportedType] {
		mimeType = reportedType
	}

	if ext == "" {
		switch {
		case strings.HasPrefix(mimeType, "image/"):
			ext = imageExtension(mimeType)
		case len(head) > 0:
			detected := mimetype.Detect(head)
			detectedType, _, _ := strings.Cut(detected.String(), ";")
			if mimeType == "" && detectedType != "application/octet-stream" {
				mimeType = detectedType
			}
			if strings.HasPrefix(detectedType, "image/") {
				ext = strings.TrimPrefix(detected.Extension(), ".")
			}
		}
	}

	if mimeType == "" {
		if known, ok := extensionMIMETypes[ext]; ok {
			mimeType = known
		} else {
			mimeType = "application/octet-stream"
		}
	}
	if ext == "" {
		ext = "bin"
	}

	return FileInfo{
		Extension: ext,
		MIMEType:  mimeType,
		Category:  categorize(ext, mimeType),
	}
}

func imageExtension(mimeType string) string {
	sub := strings.TrimPrefix(mimeType, "image/")
	switch sub {
	case "jpeg", "pjpeg":
		return "jpg"
	case "svg+xml":
		return "svg"
	case "":
		return "img"
	}
	return sub
}

func categorize(ext, mimeType string) FileCategory {
	switch {
	case drawingExtensions[ext]:
		return FileCategoryDrawing
	case mimeType == "application/pdf":
		return FileCategoryPDF
	case strings.HasPrefix(mimeType, "image/"):
		return FileCategoryImage
	case ext == "xls" || ext == "xlsx" || ext == "csv":
		return FileCategorySpreadsheet
	case ext == "doc" || ext == "docx" || ext == "txt" || ext == "rtf" || strings.HasPrefix(mimeType, "text/"):
		return FileCategoryDocument
	case ext == "zip" || ext == "7z":
		return FileCategoryArchive
	}
	return FileCategoryOther
}
