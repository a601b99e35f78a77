package domain

import (
	"strings"
	"time"
)

// Application status pipeline. Transitions are free-form within the set;
// only membership is enforced.
const (
	StatusNew              = "New"
	StatusInProgress       = "InProgress"
	StatusInMentorship     = "InMentorship"
	StatusInPresentation   = "InPresentation"
	StatusInImplementation = "InImplementation"
	StatusCompleted        = "Completed"
)

// Statuses lists the pipeline in canonical order.
var Statuses = []string{
	StatusNew,
	StatusInProgress,
	StatusInMentorship,
	StatusInPresentation,
	StatusInImplementation,
	StatusCompleted,
}

// IsValidStatus reports whether s is a member of the fixed status set.
func IsValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// MinDescriptionWords is the minimum number of whitespace-delimited tokens
// required in an application description.
const MinDescriptionWords = 100

// MaxFiles caps the number of accepted attachments per submission.
// Only accepted files count toward the cap.
const MaxFiles = 5

// allowedExtensions are the attachment types accepted on submission,
// keyed without the leading dot.
var allowedExtensions = map[string]bool{
	"doc":  true,
	"docx": true,
	"mov":  true,
	"ppt":  true,
	"pptx": true,
	"pdf":  true,
	"txt":  true,
}

// FileExtension returns the lower-cased extension of name without the dot,
// or "" if name has none.
func FileExtension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// IsAllowedExtension reports whether the filename carries an accepted extension.
func IsAllowedExtension(name string) bool {
	return allowedExtensions[FileExtension(name)]
}

// WordCount counts whitespace-delimited tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Application is a submitted innovation proposal. UserID is nil for
// anonymous submissions; AssignedExpertID is nil while unassigned.
type Application struct {
	ID               int64        `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	AgeGroup         string       `json:"age_group"`
	Municipality     string       `json:"municipality"`
	PrototypeURL     string       `json:"prototype_url,omitempty"`
	Status           string       `json:"status"`
	CategoryID       int64        `json:"category_id"`
	UserID           *int64       `json:"user_id,omitempty"`
	AssignedExpertID *int64       `json:"assigned_expert_id,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	Files            []Attachment `json:"files,omitempty"`
	Notes            []Note       `json:"notes,omitempty"`
}

// Attachment is a stored upload belonging to an application.
type Attachment struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	BlobKey       string    `json:"-"`
	OriginalName  string    `json:"original_name"`
	FileType      string    `json:"file_type"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// Note is an append-only remark on an application.
type Note struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	UserID        int64     `json:"user_id"`
	Text          string    `json:"text"`
	Internal      bool      `json:"is_internal"`
	CreatedAt     time.Time `json:"created_at"`
}

// Draft carries the submission form fields.
type Draft struct {
	Title        string
	Description  string
	CategoryID   int64
	AgeGroup     string
	Municipality string
	PrototypeURL string
}

// FileResult reports per-file acceptance for a submission.
type FileResult struct {
	Name     string `json:"name"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}
