package resumes

import "time"

// Resume is an uploaded resume owned by a user. The extracted plain text is
// stored alongside the metadata so analyses never re-parse the original file.
type Resume struct {
	ID          string
	UserID      string
	FileName    string
	ContentType string
	SizeBytes   int64
	RawText     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}
