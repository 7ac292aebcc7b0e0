package resumes

import "time"

// Response is the outward-facing representation of a resume.
type Response struct {
	ResumeID    string    `json:"resumeId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

func toResponse(resume Resume) Response {
	return Response{
		ResumeID:    resume.ID,
		FileName:    resume.FileName,
		ContentType: resume.ContentType,
		SizeBytes:   resume.SizeBytes,
		UploadedAt:  resume.CreatedAt,
	}
}
