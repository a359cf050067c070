package models

// UploadedImage describes a stored upload.
type UploadedImage struct {
	FieldName    string `json:"fieldname"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Destination  string `json:"destination"`
	FileName     string `json:"filename"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}
