package activities

// ErrTypeNoCredentials tags the application error raised when the
// credential pool is empty or fully deactivated.
const ErrTypeNoCredentials = "NoCredentials"

type ProcessBatchInput struct {
	Batch int `json:"batch"`
}
