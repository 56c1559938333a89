package domain

// UpdateNotice is the model-update notification document. It is produced by
// the admin trigger and delivered at-least-once over the notification
// channel; reprocessing the same or an older notice is a safe no-op thanks
// to the coordinator's monotonicity guard.
type UpdateNotice struct {
	Filename  string `json:"filename"`
	CreatedAt string `json:"createdAt"`
}

// Standard topic names for the update pipeline.
const (
	TopicModelUpdate = "kestrel.model.update"
)
