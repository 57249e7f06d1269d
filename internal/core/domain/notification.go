package domain

type NotificationType string

const (
	NotifyUpload           NotificationType = "upload"
	NotifyOCRComplete      NotificationType = "ocrComplete"
	NotifyAnalysisComplete NotificationType = "analysisComplete"
	NotifyError            NotificationType = "error"
)

// NotificationEvent is the context handed to the notification capability.
// Delivery is best-effort: failures never affect document state.
type NotificationEvent struct {
	Type         NotificationType
	DocumentName string
	Message      string
}
