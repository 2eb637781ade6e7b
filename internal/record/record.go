package record

import "time"

// Record is a single parsed activity-log line
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Activity  string    `json:"activity"`
	Message   string    `json:"message"`
}

// Activity labels with special meaning to the detectors
const (
	ActivityLoginSuccess = "LOGIN_SUCCESS"
	ActivityLoginFailure = "LOGIN_FAILURE"
	ActivityLogout       = "LOGOUT"
	ActivityFileDelete   = "FILE_DELETE"
	ActivityFileUpload   = "FILE_UPLOAD"
)

// IsSorted reports whether records are non-decreasing by timestamp
func IsSorted(records []Record) bool {
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			return false
		}
	}
	return true
}
