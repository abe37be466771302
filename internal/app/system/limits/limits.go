// internal/app/system/limits/limits.go
package limits

// Request body size limits for dashboard forms.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxActionForm is the maximum size of a filter, paging or row action
	// submission.
	MaxActionForm = 64 << 10 // 64 KB

	// MaxLoginForm is the maximum size of a sign-in submission.
	MaxLoginForm = 8 << 10 // 8 KB
)
