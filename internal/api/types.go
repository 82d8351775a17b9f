package api

// FetchRequest is the body of POST /api/fetch.
type FetchRequest struct {
	URL        string `json:"url"`
	Format     string `json:"format,omitempty"`
	ProxyIndex *int   `json:"proxyIndex,omitempty"`
	ProxyURL   string `json:"proxyUrl,omitempty"`
	Rotate     string `json:"rotate,omitempty"`
}

// FetchResponse is returned by POST /api/fetch.
type FetchResponse struct {
	OK        bool   `json:"ok"`
	File      string `json:"file,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Raw       string `json:"raw,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
}

// CredentialStatus describes one configured credential bundle.
type CredentialStatus struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	Bytes  int64  `json:"bytes"`
	Lines  int    `json:"lines"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus identifies the serving daemon process.
type DaemonStatus struct {
	Running    bool   `json:"running"`
	PID        int    `json:"pid"`
	APIAddress string `json:"apiAddress,omitempty"`
	LockFile   string `json:"lockFile,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Daemon        *DaemonStatus      `json:"daemon,omitempty"`
	Credentials   []CredentialStatus `json:"credentials"`
	Routes        []string           `json:"routes"`
	Cursor        int                `json:"cursor"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	MaxConcurrent int                `json:"maxConcurrent,omitempty"`
	FailurePolicy string             `json:"failurePolicy,omitempty"`
}

// ErrorResponse is the body of transport-level errors (auth, routing).
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
