package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FailureResponse is the JSON body returned when a track could not be delivered.
type FailureResponse struct {
	RunID       string           `json:"runId,omitempty"`
	TrackID     string           `json:"trackId"`
	Kind        string           `json:"kind"`
	Detail      string           `json:"detail,omitempty"`
	LastKind    string           `json:"lastKind,omitempty"`
	Disposition string           `json:"disposition"`
	FallbackURL string           `json:"fallbackUrl"`
	Attempts    []AttemptSummary `json:"attempts,omitempty"`
}

// AttemptSummary describes one acquisition attempt.
type AttemptSummary struct {
	Strategy   string `json:"strategy"`
	Tier       int    `json:"tier"`
	Number     int    `json:"number"`
	Kind       string `json:"kind,omitempty"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// ToolStatus reports availability of an external tool.
type ToolStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult mirrors a single preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DiagnosticsResponse wraps the advisory tool report.
type DiagnosticsResponse struct {
	Healthy bool          `json:"healthy"`
	Checks  []CheckResult `json:"checks"`
	Tools   []ToolStatus  `json:"tools"`
}

// HistoryEntry is one ledger row in transport form.
type HistoryEntry struct {
	RunID           string `json:"runId"`
	BatchID         string `json:"batchId,omitempty"`
	TrackID         string `json:"trackId"`
	Title           string `json:"title,omitempty"`
	Artist          string `json:"artist,omitempty"`
	Status          string `json:"status"`
	Disposition     string `json:"disposition"`
	ErrorKind       string `json:"errorKind,omitempty"`
	LastKind        string `json:"lastKind,omitempty"`
	Strategy        string `json:"strategy,omitempty"`
	Tier            int    `json:"tier,omitempty"`
	Attempts        int    `json:"attempts"`
	SizeBytes       int64  `json:"sizeBytes,omitempty"`
	RedirectService string `json:"redirectService,omitempty"`
	DurationMS      int64  `json:"durationMs"`
	FinishedAt      string `json:"finishedAt,omitempty"`
}

// HistoryResponse wraps recent ledger rows.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
