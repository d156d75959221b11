package models

// BuildAgentRequest is the payload of build-agent and update-agent. All
// source lists are optional; ingestion runs asynchronously after the
// response returns.
type BuildAgentRequest struct {
	AgentID     string            `json:"agent_id,omitempty"`
	BaseURL     string            `json:"base_url,omitempty"`
	Links       []string          `json:"links,omitempty"`
	Files       []FileDescriptor  `json:"files,omitempty"`
	CustomTexts []CustomTextInput `json:"custom_texts,omitempty"`
	QAPairs     []QAPairInput     `json:"qa_pairs,omitempty"`
}

// BuildAgentResponse acknowledges that ingestion has been scheduled.
type BuildAgentResponse struct {
	Success bool   `json:"success"`
	AgentID string `json:"agent_id"`
	Message string `json:"message,omitempty"`
}

// QueryAgentRequest is the payload of query-agent.
type QueryAgentRequest struct {
	AgentID          string         `json:"agent_id"`
	ChatSessionID    string         `json:"chat_session_id,omitempty"`
	Message          string         `json:"message"`
	Stream           *bool          `json:"stream,omitempty"`
	AdditionalParams map[string]any `json:"additional_params,omitempty"`
}

// RotateConversationRequest starts a fresh conversation thread within an
// existing session.
type RotateConversationRequest struct {
	AgentID       string `json:"agent_id"`
	ChatSessionID string `json:"chat_session_id"`
}

type RotateConversationResponse struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversation_id"`
}

// ListSourcesRequest drives the cursor-paginated source listings. Cursor is
// the opaque id of the last row from the previous page.
type ListSourcesRequest struct {
	AgentID      string `json:"agent_id"`
	Limit        int    `json:"limit,omitempty"`
	Cursor       string `json:"cursor,omitempty"`
	IncludeCount bool   `json:"include_count,omitempty"`
}

// SourcePage is one page of a paginated listing. TotalCount is only set when
// the request asked for it.
type SourcePage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
	TotalCount *int64 `json:"total_count,omitempty"`
}

// RemoveSourcesRequest batch-deletes knowledge sources; the delete cascades
// to both vector collections.
type RemoveSourcesRequest struct {
	AgentID string   `json:"agent_id"`
	Sources []string `json:"sources"`
}

type RemoveSourcesResponse struct {
	Success bool     `json:"success"`
	Removed int64    `json:"removed"`
	Errors  []string `json:"errors,omitempty"`
}

// PresignedURLRequest mints upload URLs for agent files.
type PresignedURLRequest struct {
	AgentID   string   `json:"agent_id"`
	FileNames []string `json:"file_names"`
	Folder    string   `json:"folder,omitempty"`
}

// PresignedUpload is one minted upload slot.
type PresignedUpload struct {
	FileName  string `json:"file_name"`
	FileKey   string `json:"file_key"`
	UploadURL string `json:"upload_url"`
	CDNURL    string `json:"cdn_url,omitempty"`
}

// PingURLRequest probes a URL for reachability.
type PingURLRequest struct {
	URL string `json:"url"`
}

type PingURLResponse struct {
	Success       bool   `json:"success"`
	URL           string `json:"url"`
	NormalizedURL string `json:"normalized_url,omitempty"`
	StatusCode    int    `json:"status_code,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ExtractLinksRequest renders a page and returns its filtered outbound links.
type ExtractLinksRequest struct {
	URL string `json:"url"`
}

type ExtractLinksResponse struct {
	Success bool     `json:"success"`
	URL     string   `json:"url"`
	Hrefs   []string `json:"hrefs"`
	Count   int      `json:"count"`
}

// ErrorResponse is the uniform failure body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
