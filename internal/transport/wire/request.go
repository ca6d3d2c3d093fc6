package wire

// IndexRequest carries entities to index. TenantID is set on NATS; HTTP takes it from the path.
type IndexRequest struct {
	TenantID string   `json:"tenant_id,omitempty"`
	Entities []Entity `json:"entities"`
}

// SearchRequest is a similarity or unified query.
type SearchRequest struct {
	Query  string `json:"query"`
	TopK   int    `json:"top_k,omitempty"`
	Rerank bool   `json:"rerank,omitempty"`
}

// DeleteRequest removes a tenant's points by entity keys or by filter.
type DeleteRequest struct {
	TenantID string   `json:"tenant_id,omitempty"`
	Kind     string   `json:"kind,omitempty"`
	Keys     []string `json:"keys,omitempty"`
	Filter   *Filter  `json:"filter,omitempty"`
}

// DeleteResponse acknowledges a delete.
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// ErrorReply answers a message that could not be processed at all.
type ErrorReply struct {
	Error string `json:"error"`
}
