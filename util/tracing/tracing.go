package tracing

// Context identifies a single request as it moves through handlers and helpers.
type Context struct {
	RequestID     string `json:"request_id"`
	RequestSource string `json:"request_source"`
}

func (c Context) String() string {
	return "request_id=" + c.RequestID + " source=" + c.RequestSource
}
