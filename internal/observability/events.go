package observability

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// ConnEventPayload describes a connection lifecycle event.
type ConnEventPayload struct {
	ConnID     string `json:"conn_id"`
	UserID     string `json:"user_id,omitempty"`
	IP         string `json:"ip"`
	Event      string `json:"event"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}

// PersistenceEventPayload reports a failed gateway write to the operator side.
type PersistenceEventPayload struct {
	Operation string `json:"operation"`
	MessageID string `json:"message_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Reason    string `json:"reason"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
