package apimodels

import (
	"encoding/json"

	"github.com/mattn/go-nulltype"
)

// CallResponse answers a call made over NATS. HTTP callers get the result
// itself or an {"error": ...} body.
type CallResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Status int             `json:"status"`
}

type GETStateResponse struct {
	Initialized              bool               `json:"initialized"`
	Ready                    bool               `json:"ready"`
	EventListenersSetUp      bool               `json:"event_listeners_set_up"`
	PersistentStorageEnabled bool               `json:"persistent_storage_enabled"`
	Network                  string             `json:"network"`
	APIBaseURL               string             `json:"api_base_url"`
	TonAPIKeySet             bool               `json:"ton_api_key_set"`
	PendingCalls             int                `json:"pending_calls"`
	BrowserSessions          int                `json:"browser_sessions"`
	EngineAttached           nulltype.NullBool  `json:"engine_attached"`
	EngineAttachments        nulltype.NullInt64 `json:"engine_attachments"`
}

type GETBrowserSessionsResponse struct {
	Sessions []string `json:"sessions"`
}
