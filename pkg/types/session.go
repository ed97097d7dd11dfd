package types

import "time"

// Hyperparameters holds the optional sampling knobs forwarded to the LM.
type Hyperparameters struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
}

// TodoItem is a single entry in a session's optional todo list.
type TodoItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Checked     bool   `json:"checked"`
}

// Reference is a file the prompt assembler may inline into the rendered
// prompt. It decays via TTL and can be disabled or pinned (persist).
type Reference struct {
	Path     string `json:"path"`
	TTL      *int   `json:"ttl"`
	Disabled bool   `json:"disabled"`
	Persist  bool   `json:"persist"`
}

// Active reports whether the reference should currently be inlined.
func (r Reference) Active() bool {
	if r.Disabled {
		return false
	}
	return r.TTL == nil || *r.TTL > 0
}

// Session is the full persisted state of one conversational thread.
type Session struct {
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	ParentID    string    `json:"parent_id,omitempty"`

	Purpose       string   `json:"purpose"`
	Background    string   `json:"background"`
	Roles         []string `json:"roles"`
	Procedure     string   `json:"procedure,omitempty"`

	MultiStepReasoningEnabled bool             `json:"multi_step_reasoning_enabled"`
	Hyperparameters           *Hyperparameters `json:"hyperparameters,omitempty"`

	Turns []Turn `json:"turns"`
	Pools []Turn `json:"pools"`

	References []Reference `json:"references"`
	Todos      []TodoItem  `json:"todos,omitempty"`
	Artifacts  []string    `json:"artifacts"`

	TokenCount               int `json:"token_count"`
	CachedContentTokenCount  int `json:"cached_content_token_count"`
	CumulativeTotalTokens    int `json:"cumulative_total_tokens"`
	CumulativeCachedTokens   int `json:"cumulative_cached_tokens"`

	CacheName       string `json:"cache_name,omitempty"`
	CachedTurnCount int    `json:"cached_turn_count"`
}

// IndexEntry is one row of the process-wide SessionIndex.
type IndexEntry struct {
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	Purpose       string    `json:"purpose,omitempty"`
}

// SessionIndex maps session_id to its index metadata.
type SessionIndex struct {
	Sessions map[string]IndexEntry `json:"sessions"`
}

func NewSessionIndex() *SessionIndex {
	return &SessionIndex{Sessions: make(map[string]IndexEntry)}
}
