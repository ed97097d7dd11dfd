package context

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentpipe/orchestrator/pkg/lockfile"
	"github.com/agentpipe/orchestrator/pkg/types"
)

// defaultCacheTTL is the lifetime a freshly created cache is registered
// with when the caller doesn't override it.
const defaultCacheTTL = 3600 * time.Second

// TokenCountSummary is the per-iteration accounting the agent loop hands
// to the cache manager: tokens already baked into the existing cache,
// tokens the full current prompt would cost, and tokens sitting in turns
// added since the cache was last built.
type TokenCountSummary struct {
	CachedTokens        int
	CurrentPromptTokens int
	BufferedTokens      int
}

// CacheBackend creates and deletes a server-side prompt cache keyed by an
// opaque name. Implementations wrap whatever facility the configured LM
// provider offers; NoopCacheBackend is used when the provider has none,
// in which case UpdateIfNeeded always degrades to sending buffered
// history uncached.
type CacheBackend interface {
	CreateCache(ctx context.Context, content string, ttl time.Duration) (name string, err error)
	DeleteCache(ctx context.Context, name string) error
}

// NoopCacheBackend always fails cache creation.
type NoopCacheBackend struct{}

func (NoopCacheBackend) CreateCache(ctx context.Context, content string, ttl time.Duration) (string, error) {
	return "", fmt.Errorf("context: no cache backend configured")
}

func (NoopCacheBackend) DeleteCache(ctx context.Context, name string) error { return nil }

// StaticPayloadFunc renders the stable prefix of a session — goals,
// roles, references, and every turn before cutoff — into the content a
// cache backend bakes in. The agent package supplies the real
// implementation backed by pkg/prompt; DefaultStaticPayload is a
// plain-text fallback good enough for tests and simple backends.
type StaticPayloadFunc func(sess *types.Session, fullHistory []types.Turn, cutoff int) string

// DefaultStaticPayload concatenates the session's goal/role text with a
// plain-text rendering of every turn before cutoff.
func DefaultStaticPayload(sess *types.Session, fullHistory []types.Turn, cutoff int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Purpose: %s\nBackground: %s\nRoles: %s\n\n", sess.Purpose, sess.Background, strings.Join(sess.Roles, ", "))
	for i := 0; i < cutoff && i < len(fullHistory); i++ {
		sb.WriteString(RenderTurnText(fullHistory[i]))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderTurnText is a minimal plain-text rendering of one turn, shared by
// the cache manager's default static payload, the compactor's
// summarization prompt, and the agent package's token estimation.
func RenderTurnText(t types.Turn) string {
	switch t.Type {
	case types.TurnUserTask:
		if t.UserTask != nil {
			return "user_task: " + t.UserTask.Instruction
		}
	case types.TurnModelResponse:
		if t.ModelResponse != nil {
			return "model_response: " + t.ModelResponse.Content
		}
	case types.TurnFunctionCalling:
		if t.FunctionCalling != nil {
			return "function_calling: " + t.FunctionCalling.Response
		}
	case types.TurnToolResponse:
		if t.ToolResponse != nil {
			return fmt.Sprintf("tool_response(%s): %s", t.ToolResponse.Name, t.ToolResponse.Response.Message)
		}
	case types.TurnCompressedHistory:
		if t.CompressedHistory != nil {
			return "compressed_history: " + t.CompressedHistory.Content
		}
	}
	return ""
}

// cacheRegistryEntry is one row of .cache_registry.json.
type cacheRegistryEntry struct {
	Name       string    `json:"name"`
	SessionID  string    `json:"session_id"`
	ExpireTime time.Time `json:"expire_time"`
}

type cacheRegistry map[string]cacheRegistryEntry

// CacheManager implements the §4.G decision rule: rebuild the backend's
// cache when buffered tokens exceed the threshold, reuse the existing
// one when there's nothing new worth baking in, or skip caching
// entirely for a session that has never needed one.
type CacheManager struct {
	Backend       CacheBackend
	RegistryPath  string // e.g. session.Store.CacheRegistryPath()
	TTL           time.Duration
	StaticPayload StaticPayloadFunc

	// CurrentCachedTurnCount mirrors session.CachedTurnCount across calls
	// within one process lifetime; grounded on the reference manager's
	// on-instance bookkeeping of the same name.
	CurrentCachedTurnCount int
}

// NewCacheManager builds a CacheManager whose registry file lives at
// registryPath (see session.Store.CacheRegistryPath). A nil backend
// falls back to NoopCacheBackend.
func NewCacheManager(backend CacheBackend, registryPath string) *CacheManager {
	if backend == nil {
		backend = NoopCacheBackend{}
	}
	return &CacheManager{
		Backend:       backend,
		RegistryPath:  registryPath,
		TTL:           defaultCacheTTL,
		StaticPayload: DefaultStaticPayload,
	}
}

// UpdateIfNeeded applies the §4.G decision rule and returns the (possibly
// unchanged) cache name, the turn count now baked into that cache, and
// the buffered history the caller must still send to the LM fresh
// alongside the cache reference.
//
// buffered_history is always full_history[cached_turn_count:], computed
// against the session's cached_turn_count as it stood at the start of
// this call — a rebuild changes what's baked into the cache for the
// *next* iteration, it never retroactively changes what this iteration
// sends fresh.
func (m *CacheManager) UpdateIfNeeded(
	ctx context.Context,
	sess *types.Session,
	fullHistory []types.Turn,
	summary TokenCountSummary,
	threshold int,
) (cacheName string, cachedTurnCount int, bufferedHistory []types.Turn) {
	m.CurrentCachedTurnCount = sess.CachedTurnCount

	cutoff := sess.CachedTurnCount
	if cutoff > len(fullHistory) {
		cutoff = len(fullHistory)
	}
	if cutoff < 0 {
		cutoff = 0
	}
	bufferedHistory = append([]types.Turn(nil), fullHistory[cutoff:]...)

	if summary.BufferedTokens <= threshold {
		if sess.CachedTurnCount > 0 {
			return sess.CacheName, sess.CachedTurnCount, bufferedHistory
		}
		return "", 0, bufferedHistory
	}

	// Rebuild. Delete the existing cache best-effort; a failure here must
	// not block creating the replacement.
	if sess.CacheName != "" {
		_ = m.Backend.DeleteCache(ctx, sess.CacheName)
	}

	newCachedTurnCount := len(fullHistory) - 1
	if newCachedTurnCount < 0 {
		newCachedTurnCount = 0
	}
	content := m.StaticPayload(sess, fullHistory, newCachedTurnCount)

	name, err := m.Backend.CreateCache(ctx, content, m.TTL)
	if err != nil || name == "" {
		// Creation failed: leave the session's cache state unchanged.
		return "", sess.CachedTurnCount, bufferedHistory
	}

	m.CurrentCachedTurnCount = newCachedTurnCount
	m.updateRegistry(sess.SessionID, name, time.Now().Add(m.TTL))
	return name, newCachedTurnCount, bufferedHistory
}

// updateRegistry persists the cache name for sessionID to RegistryPath,
// keyed by session ID, so a later process can discover a still-live
// cache without replaying the whole rebuild decision.
func (m *CacheManager) updateRegistry(sessionID, cacheName string, expireTime time.Time) {
	if m.RegistryPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.RegistryPath), 0o755); err != nil {
		return
	}
	_, _ = lockfile.ReadModifyWrite(m.RegistryPath, cacheRegistry{}, func(reg *cacheRegistry) struct{} {
		if *reg == nil {
			*reg = cacheRegistry{}
		}
		(*reg)[sessionID] = cacheRegistryEntry{Name: cacheName, SessionID: sessionID, ExpireTime: expireTime}
		return struct{}{}
	})
}
