package constants

// Centralized constants for headers, env keys and routes.
const (
	// Environment variable keys read before the config file is loaded.
	EnvConfigPath = "ARENA_CONFIG"

	// HTTP headers and content types
	HeaderContentType = "Content-Type"
	// HeaderPlayerID carries the caller identity set by the outer
	// authenticated layer.
	HeaderPlayerID = "X-Player-ID"

	ContentTypeJSON = "application/json"

	CacheControlHeader  = "Cache-Control"
	CacheControlNoCache = "no-cache, no-store, must-revalidate"

	// Gin context keys
	ContextKeyPlayerID = "playerID"
)

// Routes used by the backend router
const (
	RouteAPIPrefix    = "/api"
	RouteHealth       = "/healthz"
	RouteVersion      = "/version"
	RouteCards        = "/cards"
	RouteMatches      = "/matches"
	RouteMatchByID    = "/matches/:matchID"
	RouteMatchActions = "/matches/:matchID/actions"
	RouteMatchEnd     = "/matches/:matchID/end"
	RouteMatchWS      = "/matches/:matchID/ws"

	ParamMatchID = "matchID"
)

// Common JSON response keys
const (
	JSONKeyError   = "error"
	JSONKeyMessage = "message"
	JSONKeyDetails = "details"
	JSONKeyStatus  = "status"
	JSONKeyState   = "state"
	JSONKeyResult  = "result"
)

// Common error messages used across API handlers
const (
	ErrInvalidRequest      = "Invalid request"
	ErrMatchNotFound       = "Match not found"
	ErrPlayerIDRequired    = "X-Player-ID header is required"
	ErrPlayerNotInMatch    = "Player not in this match"
	ErrFailedCreateMatch   = "Failed to create match"
	ErrFailedLoadMatch     = "Failed to load match"
	ErrFailedEndMatch      = "Failed to end match"
	ErrFailedStoreAction   = "Failed to store action"
	ErrMatchUnavailable    = "Match is in error state"
	ErrStateUpdatedByOther = "State was updated by another process"
	ErrTooManyActions      = "Too many queued actions"
	ErrWebsocketUpgrade    = "Failed to open websocket"
)

// Logging field names
const (
	LogFieldMatchID  = "match_id"
	LogFieldPlayerID = "player_id"
	LogFieldSide     = "side"
	LogFieldTurn     = "turn"
	LogFieldVersion  = "version"
	LogFieldAction   = "action"
	LogFieldAttempt  = "attempt"
	LogFieldReason   = "reason"
	LogFieldAddr     = "addr"
	LogFieldDriver   = "driver"
	LogFieldPath     = "path"
)
