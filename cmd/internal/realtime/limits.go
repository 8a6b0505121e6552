package realtime

import "time"

// Security/performance limits.
const (
	// Max bytes per websocket frame read. Clients only send tiny control
	// frames; anything larger is hostile.
	maxFrameBytes = 4 << 10 // 4 KiB
)

const (
	// Heartbeat defaults (can be overridden by env in gateway.go).
	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Per-connection inbound rate limits (frames per window).
	rateLimitEvents = 30
	rateLimitWindow = 10 * time.Second
)
