// Package lifecycle holds process lifecycle defaults shared by the servers.
package lifecycle

import "time"

// DefaultTimeout bounds graceful startup and shutdown of long-lived
// components such as HTTP listeners and publisher clients.
const DefaultTimeout = 15 * time.Second
