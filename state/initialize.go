package state

import (
	"time"

	"go.uber.org/zap"
)

// newLocalEnv creates environment with values usable before configuration is
// loaded: nop logger keeps early command handlers safe.
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		Log:   zap.NewNop(),
		start: time.Now(),
	}
}
