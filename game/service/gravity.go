package service

import (
	"context"
	"time"
)

// DefaultFrameInterval is the gravity driver period, roughly one 60Hz frame
const DefaultFrameInterval = 16 * time.Millisecond

// RunGravityLoop advances every running session once per frame until ctx is
// cancelled. Each session's engine decides from its own clock whether a drop
// is due, so the frame rate only bounds the timing resolution.
func RunGravityLoop(ctx context.Context, svc GameService, frame time.Duration) {
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.AdvanceAll(ctx)
		}
	}
}
