package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
)

// Watch subscribes to the relay feed at url and publishes every received
// response on bus until ctx is cancelled or the relay closes the stream.
func Watch(ctx context.Context, url string, bus *Bus) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dialing feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	slog.Info("watching feed", "url", url)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("reading feed: %w", err)
		}

		if err := bus.PublishJSON(data); err != nil {
			slog.Warn("ignoring malformed feed message", "error", err)
		}
	}
}
