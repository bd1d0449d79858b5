package services

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// InviteToGroup runs in a goroutine behind an already-sent HTTP response, so
// the log is the only place its failures can show up.
func TestInviteToGroupLogsFailures(t *testing.T) {
	t.Run("MissingContactIsLoggedNotDropped", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		svc := NewInvitationService(nil, logger, nil)

		svc.InviteToGroup(context.Background(), uuid.New(), uuid.New(), "", "")

		assert.Contains(t, buf.String(), `"level":"WARN"`)
		assert.Contains(t, buf.String(), "no email or phone")
	})
}
