package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmailbox "github.com/ledgerdocs/backend/internal/application/mailbox"
)

var _ appmailbox.MailboxSession = (*imapSession)(nil)
var _ appmailbox.MailboxDialer = (*IMAPDialer)(nil)

func TestParseCursorRoundTrip(t *testing.T) {
	tests := []uint32{1, 7, 4294967295}

	for _, uid := range tests {
		parsed, err := parseCursor(formatCursor(uid))
		require.NoError(t, err)
		assert.Equal(t, uid, parsed)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, cursor := range []string{"", "abc", "-1", "4294967296", "7.5"} {
		_, err := parseCursor(cursor)
		assert.Error(t, err, "cursor %q", cursor)
	}
}
