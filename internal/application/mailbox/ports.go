package mailbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Attachment is one file pulled out of an inbound mail
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// InboundMessage is a mail fetched from a connector's folder. Cursor is the
// mailbox-native position marker of this message (IMAP UID); syncing stores
// the highest cursor it got past, including messages it failed on.
type InboundMessage struct {
	MessageID   string
	Sender      string
	Subject     string
	Cursor      string
	ReceivedAt  time.Time
	Attachments []Attachment
}

// MailboxSession is an open connection to one mailbox folder
type MailboxSession interface {
	// FetchSince returns all messages strictly after the given cursor,
	// oldest first. An empty cursor is a connector's first run and
	// yields only unread messages, not the folder's history.
	FetchSince(ctx context.Context, folder, cursor string) ([]InboundMessage, error)
	Close() error
}

// MailboxDialer opens mailbox sessions
type MailboxDialer interface {
	Dial(ctx context.Context, host string, port int, username, password string) (MailboxSession, error)
}

// Vault encrypts connector credentials at rest
type Vault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Locker provides cross-instance single-flight locks
type Locker interface {
	// Acquire takes the lock if free and reports whether it got it
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// SyncScheduler owns the per-connector polling jobs
type SyncScheduler interface {
	Schedule(connectorID uuid.UUID, interval time.Duration)
	Remove(connectorID uuid.UUID)
}
