// Package mailbox adapts IMAP servers to the mailbox session port.
package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	appmailbox "github.com/ledgerdocs/backend/internal/application/mailbox"
)

// IMAPDialer opens TLS IMAP sessions
type IMAPDialer struct {
	logger *zap.Logger
}

// NewIMAPDialer creates a dialer for IMAP-over-TLS connections
func NewIMAPDialer(logger *zap.Logger) *IMAPDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IMAPDialer{logger: logger}
}

// Dial connects, authenticates and returns a live session
func (d *IMAPDialer) Dial(ctx context.Context, host string, port int, username, password string) (appmailbox.MailboxSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	client, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{ServerName: host},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	if err := client.Login(username, password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("authenticating %s: %w", username, err)
	}

	return &imapSession{client: client, logger: d.logger}, nil
}

type imapSession struct {
	client *imapclient.Client
	logger *zap.Logger
}

// FetchSince returns messages with a UID strictly greater than cursor,
// oldest first. An empty cursor is the connector's first run: only unread
// mail is picked up, not the folder's full history.
func (s *imapSession) FetchSince(ctx context.Context, folder, cursor string) ([]appmailbox.InboundMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selected, err := s.client.Select(folder, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting folder %q: %w", folder, err)
	}
	if selected.NumMessages == 0 {
		return nil, nil
	}

	var uids imap.UIDSet
	var after uint32
	if cursor == "" {
		data, err := s.client.UIDSearch(&imap.SearchCriteria{
			NotFlag: []imap.Flag{imap.FlagSeen},
		}, nil).Wait()
		if err != nil {
			return nil, fmt.Errorf("searching unseen in %q: %w", folder, err)
		}
		unseen := data.AllUIDs()
		if len(unseen) == 0 {
			return nil, nil
		}
		uids = imap.UIDSetNum(unseen...)
	} else {
		after, err = parseCursor(cursor)
		if err != nil {
			return nil, err
		}
		uids.AddRange(imap.UID(after+1), 0)
	}

	section := &imap.FetchItemBodySection{}
	fetched, err := s.client.Fetch(uids, &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching messages from %q: %w", folder, err)
	}

	messages := make([]appmailbox.InboundMessage, 0, len(fetched))
	for _, buf := range fetched {
		// "n:*" always matches the newest message even when n is past
		// it, so a fetch on an up-to-date cursor returns one stale row.
		if uint32(buf.UID) <= after {
			continue
		}

		raw := buf.FindBodySection(section)
		if raw == nil {
			s.logger.Warn("Message body missing from fetch response",
				zap.String("folder", folder),
				zap.Uint32("uid", uint32(buf.UID)))
			continue
		}

		msg := appmailbox.InboundMessage{
			Cursor: formatCursor(uint32(buf.UID)),
		}
		if buf.Envelope != nil {
			msg.MessageID = buf.Envelope.MessageID
			msg.Subject = buf.Envelope.Subject
			msg.ReceivedAt = buf.Envelope.Date
			if len(buf.Envelope.From) > 0 {
				msg.Sender = buf.Envelope.From[0].Addr()
			}
		}
		if msg.ReceivedAt.IsZero() {
			msg.ReceivedAt = buf.InternalDate
		}

		attachments, err := ExtractAttachments(raw)
		if err != nil {
			s.logger.Warn("Failed to parse message body",
				zap.String("folder", folder),
				zap.Uint32("uid", uint32(buf.UID)),
				zap.Error(err))
		}
		msg.Attachments = attachments

		messages = append(messages, msg)
	}

	return messages, nil
}

// parseCursor reads a stored UID cursor. A corrupt value fails the run
// instead of silently refetching the folder's history.
func parseCursor(cursor string) (uint32, error) {
	uid, err := strconv.ParseUint(cursor, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mailbox cursor %q: %w", cursor, err)
	}
	return uint32(uid), nil
}

func formatCursor(uid uint32) string {
	return strconv.FormatUint(uint64(uid), 10)
}

func (s *imapSession) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		return s.client.Close()
	}
	return s.client.Close()
}
