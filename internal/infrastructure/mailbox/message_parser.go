package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	appmailbox "github.com/ledgerdocs/backend/internal/application/mailbox"
)

// ExtractAttachments walks a raw RFC 5322 message and collects every named
// part that carries a document. Unnamed parts are dropped regardless of
// disposition: inline text/html bodies are the mail itself, and a nameless
// attachment cannot take part in filename-based dedup.
func ExtractAttachments(raw []byte) ([]appmailbox.Attachment, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}

	var attachments []appmailbox.Attachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return attachments, fmt.Errorf("reading message part: %w", err)
		}

		var filename, ctype string
		switch header := part.Header.(type) {
		case *mail.AttachmentHeader:
			filename, _ = header.Filename()
			if t, _, err := header.ContentType(); err == nil {
				ctype = t
			}
		case *mail.InlineHeader:
			if t, params, err := header.ContentType(); err == nil {
				ctype = t
				filename = params["name"]
			}
		default:
			continue
		}
		// Unnamed parts carry no dedup identity and are never invoices.
		if filename == "" {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return attachments, fmt.Errorf("reading attachment body: %w", err)
		}
		if len(data) == 0 {
			continue
		}
		attachments = append(attachments, appmailbox.Attachment{
			Filename: safeFilename(filename),
			MimeType: normalizeMimeType(ctype, filename),
			Data:     data,
		})
	}

	return attachments, nil
}

// normalizeMimeType resolves generic octet-stream types from the filename
// extension so mime filtering can work against what the file actually is.
func normalizeMimeType(ctype, filename string) string {
	ctype = strings.ToLower(strings.TrimSpace(ctype))
	if ctype != "" && ctype != "application/octet-stream" {
		return ctype
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	if ctype == "" {
		return "application/octet-stream"
	}
	return ctype
}

// safeFilename strips any path components a hostile sender may have encoded
func safeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "attachment"
	}
	return name
}
