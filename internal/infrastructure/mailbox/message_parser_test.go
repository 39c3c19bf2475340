package mailbox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRawMessage(t *testing.T, parts ...string) []byte {
	t.Helper()
	header := strings.Join([]string{
		"From: billing@acme.example <billing@acme.example>",
		"To: invoices@ledgerdocs.example",
		"Subject: Invoice 2026-0042",
		"Message-ID: <msg-42@acme.example>",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="frontier"`,
		"",
		"",
	}, "\r\n")

	var b strings.Builder
	b.WriteString(header)
	for _, p := range parts {
		b.WriteString("--frontier\r\n")
		b.WriteString(p)
		b.WriteString("\r\n")
	}
	b.WriteString("--frontier--\r\n")
	return []byte(b.String())
}

func textPart(body string) string {
	return "Content-Type: text/plain; charset=utf-8\r\n\r\n" + body
}

func attachmentPart(filename, ctype string, data []byte) string {
	return strings.Join([]string{
		"Content-Type: " + ctype + `; name="` + filename + `"`,
		"Content-Transfer-Encoding: base64",
		`Content-Disposition: attachment; filename="` + filename + `"`,
		"",
		base64.StdEncoding.EncodeToString(data),
	}, "\r\n")
}

func TestExtractAttachmentsPDF(t *testing.T) {
	pdf := []byte("%PDF-1.7 fake invoice body")
	raw := buildRawMessage(t,
		textPart("Please find our invoice attached.\r\n"),
		attachmentPart("invoice-2026-0042.pdf", "application/pdf", pdf),
	)

	attachments, err := ExtractAttachments(raw)
	require.NoError(t, err)
	require.Len(t, attachments, 1)

	assert.Equal(t, "invoice-2026-0042.pdf", attachments[0].Filename)
	assert.Equal(t, "application/pdf", attachments[0].MimeType)
	assert.Equal(t, pdf, attachments[0].Data)
}

func TestExtractAttachmentsSkipsBodyText(t *testing.T) {
	raw := buildRawMessage(t, textPart("No attachment here.\r\n"))

	attachments, err := ExtractAttachments(raw)
	require.NoError(t, err)
	assert.Empty(t, attachments)
}

func TestExtractAttachmentsMultiple(t *testing.T) {
	raw := buildRawMessage(t,
		textPart("Two documents attached.\r\n"),
		attachmentPart("invoice.pdf", "application/pdf", []byte("%PDF-1.7 one")),
		attachmentPart("timesheet.xml", "application/xml", []byte("<invoice/>")),
	)

	attachments, err := ExtractAttachments(raw)
	require.NoError(t, err)
	require.Len(t, attachments, 2)
	assert.Equal(t, "invoice.pdf", attachments[0].Filename)
	assert.Equal(t, "timesheet.xml", attachments[1].Filename)
}

func TestExtractAttachmentsOctetStreamResolvedByExtension(t *testing.T) {
	raw := buildRawMessage(t,
		attachmentPart("scan.pdf", "application/octet-stream", []byte("%PDF-1.4 scanned")),
	)

	attachments, err := ExtractAttachments(raw)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "application/pdf", attachments[0].MimeType)
}

func TestExtractAttachmentsNamedInlinePart(t *testing.T) {
	// Some senders mark the invoice inline instead of as an attachment.
	inline := strings.Join([]string{
		`Content-Type: application/pdf; name="inline-invoice.pdf"`,
		"Content-Transfer-Encoding: base64",
		"Content-Disposition: inline",
		"",
		base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 inline")),
	}, "\r\n")
	raw := buildRawMessage(t, textPart("See inline.\r\n"), inline)

	attachments, err := ExtractAttachments(raw)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "inline-invoice.pdf", attachments[0].Filename)
}

func TestExtractAttachmentsStripsPathTraversal(t *testing.T) {
	raw := buildRawMessage(t,
		attachmentPart("../../etc/passwd.pdf", "application/pdf", []byte("%PDF-1.7 x")),
	)

	attachments, err := ExtractAttachments(raw)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "passwd.pdf", attachments[0].Filename)
}

func TestExtractAttachmentsSkipsUnnamedParts(t *testing.T) {
	unnamed := strings.Join([]string{
		"Content-Type: application/pdf",
		"Content-Transfer-Encoding: base64",
		"Content-Disposition: attachment",
		"",
		base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 nameless one")),
	}, "\r\n")
	alsoUnnamed := strings.Join([]string{
		"Content-Type: application/pdf",
		"Content-Transfer-Encoding: base64",
		"Content-Disposition: attachment",
		"",
		base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 nameless two")),
	}, "\r\n")
	raw := buildRawMessage(t,
		unnamed,
		alsoUnnamed,
		attachmentPart("named.pdf", "application/pdf", []byte("%PDF-1.7 named")),
	)

	// Two unnamed parts would collapse into one dedup key; only the
	// named one survives.
	attachments, err := ExtractAttachments(raw)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "named.pdf", attachments[0].Filename)
}

func TestExtractAttachmentsGarbage(t *testing.T) {
	_, err := ExtractAttachments([]byte("not a mail message"))
	// go-message treats a headerless blob as an empty header plus body,
	// so this must not panic either way.
	_ = err
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "a.pdf", safeFilename(`C:\Users\x\a.pdf`))
	assert.Equal(t, "a.pdf", safeFilename("/tmp/a.pdf"))
	assert.Equal(t, "attachment", safeFilename(""))
}
