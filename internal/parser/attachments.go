package parser

import (
	gmail "google.golang.org/api/gmail/v1"
)

// extractAttachments collects attachment parts from the payload tree.
// Parts larger than the configured ceiling are dropped entirely. Base64
// data is retained only for parts at or below the inline limit; larger
// attachments keep metadata only and are fetched on demand.
func extractAttachments(payload *gmail.MessagePart, opts Options) []Attachment {
	maxSize := opts.maxAttachmentSize()
	inlineLimit := opts.inlineDataLimit()

	var attachments []Attachment
	walkParts(payload, func(part *gmail.MessagePart) {
		if part.Filename == "" || part.Body == nil {
			return
		}
		size := part.Body.Size
		if size > maxSize {
			return
		}

		att := Attachment{
			ID:       part.Body.AttachmentId,
			Filename: part.Filename,
			MimeType: part.MimeType,
			Size:     size,
		}
		if part.Body.Data != "" && size <= inlineLimit {
			att.Data = part.Body.Data
		}
		attachments = append(attachments, att)
	})

	return attachments
}
