package mappers

import (
	"orderportal/server/internal/models"
)

const noSubject = "(bez predmeta)"

func MapMailMessage(dto models.MailMessageDTO) models.MailMessage {
	attachments := make([]models.MailAttachment, 0, len(dto.Attachments))
	for _, att := range dto.Attachments {
		attachments = append(attachments, models.MailAttachment{
			ID:          att.ID,
			Filename:    derefString(att.Filename),
			ContentType: derefString(att.ContentType),
			Size:        ParseCount(att.Size),
			FileURL:     derefString(att.FileURL),
		})
	}
	count := ParseCount(dto.AttachmentsCount)
	if !dto.AttachmentsCount.Present {
		count = int64(len(attachments))
	}
	return models.MailMessage{
		ID:               dto.ID,
		Mailbox:          derefString(dto.Mailbox),
		Subject:          stringOr(dto.Subject, noSubject),
		FromEmail:        derefString(dto.FromEmail),
		ToEmails:         derefString(dto.ToEmails),
		CcEmails:         derefString(dto.CcEmails),
		SentAt:           ParseDate(dto.SentAt),
		AttachmentsCount: count,
		BodyText:         derefString(dto.BodyText),
		BodyHTML:         derefString(dto.BodyHTML),
		Attachments:      attachments,
	}
}

func MapMailList(dto models.MailMessageListDTO) models.MailMessageList {
	items := make([]models.MailMessage, 0, len(dto.Results))
	for _, m := range dto.Results {
		items = append(items, MapMailMessage(m))
	}
	return models.MailMessageList{
		Count:   ParseCount(dto.Count),
		Results: items,
	}
}
