package models

// Wire shapes of /api/mailbox/messages/

type MailAttachmentDTO struct {
	ID          int64      `json:"id"`
	Filename    *string    `json:"filename"`
	ContentType *string    `json:"content_type"`
	Size        WireNumber `json:"size"`
	FileURL     *string    `json:"file_url"`
}

type MailMessageDTO struct {
	ID               int64               `json:"id"`
	Mailbox          *string             `json:"mailbox"`
	Subject          *string             `json:"subject"`
	FromEmail        *string             `json:"from_email"`
	ToEmails         *string             `json:"to_emails"`
	CcEmails         *string             `json:"cc_emails"`
	SentAt           *string             `json:"sent_at"`
	AttachmentsCount WireNumber          `json:"attachments_count"`
	BodyText         *string             `json:"body_text"`
	BodyHTML         *string             `json:"body_html"`
	Attachments      []MailAttachmentDTO `json:"attachments"`
}

type MailMessageListDTO struct {
	Count   WireNumber       `json:"count"`
	Results []MailMessageDTO `json:"results"`
}

type MailAttachment struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	FileURL     string `json:"fileUrl"`
}

type MailMessage struct {
	ID               int64            `json:"id"`
	Mailbox          string           `json:"mailbox"`
	Subject          string           `json:"subject"`
	FromEmail        string           `json:"fromEmail"`
	ToEmails         string           `json:"toEmails"`
	CcEmails         string           `json:"ccEmails"`
	SentAt           Date             `json:"sentAt"`
	AttachmentsCount int64            `json:"attachmentsCount"`
	BodyText         string           `json:"bodyText"`
	BodyHTML         string           `json:"bodyHtml"`
	Attachments      []MailAttachment `json:"attachments"`
}

type MailMessageList struct {
	Count   int64         `json:"count"`
	Results []MailMessage `json:"results"`
}
