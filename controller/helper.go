package controller

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/billingcat/timetrack/invoice"

	"github.com/labstack/echo/v4"
	"github.com/mailjet/mailjet-apiv3-go"
)

// requestLogger returns the request-scoped logger, or the default one when
// the middleware did not run (tests).
func requestLogger(c echo.Context) *slog.Logger {
	if l, ok := c.Get("logger").(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func (ctrl *controller) sendEmail(to string, subject string, body string, attachments *mailjet.AttachmentsV31) error {
	// when in production, send real email, else just log to console
	if ctrl.model.Config.Mode == "production" {
		return ctrl.sendRealEmail(to, subject, body, attachments)
	}
	fmt.Println("Sending email to", to, "with subject", subject, "and body", body)
	return nil
}

func (ctrl *controller) sendRealEmail(to string, subject string, body string, attachments *mailjet.AttachmentsV31) error {
	mj := mailjet.NewMailjetClient(ctrl.model.Config.MailAPIKey, ctrl.model.Config.MailSecret)

	messagesInfo := []mailjet.InfoMessagesV31{
		{
			From: &mailjet.RecipientV31{
				Email: "app@timetrack.example",
				Name:  "timetrack app",
			},
			To: &mailjet.RecipientsV31{
				mailjet.RecipientV31{
					Email: to,
				},
			},
			Subject:     subject,
			TextPart:    body,
			Attachments: attachments,
		},
	}

	messages := mailjet.MessagesV31{Info: messagesInfo}
	if _, err := mj.SendMailV31(&messages); err != nil {
		return ErrInvalid(err, "Fehler beim Senden der E-Mail")
	}
	return nil
}

// invoiceMailListener sends a copy of every created invoice to the
// configured address. It runs as a post-render listener, so a mail failure
// never breaks invoice creation.
func (ctrl *controller) invoiceMailListener(to string, logger *slog.Logger) invoice.PostRenderListener {
	return func(ev invoice.PostRenderEvent) {
		if ev.Response == nil {
			return
		}
		number, err := ev.Model.InvoiceNumber()
		if err != nil {
			number = ev.Response.Filename
		}
		attachments := &mailjet.AttachmentsV31{
			mailjet.AttachmentV31{
				ContentType:   ev.Response.ContentType,
				Filename:      ev.Response.Filename,
				Base64Content: base64.StdEncoding.EncodeToString(ev.Response.Body),
			},
		}
		body := fmt.Sprintf("Die Rechnung %s wurde erstellt. Eine Kopie liegt im Anhang.", number)
		if err := ctrl.sendEmail(to, "Rechnung "+number, body, attachments); err != nil {
			logger.Error("cannot mail invoice copy", "invoice", number, "error", err)
		}
	}
}
