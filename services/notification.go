package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"billsplit-backend/config"
	"billsplit-backend/models"
)

const notificationWorkers = 8

// NotificationService delivers push and email notifications. Delivery runs
// on a worker pool so callers never block on FCM or SendGrid; failures are
// logged and dropped. Push and email are each optional: without Firebase
// credentials or a SendGrid key the corresponding channel is disabled.
type NotificationService struct {
	db      *gorm.DB
	logger  *slog.Logger
	pool    *ants.Pool
	fcm     *messaging.Client
	mail    *sendgrid.Client
	from    string
	appName string
	appURL  string
}

func NewNotificationService(ctx context.Context, db *gorm.DB, cfg *config.Config, logger *slog.Logger) *NotificationService {
	svc := &NotificationService{
		db:      db,
		logger:  logger,
		from:    cfg.SendGridFrom,
		appName: cfg.AppName,
		appURL:  cfg.AppURL,
	}

	pool, err := ants.NewPool(notificationWorkers)
	if err != nil {
		logger.Warn("notification pool unavailable, falling back to goroutines", "error", err)
	} else {
		svc.pool = pool
	}

	if cfg.FirebaseCredPath != "" {
		app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.FirebaseCredPath))
		if err != nil {
			logger.Warn("firebase unavailable, push notifications disabled", "error", err)
		} else if client, err := app.Messaging(ctx); err != nil {
			logger.Warn("firebase messaging unavailable, push notifications disabled", "error", err)
		} else {
			svc.fcm = client
		}
	}

	if cfg.SendGridAPIKey != "" {
		svc.mail = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	} else {
		logger.Warn("SendGrid API key not set, email notifications disabled")
	}

	return svc
}

// Close drains the worker pool. Call on shutdown.
func (ns *NotificationService) Close() {
	if ns.pool != nil {
		ns.pool.Release()
	}
}

func (ns *NotificationService) submit(task func()) {
	if ns.pool == nil {
		go task()
		return
	}
	if err := ns.pool.Submit(task); err != nil {
		ns.logger.Warn("notification task rejected", "error", err)
	}
}

func (ns *NotificationService) sendPush(userID uuid.UUID, title, body string, data map[string]string) {
	if ns.fcm == nil {
		return
	}

	var user models.User
	if err := ns.db.First(&user, userID).Error; err != nil || user.FCMToken == "" {
		return
	}

	msg := &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := ns.fcm.Send(context.Background(), msg); err != nil {
		ns.logger.Warn("push notification failed", "user_id", userID, "error", err)
	}
}

func (ns *NotificationService) sendEmail(toEmail, toName, subject, htmlBody string) {
	if ns.mail == nil || toEmail == "" {
		return
	}

	from := mail.NewEmail(ns.appName, ns.from)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	resp, err := ns.mail.Send(message)
	if err != nil {
		ns.logger.Warn("email send failed", "to", toEmail, "error", err)
		return
	}
	if resp.StatusCode >= 300 {
		ns.logger.Warn("email rejected", "to", toEmail, "status", resp.StatusCode)
	}
}

// NotifyBillAdded tells every non-payer participant about their new share.
func (ns *NotificationService) NotifyBillAdded(bill models.Bill, shares []models.Share, payer models.User) {
	ns.submit(func() {
		for _, share := range shares {
			if share.UserID == bill.PaidBy {
				continue
			}

			var user models.User
			if err := ns.db.First(&user, share.UserID).Error; err != nil {
				continue
			}

			title := fmt.Sprintf("%s added a bill", payer.Name)
			body := fmt.Sprintf("You owe %s %.2f for \"%s\"", bill.Currency, share.Amount, bill.Title)

			ns.sendPush(user.ID, title, body, map[string]string{
				"type":    "bill_added",
				"bill_id": bill.ID.String(),
			})

			htmlBody := buildBillEmailHTML(payer.Name, user.Name, bill.Title, bill.TotalAmount, share.Amount, bill.Currency)
			ns.sendEmail(user.Email, user.Name, fmt.Sprintf("%s added \"%s\"", payer.Name, bill.Title), htmlBody)
		}
	})
}

// NotifyPaymentMarked tells the bill's payer that a debtor claims to have
// paid their share and is waiting on confirmation.
func (ns *NotificationService) NotifyPaymentMarked(bill models.Bill, debtor models.User, amount float64) {
	ns.submit(func() {
		title := fmt.Sprintf("%s marked a payment as paid", debtor.Name)
		body := fmt.Sprintf("%s says they paid you %s %.2f for \"%s\". Confirm once received.", debtor.Name, bill.Currency, amount, bill.Title)

		ns.sendPush(bill.PaidBy, title, body, map[string]string{
			"type":    "payment_marked",
			"bill_id": bill.ID.String(),
		})
	})
}

// NotifyPaymentConfirmed tells the debtor their payment was acknowledged.
func (ns *NotificationService) NotifyPaymentConfirmed(bill models.Bill, creditor models.User, debtorID uuid.UUID, amount float64) {
	ns.submit(func() {
		var debtor models.User
		if err := ns.db.First(&debtor, debtorID).Error; err != nil {
			return
		}

		title := fmt.Sprintf("%s confirmed your payment", creditor.Name)
		body := fmt.Sprintf("Your payment of %s %.2f for \"%s\" is settled", bill.Currency, amount, bill.Title)

		ns.sendPush(debtor.ID, title, body, map[string]string{
			"type":    "payment_confirmed",
			"bill_id": bill.ID.String(),
		})

		htmlBody := buildPaymentConfirmedEmailHTML(creditor.Name, debtor.Name, amount, bill.Currency, bill.Title)
		ns.sendEmail(debtor.Email, debtor.Name, fmt.Sprintf("%s confirmed your payment", creditor.Name), htmlBody)
	})
}

// NotifyMemberAdded tells the newly added member about their group.
func (ns *NotificationService) NotifyMemberAdded(group models.Group, adder models.User, newMember models.User) {
	ns.submit(func() {
		title := fmt.Sprintf("You were added to \"%s\"", group.Name)
		body := fmt.Sprintf("%s added you to the group \"%s\"", adder.Name, group.Name)

		ns.sendPush(newMember.ID, title, body, map[string]string{
			"type":     "member_added",
			"group_id": group.ID.String(),
		})

		htmlBody := buildMemberAddedEmailHTML(adder.Name, newMember.Name, group.Name)
		ns.sendEmail(newMember.Email, newMember.Name, title, htmlBody)
	})
}

// NotifyInvitation emails someone who is not registered yet.
func (ns *NotificationService) NotifyInvitation(email, inviterName, groupName string) {
	ns.submit(func() {
		subject := fmt.Sprintf("%s invited you to join \"%s\" on %s", inviterName, groupName, ns.appName)
		htmlBody := ns.buildInvitationEmailHTML(inviterName, groupName)
		ns.sendEmail(email, "", subject, htmlBody)
	})
}

// Email templates

func buildBillEmailHTML(payerName, userName, title string, totalAmount, owedAmount float64, currency string) string {
	tmpl := `
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">New Bill Added</h2>
		<p>Hi <strong>{{.UserName}}</strong>,</p>
		<p><strong>{{.PayerName}}</strong> added a new bill:</p>
		<div style="background: #f8f9fa; border-radius: 8px; padding: 16px; margin: 16px 0;">
			<p style="margin: 4px 0; font-size: 18px;"><strong>{{.Title}}</strong></p>
			<p style="margin: 4px 0; color: #666;">Total: {{.Currency}} {{printf "%.2f" .TotalAmount}}</p>
			<p style="margin: 4px 0; color: #e53e3e; font-size: 18px;"><strong>Your share: {{.Currency}} {{printf "%.2f" .OwedAmount}}</strong></p>
		</div>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— BillSplit</p>
	</div>
</body>
</html>`

	t, _ := template.New("bill").Parse(tmpl)
	var buf bytes.Buffer
	t.Execute(&buf, map[string]interface{}{
		"PayerName":   payerName,
		"UserName":    userName,
		"Title":       title,
		"TotalAmount": totalAmount,
		"OwedAmount":  owedAmount,
		"Currency":    currency,
	})
	return buf.String()
}

func buildPaymentConfirmedEmailHTML(creditorName, debtorName string, amount float64, currency, billTitle string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">Payment Confirmed</h2>
		<p>Hi <strong>%s</strong>,</p>
		<p><strong>%s</strong> confirmed your payment of <strong>%s %.2f</strong> for <strong>"%s"</strong>.</p>
		<p>That share is now settled. Check the app for your updated balance.</p>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— BillSplit</p>
	</div>
</body>
</html>`, debtorName, creditorName, currency, amount, billTitle)
}

func buildMemberAddedEmailHTML(adderName, memberName, groupName string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">You've been added to a group!</h2>
		<p>Hi <strong>%s</strong>,</p>
		<p><strong>%s</strong> added you to the group <strong>"%s"</strong>.</p>
		<p>Open the app to start splitting bills with your group!</p>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— BillSplit</p>
	</div>
</body>
</html>`, memberName, adderName, groupName)
}

func (ns *NotificationService) buildInvitationEmailHTML(inviterName, groupName string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">You're invited!</h2>
		<p><strong>%s</strong> invited you to join <strong>"%s"</strong> on %s.</p>
		<p>%s makes it easy to split bills with friends, roommates, and groups.</p>
		<div style="margin: 24px 0;">
			<a href="%s" style="background: #1DB954; color: white; padding: 12px 32px; border-radius: 8px; text-decoration: none; font-weight: bold;">Join Now</a>
		</div>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— %s</p>
	</div>
</body>
</html>`, inviterName, groupName, ns.appName, ns.appName, ns.appURL, ns.appName)
}
