package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// EmailNotifier sends instance lifecycle mail to the owning user.
type EmailNotifier struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates an SMTP notifier. Username may be empty for
// unauthenticated relays.
func NewEmailNotifier(host string, port int, from, username, password string) *EmailNotifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &EmailNotifier{
		addr:     fmt.Sprintf("%s:%d", host, port),
		from:     from,
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// InstanceCreated mails the owner their new instance details.
func (n *EmailNotifier) InstanceCreated(ctx context.Context, owner *provision.User, inst *provision.Instance) error {
	if owner == nil || owner.Email == "" {
		return nil
	}
	subject := fmt.Sprintf("Your %s instance %s is ready", inst.Engine, inst.Name)
	body := fmt.Sprintf(
		"Your database instance has been created.\r\n\r\n"+
			"Name:   %s\r\n"+
			"Engine: %s\r\n"+
			"Host:   %s\r\n"+
			"Port:   %d\r\n"+
			"User:   %s\r\n\r\n"+
			"Retrieve the password from your dashboard.\r\n",
		inst.Name, inst.Engine, inst.Host, inst.Port, inst.DBUser,
	)
	return n.send(ctx, owner.Email, subject, body)
}

// InstanceDestroyed mails the owner a deletion confirmation.
func (n *EmailNotifier) InstanceDestroyed(ctx context.Context, owner *provision.User, inst *provision.Instance) error {
	if owner == nil || owner.Email == "" {
		return nil
	}
	subject := fmt.Sprintf("Your %s instance %s was deleted", inst.Engine, inst.Name)
	body := fmt.Sprintf(
		"Your database instance %s (%s) and all of its data have been deleted.\r\n",
		inst.Name, inst.Engine,
	)
	return n.send(ctx, owner.Email, subject, body)
}

func (n *EmailNotifier) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := n.sendMail(n.addr, n.auth, n.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
