// Package mails renders the storefront's outgoing emails and staff
// notifications.
package mails

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/mail"
	"github.com/artisanmart/storefront/pkg/notification"
)

var templates = template.Must(template.New("mails").Parse(`
{{define "receipt"}}<h2>Thank you for your order, {{.User.Name}}!</h2>
<p>Order <strong>{{.Order.Reference}}</strong> is {{.Order.Status}}.</p>
<table>
<tr><th>Item</th><th>Qty</th><th>Price</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Price.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Total paid: <strong>{{.Order.AmountPaid.StringFixed 2}}</strong></p>
<p>Shipping to {{.Order.ShippingAddress.FullName}}, {{.Order.ShippingAddress.Line1}}, {{.Order.ShippingAddress.City}} {{.Order.ShippingAddress.PostalCode}}</p>{{end}}
{{define "restock"}}<h2>{{.Name}} is back in stock</h2>
<p>Good news: <strong>{{.Name}}</strong> by {{.ArtisanName}} is available again at {{.Price.StringFixed 2}}.</p>
<p>Quantities are limited.</p>{{end}}
{{define "status"}}<p>Your order <strong>{{.Reference}}</strong> is now <strong>{{.Status}}</strong>.</p>{{end}}
{{define "contact"}}<h3>New contact message</h3>
<p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p>{{.Message}}</p>{{end}}
`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mails: render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Receipt is sent to the buyer once an order is placed.
func Receipt(order models.Order, user models.User) (*mail.Message, error) {
	html, err := render("receipt", struct {
		Order models.Order
		User  models.User
	}{order, user})
	if err != nil {
		return nil, err
	}
	return mail.To(user.Email).
		WithSubject("Order confirmation " + order.Reference).
		HTML(html).
		Text(fmt.Sprintf("Order %s placed. Total paid: %s", order.Reference, order.AmountPaid.StringFixed(2))), nil
}

// Restocked tells a subscriber the product is available again.
func Restocked(p models.Product, email string) (*mail.Message, error) {
	html, err := render("restock", p)
	if err != nil {
		return nil, err
	}
	return mail.To(email).
		WithSubject(p.Name + " is back in stock").
		HTML(html).
		Text(p.Name + " is back in stock."), nil
}

// Contact forwards a contact form message to the store inbox.
func Contact(m models.ContactMessage, inbox string) (*mail.Message, error) {
	html, err := render("contact", m)
	if err != nil {
		return nil, err
	}
	subject := m.Subject
	if subject == "" {
		subject = "New contact message"
	}
	return mail.To(inbox).
		WithSubject("[Contact] " + subject).
		HTML(html).
		Text(fmt.Sprintf("From %s <%s>\n\n%s", m.Name, m.Email, m.Message)), nil
}

// Export carries a scheduled export as an attachment.
func Export(schedule models.ScheduledExport, name, contentType string, data []byte, rows int) *mail.Message {
	return mail.To(schedule.Recipient).
		WithSubject(fmt.Sprintf("Catalog export: %s", schedule.Name)).
		Text(fmt.Sprintf("Attached is the %s catalog export (%d products).", strings.ToUpper(schedule.Format), rows)).
		Attach(name, contentType, data)
}

// LowStock alerts staff by mail and chat.
type LowStock struct {
	Alert models.LowStockAlert
}

func (n LowStock) Via() []string {
	return []string{notification.ChannelMail, notification.ChannelSlack}
}

func (n LowStock) ToMail() notification.MailData {
	return notification.MailData{
		Subject: fmt.Sprintf("Low stock: %s", n.Alert.ProductName),
		Text: fmt.Sprintf("%s (#%d) has %d left, threshold is %d.",
			n.Alert.ProductName, n.Alert.ProductID, n.Alert.Stock, n.Alert.Threshold),
	}
}

func (n LowStock) ToSlack() notification.SlackData {
	color := "warning"
	if n.Alert.Stock == 0 {
		color = "danger"
	}
	return notification.SlackData{
		Text: "Low stock alert",
		Attachments: []notification.SlackAttachment{{
			Color: color,
			Title: n.Alert.ProductName,
			Text:  fmt.Sprintf("%d left (threshold %d)", n.Alert.Stock, n.Alert.Threshold),
		}},
	}
}
