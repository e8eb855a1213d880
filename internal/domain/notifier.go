package domain

import "context"

type CustomerContact struct {
	FirstName   string
	LastName    string
	PhoneNumber string
}

// DisplayName joins the customer's names, "" when none are known.
func (c *CustomerContact) DisplayName() string {
	if c == nil {
		return ""
	}
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	return name
}

type Notification struct {
	ID      string
	Phone   string
	Message string
}

// Notifier delivers out-of-band messages such as SMS.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
