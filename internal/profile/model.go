package profile

// UserProfile is the durable per-identity account record shown in the app.
// Balance and invoice fields are informational projections populated at fetch
// time; nothing in this service mutates them.
type UserProfile struct {
	ID                string
	PhoneNumber       string
	Name              string
	DataBalance       float64
	CallCredit        float64
	NextInvoiceDate   string
	NextInvoiceAmount float64

	// Payment is tri-state on disk: nil means the billing system has not
	// reported anything yet.
	Payment *bool
}

// PaymentSettled reports the payment flag, reading an absent value as false.
func (p UserProfile) PaymentSettled() bool {
	return p.Payment != nil && *p.Payment
}
