package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	jobmetrics "github.com/cologne-noir/decant/internal/jobs"
	"github.com/cologne-noir/decant/internal/orders"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

var printer = message.NewPrinter(language.English)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("jobs: email recipient required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5)), nil
}

// FormatTaka renders an amount in BDT with thousands grouping, e.g. ৳4,560.00.
func FormatTaka(amount decimal.Decimal) string {
	return printer.Sprintf("৳%.2f", amount.Round(2).InexactFloat64())
}

// OrderConfirmation renders the confirmation mail for a stored order.
func OrderConfirmation(order orders.Order) SendEmailPayload {
	var body strings.Builder
	name := order.ShippingAddress.FullName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&body, "Hi %s,\n\nThank you for your order #%s.\n\n", name, shortID(order))
	for _, item := range order.Items {
		fmt.Fprintf(&body, "%s %s (%dml) x%d  %s\n",
			item.ProductBrand, item.ProductName, item.SizeValue, item.Quantity, FormatTaka(item.LineTotal()))
	}
	fmt.Fprintf(&body, "\nSubtotal: %s\nShipping: %s\nTotal: %s\n",
		FormatTaka(order.Subtotal), FormatTaka(order.ShippingCost), FormatTaka(order.Total))
	if order.PaymentMethod == orders.PaymentBkash {
		body.WriteString("\nWe will start decanting once your bKash payment is confirmed.\n")
	} else {
		body.WriteString("\nPlease keep the total ready for cash on delivery.\n")
	}
	return SendEmailPayload{
		To:      order.ShippingAddress.Email,
		Subject: "Cologne Noir order #" + shortID(order) + " received",
		Body:    body.String(),
	}
}

func shortID(order orders.Order) string {
	return strings.ToUpper(order.ID.String()[:8])
}

// MailJob delivers transactional mail. Delivery is logged only; no SMTP
// transport is wired.
type MailJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewMailJob wires dependencies for the mail handler.
func NewMailJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	return &MailJob{Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskTypeSendEmail)
	if payload.To == "" {
		return tracker.End(fmt.Errorf("mail: empty recipient: %w", asynq.SkipRetry))
	}
	j.logger().Info("send email", slog.String("to", payload.To), slog.String("subject", payload.Subject), slog.Int("body_bytes", len(payload.Body)))
	return tracker.End(nil)
}

func (j *MailJob) logger() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeSendEmail))
	}
	return slog.Default().With(slog.String("job", TaskTypeSendEmail))
}

func (j *MailJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
