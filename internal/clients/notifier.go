package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// Notifier tells a shopper their order was placed.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, recipient string, order *models.Order) error
}

// EmailSender is the SES operation SESNotifier needs.
type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends order confirmations through Amazon SES.
type SESNotifier struct {
	client EmailSender
	sender string
	logger *logging.LoggerV2
}

// NewSESNotifier loads AWS configuration and builds an SES-backed notifier.
func NewSESNotifier(ctx context.Context, cfg config.EmailConfig, logger *logging.LoggerV2) (*SESNotifier, error) {
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("sender email address is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return NewSESNotifierWithClient(ses.NewFromConfig(awsCfg), cfg.SenderEmail, logger), nil
}

func NewSESNotifierWithClient(client EmailSender, sender string, logger *logging.LoggerV2) *SESNotifier {
	return &SESNotifier{client: client, sender: sender, logger: logger}
}

func (n *SESNotifier) SendOrderConfirmation(ctx context.Context, recipient string, order *models.Order) error {
	if recipient == "" {
		return fmt.Errorf("recipient email address is empty")
	}

	subject := fmt.Sprintf("Order %s confirmation", order.ID)
	text, html := renderConfirmation(order)

	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(html)},
				Text: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(text)},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		n.logger.Error("Failed to send confirmation email", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("Confirmation email sent", logging.Fields{"order_id": order.ID})
	return nil
}

func renderConfirmation(order *models.Order) (string, string) {
	var text, html strings.Builder

	fmt.Fprintf(&text, "Thank you for your order!\n\nOrder ID: %s\n\n", order.ID)
	html.WriteString("<html><body><p>Thank you for your order!</p>")
	fmt.Fprintf(&html, "<p>Order ID: %s</p><ul>", order.ID)

	for _, item := range order.OrderItems {
		fmt.Fprintf(&text, "%d x %s @ %s\n", item.Quantity, item.Name, item.Price.StringFixed(2))
		fmt.Fprintf(&html, "<li>%d x %s @ %s</li>", item.Quantity, item.Name, item.Price.StringFixed(2))
	}

	paid := order.PaymentInfo.AmountPaid.StringFixed(2)
	fmt.Fprintf(&text, "\nTotal paid: %s\n", paid)
	fmt.Fprintf(&html, "</ul><p><strong>Total paid: %s</strong></p></body></html>", paid)

	return text.String(), html.String()
}

// NoopNotifier drops notifications.
type NoopNotifier struct{}

func (NoopNotifier) SendOrderConfirmation(context.Context, string, *models.Order) error {
	return nil
}
