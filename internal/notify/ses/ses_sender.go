package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"docverify/internal/config"
	"docverify/internal/notify"
)

const charset = "UTF-8"

// emailAPI is the subset of the SESv2 client the sender uses.
type emailAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesSender struct {
	client emailAPI
	from   string
}

// NewSESSender creates a notify.Sender backed by Amazon SES.
func NewSESSender(ctx context.Context, cfg config.NotificationConfig) (notify.Sender, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("notification from address is required for SES")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return newSender(sesv2.NewFromConfig(awsCfg), cfg), nil
}

func newSender(client emailAPI, cfg config.NotificationConfig) *sesSender {
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &sesSender{client: client, from: from}
}

func (s *sesSender) Send(ctx context.Context, n notify.Notification) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{n.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(notify.Subject(n)), Charset: aws.String(charset)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(notify.HTMLBody(n)), Charset: aws.String(charset)},
					Text: &types.Content{Data: aws.String(notify.TextBody(n)), Charset: aws.String(charset)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}
