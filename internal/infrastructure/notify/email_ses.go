package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"
)

// sesAPI is the slice of the SES client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESSender struct {
	client    sesAPI
	fromEmail string
	fromName  string
	log       *logrus.Logger
}

// NewSESSender loads credentials from the default AWS chain.
func NewSESSender(ctx context.Context, region, fromEmail, fromName string, log *logrus.Logger) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("notify: failed to load aws config: %w", err)
	}
	return &SESSender{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		log:       log,
	}, nil
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("notify: SES send failed: %w", err)
	}

	s.log.WithFields(logrus.Fields{"to": msg.To, "message_id": aws.ToString(out.MessageId)}).Info("Email sent via SES")
	return nil
}

var _ EmailSender = (*SESSender)(nil)
