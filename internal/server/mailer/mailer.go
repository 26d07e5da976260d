// Package mailer sends the account verification emails.
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
)

const (
	Subject = "Account verification"
	Charset = "UTF-8"
)

// Sender delivers a plain-text message with the fixed subject to one
// recipient, and asks the provider to verify an address.
type Sender interface {
	Send(ctx context.Context, to, body string) error
	VerifyIdentity(ctx context.Context, email string) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	VerifyEmailIdentity(ctx context.Context, in *ses.VerifyEmailIdentityInput, optFns ...func(*ses.Options)) (*ses.VerifyEmailIdentityOutput, error)
}

var (
	loadDefaultAWSConfig   = awsconfig.LoadDefaultConfig
	newSESClientFromConfig = func(cfg aws.Config, optFns ...func(*ses.Options)) sesAPI {
		return ses.NewFromConfig(cfg, optFns...)
	}
)

// SESMailer sends through AWS SES with static credentials.
type SESMailer struct {
	client sesAPI
	source string
}

func NewSESMailer(ctx context.Context, c config.MailConfig) (*SESMailer, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKeyID,
			c.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newSESClientFromConfig(cfg, func(o *ses.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	})
	return &SESMailer{client: client, source: c.Source}, nil
}

func (m *SESMailer) Send(ctx context.Context, to, body string) error {
	in := &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Body: &types.Body{
				Text: &types.Content{Charset: aws.String(Charset), Data: aws.String(body)},
			},
			Subject: &types.Content{Charset: aws.String(Charset), Data: aws.String(Subject)},
		},
		Source: aws.String(m.source),
	}
	if _, err := m.client.SendEmail(ctx, in); err != nil {
		return fmt.Errorf("%w: %w", common.ErrMailDelivery, err)
	}
	return nil
}

func (m *SESMailer) VerifyIdentity(ctx context.Context, email string) error {
	_, err := m.client.VerifyEmailIdentity(ctx, &ses.VerifyEmailIdentityInput{EmailAddress: aws.String(email)})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrMailDelivery, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no mail provider is configured.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(l logging.Logger) *LogMailer {
	return &LogMailer{logger: l}
}

func (m *LogMailer) Send(ctx context.Context, to, body string) error {
	m.logger.Info(ctx, "mail not sent, no provider configured", "to", to, "subject", Subject, "body", body)
	return nil
}

func (m *LogMailer) VerifyIdentity(ctx context.Context, email string) error {
	m.logger.Info(ctx, "identity verification skipped, no provider configured", "email", email)
	return nil
}
