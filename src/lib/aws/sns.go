package aws

import (
	"context"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

func GetSNSClient() *sns.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Printf("Could not load default config: %s\n", err.Error())
		return nil
	}
	svc := sns.NewFromConfig(cfg)
	return svc
}

var nonDialable = regexp.MustCompile(`[^\d+]`)

// ToE164 normalizes a local phone number to E.164. Numbers without a country
// prefix get SMS_COUNTRY_CODE (default +94, matching the deployed region).
func ToE164(phone string) string {
	if phone == "" {
		return phone
	}
	cc := os.Getenv("SMS_COUNTRY_CODE")
	if cc == "" {
		cc = "+94"
	}
	digits := nonDialable.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(digits, "+"):
		return digits
	case strings.HasPrefix(digits, strings.TrimPrefix(cc, "+")):
		return "+" + digits
	case strings.HasPrefix(digits, "0"):
		return cc + digits[1:]
	default:
		return "+" + digits
	}
}

// SNSPublishSMS sends a transactional text directly to a phone number.
// Disabled unless SMS_ENABLED is set; delivery problems are logged only.
func SNSPublishSMS(phone string, body string) error {
	if os.Getenv("SMS_ENABLED") != "true" || phone == "" {
		return nil
	}
	c := GetSNSClient()
	if c == nil {
		return nil
	}
	out, err := c.Publish(context.TODO(), &sns.PublishInput{
		PhoneNumber: aws.String(ToE164(phone)),
		Message:     aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	if err != nil {
		log.Printf("Error sending SMS: %s\n", err.Error())
		return err
	}
	log.Printf("Sent SMS with id: %s\n", *out.MessageId)
	return nil
}
