// Package notify tells customers about the appointments booked for them.
// Delivery is best effort: a failed notice is logged and never undoes the
// booking.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// AppointmentNotice describes one booked appointment for one customer.
type AppointmentNotice struct {
	AppointmentID int
	CustomerName  string
	Email         string
	ProcedureType string
	ScheduledAt   time.Time
	Place         string
	Family        bool
}

type Notifier interface {
	NotifyAppointment(ctx context.Context, n AppointmentNotice) error
}

// Config selects between SES delivery and log-only mode.
type Config struct {
	Region    string
	FromEmail string
	FromName  string
	Location  *time.Location
}

// New returns an SES notifier when FromEmail is set, otherwise a notifier
// that only logs.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Notifier, error) {
	if cfg.FromEmail == "" {
		logger.Info().Msg("appointment notices disabled: SES_FROM_EMAIL not configured")
		return &LogNotifier{logger: logger, loc: cfg.Location}, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	logger.Info().Str("from", cfg.FromEmail).Str("region", cfg.Region).Msg("appointment notices enabled")
	return NewSESNotifier(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

// LogNotifier writes notices to the log instead of sending them.
type LogNotifier struct {
	logger zerolog.Logger
	loc    *time.Location
}

func NewLogNotifier(logger zerolog.Logger, loc *time.Location) *LogNotifier {
	return &LogNotifier{logger: logger, loc: loc}
}

func (n *LogNotifier) NotifyAppointment(_ context.Context, notice AppointmentNotice) error {
	n.logger.Info().
		Int("appointment_id", notice.AppointmentID).
		Str("to", notice.Email).
		Str("when", formatWhen(notice.ScheduledAt, n.loc)).
		Msg("appointment notice skipped (delivery disabled)")
	return nil
}

// emailSender is the slice of the SES client the notifier needs.
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESNotifier struct {
	client emailSender
	from   string
	loc    *time.Location
	logger zerolog.Logger
}

func NewSESNotifier(client emailSender, cfg Config, logger zerolog.Logger) *SESNotifier {
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &SESNotifier{client: client, from: from, loc: cfg.Location, logger: logger}
}

func (n *SESNotifier) NotifyAppointment(ctx context.Context, notice AppointmentNotice) error {
	if notice.Email == "" {
		return nil
	}

	subject, text := Render(notice, n.loc)
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: []string{notice.Email},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("send appointment notice %d: %w", notice.AppointmentID, err)
	}
	n.logger.Debug().
		Int("appointment_id", notice.AppointmentID).
		Str("message_id", aws.ToString(out.MessageId)).
		Msg("appointment notice sent")
	return nil
}

// Render builds the subject and plain-text body of a notice.
func Render(n AppointmentNotice, loc *time.Location) (subject, body string) {
	subject = "Confirmación de cita"
	if n.ProcedureType != "" {
		subject += " - " + n.ProcedureType
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Estimado(a) %s:\n\n", n.CustomerName)
	fmt.Fprintf(&b, "Su cita quedó agendada para el %s", formatWhen(n.ScheduledAt, loc))
	if n.Place != "" {
		fmt.Fprintf(&b, " en %s", n.Place)
	}
	b.WriteString(".\n")
	if n.Family {
		b.WriteString("Esta cita forma parte de una cita familiar; los demás integrantes tienen horarios consecutivos.\n")
	}
	b.WriteString("\nPor favor llegue 15 minutos antes con su pasaporte.\n")
	return subject, b.String()
}

func formatWhen(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006 15:04")
}

// SendTimeout bounds a single notice delivery.
const SendTimeout = 10 * time.Second

// Dispatch sends every notice and logs the ones that fail. Each send gets at
// most timeout; zero means no limit beyond ctx.
func Dispatch(ctx context.Context, n Notifier, notices []AppointmentNotice, timeout time.Duration, logger zerolog.Logger) int {
	if n == nil {
		return 0
	}
	sent := 0
	for _, notice := range notices {
		if notice.Email == "" {
			continue
		}
		if err := send(ctx, n, notice, timeout); err != nil {
			logger.Warn().Err(err).Int("appointment_id", notice.AppointmentID).Msg("appointment notice failed")
			continue
		}
		sent++
	}
	return sent
}

func send(ctx context.Context, n Notifier, notice AppointmentNotice, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return n.NotifyAppointment(ctx, notice)
}
