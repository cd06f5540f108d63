package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/rs/zerolog"
)

type fakeSender struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSender) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func laPaz(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/La_Paz")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestRender(t *testing.T) {
	loc := laPaz(t)
	subject, body := Render(AppointmentNotice{
		CustomerName:  "Ana Rojas",
		ProcedureType: "Visa de turismo B1/B2",
		ScheduledAt:   time.Date(2025, 3, 10, 13, 5, 0, 0, time.UTC),
		Place:         "Embajada de EE.UU.",
		Family:        true,
	}, loc)

	if subject != "Confirmación de cita - Visa de turismo B1/B2" {
		t.Errorf("unexpected subject %q", subject)
	}
	for _, want := range []string{"Ana Rojas", "10/03/2025 09:05", "Embajada de EE.UU.", "cita familiar"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q, got:\n%s", want, body)
		}
	}
}

func TestSESNotifier_BuildsMessage(t *testing.T) {
	sender := &fakeSender{}
	n := NewSESNotifier(sender, Config{FromEmail: "citas@gousa.test", FromName: "GO USA"}, zerolog.Nop())

	err := n.NotifyAppointment(context.Background(), AppointmentNotice{
		AppointmentID: 7,
		CustomerName:  "Luis Rojas",
		Email:         "luis@example.test",
		ScheduledAt:   time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.inputs) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.inputs))
	}
	in := sender.inputs[0]
	if aws.ToString(in.FromEmailAddress) != "GO USA <citas@gousa.test>" {
		t.Errorf("unexpected from %q", aws.ToString(in.FromEmailAddress))
	}
	if len(in.Destination.ToAddresses) != 1 || in.Destination.ToAddresses[0] != "luis@example.test" {
		t.Errorf("unexpected destination %v", in.Destination.ToAddresses)
	}
}

func TestSESNotifier_SkipsMissingEmail(t *testing.T) {
	sender := &fakeSender{}
	n := NewSESNotifier(sender, Config{FromEmail: "citas@gousa.test"}, zerolog.Nop())
	if err := n.NotifyAppointment(context.Background(), AppointmentNotice{AppointmentID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.inputs) != 0 {
		t.Error("expected no send without an email address")
	}
}

func TestDispatch_LogsFailuresAndContinues(t *testing.T) {
	var logs bytes.Buffer
	sender := &fakeSender{err: errors.New("throttled")}
	n := NewSESNotifier(sender, Config{FromEmail: "citas@gousa.test"}, zerolog.Nop())

	sent := Dispatch(context.Background(), n, []AppointmentNotice{
		{AppointmentID: 1, Email: "a@example.test"},
		{AppointmentID: 2},
		{AppointmentID: 3, Email: "c@example.test"},
	}, 0, zerolog.New(&logs))

	if sent != 0 {
		t.Errorf("expected zero sent, got %d", sent)
	}
	if strings.Count(logs.String(), "appointment notice failed") != 2 {
		t.Errorf("expected two failure log lines, got:\n%s", logs.String())
	}
}

func TestDispatch_CountsSent(t *testing.T) {
	sender := &fakeSender{}
	n := NewSESNotifier(sender, Config{FromEmail: "citas@gousa.test"}, zerolog.Nop())
	sent := Dispatch(context.Background(), n, []AppointmentNotice{
		{AppointmentID: 1, Email: "a@example.test"},
		{AppointmentID: 2, Email: "b@example.test"},
	}, SendTimeout, zerolog.Nop())
	if sent != 2 {
		t.Errorf("expected 2 sent, got %d", sent)
	}
}

type stalledNotifier struct{}

func (stalledNotifier) NotifyAppointment(ctx context.Context, _ AppointmentNotice) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatch_TimesOutEachSend(t *testing.T) {
	var logs bytes.Buffer
	started := time.Now()
	sent := Dispatch(context.Background(), stalledNotifier{}, []AppointmentNotice{
		{AppointmentID: 1, Email: "a@example.test"},
		{AppointmentID: 2, Email: "b@example.test"},
	}, 20*time.Millisecond, zerolog.New(&logs))

	if sent != 0 {
		t.Errorf("expected nothing sent, got %d", sent)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Errorf("expected each send to be cut off, took %s", elapsed)
	}
	if strings.Count(logs.String(), "deadline exceeded") != 2 {
		t.Errorf("expected both sends to time out, got:\n%s", logs.String())
	}
}

func TestNew_WithoutFromEmailLogsOnly(t *testing.T) {
	n, err := New(context.Background(), Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(*LogNotifier); !ok {
		t.Fatalf("expected *LogNotifier, got %T", n)
	}
	if err := n.NotifyAppointment(context.Background(), AppointmentNotice{Email: "x@example.test"}); err != nil {
		t.Errorf("log notifier should never fail: %v", err)
	}
}
