package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aorysoft/leadbot/pkg/logging"
)

func TestNewSendGridSenderRequiresKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{}, logging.New("error"))
	assert.Nil(t, sender)
}

func TestNewSendGridSenderDefaults(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "sg-key",
		FromEmail: "bot@aorysoft.example",
	}, logging.New("error"))
	require.NotNil(t, sender)
	assert.Equal(t, "AorySoft", sender.fromName)
}

func TestStubEmailSender(t *testing.T) {
	sender := NewStubEmailSender(logging.New("error"))
	err := sender.Send(context.Background(), EmailMessage{To: "jane@acme.example", Subject: "hi"})
	assert.NoError(t, err)
}

func TestBookingConfirmation(t *testing.T) {
	msg := BookingConfirmation("Jane Doe", "2025-08-20 10:00 AM")
	assert.Equal(t, "Jane Doe", msg.ToName)
	assert.Contains(t, msg.Body, "2025-08-20 10:00 AM")
	assert.Contains(t, msg.Body, "Jane Doe")
	assert.NotEmpty(t, msg.Subject)
}
