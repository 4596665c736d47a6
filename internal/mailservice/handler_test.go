package mailservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type discardLogger struct{}

func (discardLogger) Error(msg string, args ...any) {}
func (discardLogger) Info(msg string, args ...any)  {}

func TestSendWelcomeEmail(t *testing.T) {
	mockMC := new(MockMessageConsumer)
	mockMailer := new(MockMailer)

	ctx, cancel := context.WithCancel(context.Background())

	s := &MailService{
		mb:     mockMC,
		m:      mockMailer,
		logger: discardLogger{},
		ctx:    ctx,
		cancel: cancel,
	}
	t.Cleanup(s.Close)

	s.SendWelcomeEmail()

	assert.Eventually(t, func() bool {
		return mockMailer.IsCalled()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "test@example.com", mockMailer.GetEmail())
}
