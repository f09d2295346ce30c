package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/config"
	"github.com/ahmed-abdelmageed/vise-services-sub001/database/dbtest"
	"github.com/ahmed-abdelmageed/vise-services-sub001/logger"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/notify"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingMailer struct {
	confirmations atomic.Int32
	team          atomic.Int32
}

func (m *countingMailer) SendConfirmation(context.Context, notify.Confirmation) error {
	m.confirmations.Add(1)
	return nil
}

func (m *countingMailer) SendTeamNotification(context.Context, notify.TeamNotice) error {
	m.team.Add(1)
	return nil
}

func startRouter(t *testing.T, bus *Bus, handler message.NoPublishHandlerFunc) {
	t.Helper()
	wlog := logger.Watermill(zap.NewNop())
	router, err := NewRouter(bus, wlog, "test_handler", TopicApplicationSubmitted, TopicPoisoned, handler)
	require.NoError(t, err)

	require.NoError(t, RunRouter(context.Background(), router, zap.NewNop()))
	t.Cleanup(func() { _ = router.Close() })
}

func TestSubmittedEventDeliversNotifications(t *testing.T) {
	db := dbtest.New(t)
	app := models.VisaApplication{
		ReferenceId: "VA-EVT1", FirstName: "Sara", LastName: "Ali", Email: "sara@example.com",
		Adults: 1, TotalPrice: decimal.NewFromInt(450), Currency: "SAR",
	}
	require.NoError(t, db.Create(&app).Error)

	bus, err := NewBus(config.AMQPConfig{}, logger.Watermill(zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, "gochannel", bus.Transport)
	t.Cleanup(func() { _ = bus.Close() })

	mailer := &countingMailer{}
	dispatcher := notify.NewDispatcher(db, mailer, nil, zap.NewNop())
	startRouter(t, bus, NotificationHandler(dispatcher, zap.NewNop()))

	outbox := NewOutbox(bus.Publisher)
	require.NoError(t, outbox.ApplicationSubmitted(context.Background(), ApplicationSubmitted{
		ApplicationId: app.Id, ReferenceId: app.ReferenceId, SubmittedAt: time.Now(),
	}))

	assert.Eventually(t, func() bool {
		var got models.VisaApplication
		if err := db.First(&got, "id = ?", app.Id).Error; err != nil {
			return false
		}
		return got.EmailStatus == models.EmailStatusSent
	}, 5*time.Second, 20*time.Millisecond)
	assert.EqualValues(t, 1, mailer.confirmations.Load())
	assert.EqualValues(t, 1, mailer.team.Load())
}

func TestFailingMessagesEndInPoisonQueue(t *testing.T) {
	bus, err := NewBus(config.AMQPConfig{}, logger.Watermill(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	poisoned, err := bus.Subscriber.Subscribe(context.Background(), TopicPoisoned)
	require.NoError(t, err)

	var calls atomic.Int32
	startRouter(t, bus, func(msg *message.Message) error {
		calls.Add(1)
		return errors.New("database unavailable")
	})

	require.NoError(t, NewOutbox(bus.Publisher).ApplicationSubmitted(context.Background(), ApplicationSubmitted{ApplicationId: "x"}))

	select {
	case msg := <-poisoned:
		msg.Ack()
		assert.Equal(t, "test_handler", msg.Metadata.Get(middleware.PoisonedHandlerKey))
	case <-time.After(10 * time.Second):
		t.Fatal("message was not poisoned")
	}
	assert.EqualValues(t, 4, calls.Load())
}
