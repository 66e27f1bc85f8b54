package events

import (
	"context"
	"errors"
	"mime"
	"testing"

	"socialspark-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/mail.v2"
)

type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) DialAndSend(msgs ...*mail.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

func TestEmailSink_SendsConnectionRequestMail(t *testing.T) {
	users := new(MockUserFinder)
	sender := new(MockSender)
	users.On("FindByID", mock.Anything, "to").Return(&model.User{ID: "to", Email: "bob@example.com", FullName: "Bob"}, nil)
	users.On("FindByID", mock.Anything, "from").Return(&model.User{ID: "from", FullName: "Alice", Username: "alice"}, nil)

	var sent *mail.Message
	sender.On("DialAndSend", mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(0).([]*mail.Message)[0]
	}).Return(nil)

	sink := NewEmailSink(users, sender, "noreply@example.com", "https://app.example.com")
	err := sink.Handle(context.Background(), New(ConnectionRequested, map[string]string{
		"connection_id": "c1", "from_user_id": "from", "to_user_id": "to",
	}))
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.Equal(t, []string{"bob@example.com"}, sent.GetHeader("To"))
	subject := sent.GetHeader("Subject")
	require.Len(t, subject, 1)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject[0])
	require.NoError(t, err)
	assert.Equal(t, "Alice 想与你建立连接", decoded)
	sender.AssertExpectations(t)
}

func TestConnectionRequestBody(t *testing.T) {
	body := connectionRequestBody(
		&model.User{FullName: "Bob"},
		&model.User{FullName: "Alice", Username: "alice"},
		"https://app.example.com",
	)
	assert.Contains(t, body, "Hi Bob")
	assert.Contains(t, body, "Alice - @alice")
	assert.Contains(t, body, "https://app.example.com/connections")
}

func TestEmailSink_IgnoresOtherEvents(t *testing.T) {
	users := new(MockUserFinder)
	sender := new(MockSender)

	sink := NewEmailSink(users, sender, "noreply@example.com", "")
	assert.NoError(t, sink.Handle(context.Background(), New(ConnectionAccepted, nil)))
	users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "DialAndSend", mock.Anything)
}

func TestEmailSink_ReportsSendFailure(t *testing.T) {
	users := new(MockUserFinder)
	sender := new(MockSender)
	users.On("FindByID", mock.Anything, "to").Return(&model.User{ID: "to", Email: "bob@example.com"}, nil)
	users.On("FindByID", mock.Anything, "from").Return(&model.User{ID: "from"}, nil)
	sender.On("DialAndSend", mock.Anything).Return(errors.New("smtp down"))

	sink := NewEmailSink(users, sender, "noreply@example.com", "")
	err := sink.Handle(context.Background(), New(ConnectionRequested, map[string]string{
		"from_user_id": "from", "to_user_id": "to",
	}))
	assert.Error(t, err)
}
