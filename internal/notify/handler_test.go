package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/notify"
)

type fakeHandler struct {
	channel string
	called  int
	err     error
}

func (f *fakeHandler) Channel() string { return f.channel }
func (f *fakeHandler) Handle(ctx context.Context, event notify.TaskEvent) error {
	f.called++
	return f.err
}

var _ notify.Handler = (*fakeHandler)(nil)

func TestRegistry_GetRegisteredHandler(t *testing.T) {
	reg := notify.NewRegistry()
	h := &fakeHandler{channel: "webhook"}
	reg.Register(h)

	got, err := reg.Get("webhook")
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestRegistry_GetUnknownChannel(t *testing.T) {
	reg := notify.NewRegistry()

	_, err := reg.Get("sms")
	require.Error(t, err)
	var target *domain.InvalidNotifyChannelError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "sms", target.Channel)
}
