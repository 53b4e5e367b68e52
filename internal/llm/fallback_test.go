package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aorysoft/leadbot/pkg/logging"
)

type stubClient struct {
	resp  Response
	err   error
	calls int
}

func (s *stubClient) Complete(_ context.Context, _ Request) (Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	primary := &stubClient{resp: Response{Text: "primary"}}
	fallback := &stubClient{resp: Response{Text: "fallback"}}
	c := NewFallbackClient(primary, fallback, logging.New("error"))

	resp, err := c.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Text)
	assert.Equal(t, 0, fallback.calls)
}

func TestFallbackClientFallsBack(t *testing.T) {
	primary := &stubClient{err: errors.New("boom")}
	fallback := &stubClient{resp: Response{Text: "fallback"}}
	c := NewFallbackClient(primary, fallback, logging.New("error"))

	resp, err := c.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestFallbackClientNoFallbackConfigured(t *testing.T) {
	primaryErr := errors.New("boom")
	c := NewFallbackClient(&stubClient{err: primaryErr}, nil, logging.New("error"))

	_, err := c.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, primaryErr)
}

func TestFallbackClientBothFail(t *testing.T) {
	fallbackErr := errors.New("fallback boom")
	c := NewFallbackClient(&stubClient{err: errors.New("boom")}, &stubClient{err: fallbackErr}, logging.New("error"))

	_, err := c.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, fallbackErr)
}
