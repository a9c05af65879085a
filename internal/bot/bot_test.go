package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ahsanfayaz52/notebot/internal/command"
	"github.com/ahsanfayaz52/notebot/internal/models"
)

type sent struct {
	userID int64
	line   string
}

type fakeTransport struct {
	batches  [][]models.InboundMessage
	offsets  []int64 // offsets passed to each fetch
	sent     []sent
	fetchErr error
	// sendErr, when set, is returned for replies to failUser while failures > 0.
	sendErr  error
	failUser int64
	failures int
}

func (f *fakeTransport) FetchUpdates(_ context.Context, offset int64) ([]models.InboundMessage, int64, error) {
	f.offsets = append(f.offsets, offset)
	if f.fetchErr != nil {
		return nil, offset, f.fetchErr
	}
	if len(f.batches) == 0 {
		return nil, offset, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	next := offset
	for _, m := range batch {
		if m.UpdateID >= next {
			next = m.UpdateID + 1
		}
	}
	return batch, next, nil
}

func (f *fakeTransport) SendReply(_ context.Context, userID int64, line string) error {
	if f.sendErr != nil && userID == f.failUser && f.failures > 0 {
		f.failures--
		return f.sendErr
	}
	f.sent = append(f.sent, sent{userID, line})
	return nil
}

// echoDispatcher replies with the command kind.
type echoDispatcher struct {
	seen []command.Kind
}

func (e *echoDispatcher) Dispatch(_ context.Context, cmd command.Command) []string {
	e.seen = append(e.seen, cmd.Kind())
	return []string{cmd.Kind().String()}
}

func (e *echoDispatcher) Malformed(error) []string {
	return []string{"bad"}
}

type tempErr struct{ temp bool }

func (e tempErr) Error() string   { return "send failed" }
func (e tempErr) Temporary() bool { return e.temp }

func m(id, user int64, text string) models.InboundMessage {
	return models.InboundMessage{UpdateID: id, UserID: user, Text: text, Timestamp: time.Unix(0, 0)}
}

func TestPollOnceProcessesInOrderAndAdvances(t *testing.T) {
	tr := &fakeTransport{batches: [][]models.InboundMessage{{
		m(1, 7, "/start"),
		m(2, 7, "just chatting"),
		m(3, 8, "/read nope"),
		m(4, 7, "/tag_all"),
	}}}
	d := &echoDispatcher{}
	b := New(tr, d, time.Millisecond, nil)

	require.NoError(t, b.PollOnce(context.Background()))

	assert.Equal(t, []command.Kind{command.KindStart, command.KindTagAll}, d.seen)
	assert.Equal(t, []sent{{7, "start"}, {8, "bad"}, {7, "tag_all"}}, tr.sent)
	assert.Equal(t, int64(5), b.Offset())
	assert.False(t, b.LastPoll().IsZero())

	require.NoError(t, b.PollOnce(context.Background()))
	assert.Equal(t, []int64{0, 5}, tr.offsets)
}

func TestPollOnceHoldsOffsetOnTemporarySendFailure(t *testing.T) {
	tr := &fakeTransport{
		batches: [][]models.InboundMessage{
			{m(10, 7, "/read_all"), m(11, 8, "/read_all"), m(12, 7, "/tag_all")},
		},
		sendErr:  tempErr{temp: true},
		failUser: 8,
		failures: 1,
	}
	b := New(tr, &echoDispatcher{}, time.Millisecond, nil)

	err := b.PollOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(11), b.Offset(), "offset must not pass the failed message")
	assert.Equal(t, []sent{{7, "read_all"}}, tr.sent, "the rest of the batch waits")

	// The transport redelivers from the failed message.
	tr.batches = [][]models.InboundMessage{{m(11, 8, "/read_all"), m(12, 7, "/tag_all")}}
	require.NoError(t, b.PollOnce(context.Background()))
	assert.Equal(t, int64(13), b.Offset())
	assert.Equal(t, []int64{0, 11}, tr.offsets)
	assert.Equal(t, []sent{{7, "read_all"}, {8, "read_all"}, {7, "tag_all"}}, tr.sent)
}

func TestPollOnceSkipsPermanentSendFailure(t *testing.T) {
	tr := &fakeTransport{
		batches:  [][]models.InboundMessage{{m(1, 8, "/start"), m(2, 7, "/start")}},
		sendErr:  tempErr{temp: false},
		failUser: 8,
		failures: 1,
	}
	b := New(tr, &echoDispatcher{}, time.Millisecond, nil)

	require.NoError(t, b.PollOnce(context.Background()))
	assert.Equal(t, int64(3), b.Offset())
	assert.Equal(t, []sent{{7, "start"}}, tr.sent)
}

func TestPollOnceUnclassifiedSendErrorHoldsOffset(t *testing.T) {
	tr := &fakeTransport{
		batches:  [][]models.InboundMessage{{m(4, 8, "/start")}},
		sendErr:  errors.New("connection reset"),
		failUser: 8,
		failures: 1,
	}
	b := New(tr, &echoDispatcher{}, time.Millisecond, nil)

	assert.Error(t, b.PollOnce(context.Background()))
	assert.Equal(t, int64(4), b.Offset())
}

func TestPollOnceFetchFailureKeepsOffset(t *testing.T) {
	tr := &fakeTransport{fetchErr: errors.New("timeout")}
	b := New(tr, &echoDispatcher{}, time.Millisecond, nil)
	b.offset.Store(9)

	assert.Error(t, b.PollOnce(context.Background()))
	assert.Equal(t, int64(9), b.Offset())
	assert.True(t, b.LastPoll().IsZero())
}

func TestRunSurvivesErrorsAndStopsOnCancel(t *testing.T) {
	tr := &fakeTransport{fetchErr: errors.New("down")}
	b := New(tr, &echoDispatcher{}, time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, b.Run(ctx))
	assert.Greater(t, len(tr.offsets), 1, "loop keeps polling after a failed cycle")
}

func TestPollOnceLogsEveryMessage(t *testing.T) {
	tr := &fakeTransport{batches: [][]models.InboundMessage{{
		m(1, 7, "/start"),
		m(2, 8, "hello there"),
	}}}
	core, logs := observer.New(zap.InfoLevel)
	b := New(tr, &echoDispatcher{}, time.Millisecond, zap.New(core))

	require.NoError(t, b.PollOnce(context.Background()))

	received := logs.FilterMessage("message received").All()
	require.Len(t, received, 2, "non-commands are logged too")
	assert.Equal(t, map[string]any{"user_id": int64(7), "update_id": int64(1), "text": "/start"}, received[0].ContextMap())
	assert.Equal(t, map[string]any{"user_id": int64(8), "update_id": int64(2), "text": "hello there"}, received[1].ContextMap())
}
