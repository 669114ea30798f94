package topics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"focusmon/internal/broadcast"
	"focusmon/internal/faults"
	"focusmon/internal/frontend"
	"focusmon/internal/topics"
)

type fakeExtractor struct {
	topic   string
	failFor map[string]error
}

func (f *fakeExtractor) ExtractTopic(_ context.Context, texts []string) (string, error) {
	if err, ok := f.failFor[texts[0]]; ok {
		return "", err
	}
	if f.topic != "" {
		return f.topic, nil
	}
	return texts[0], nil
}

type fakeTopicStore struct {
	rows map[string]topics.Record
	err  error
}

func newFakeTopicStore() *fakeTopicStore {
	return &fakeTopicStore{rows: make(map[string]topics.Record)}
}

func (f *fakeTopicStore) Put(_ context.Context, rec topics.Record) error {
	if f.err != nil {
		return f.err
	}
	f.rows[rec.TopicID] = rec
	return nil
}

type fakeAnnouncer struct {
	announced []string
	err       error
}

func (f *fakeAnnouncer) Announce(_ context.Context, username, topic string) error {
	f.announced = append(f.announced, username+":"+topic)
	return f.err
}

type fakeChatPusher struct {
	pushed []string
	err    error
}

func (f *fakeChatPusher) PushTopic(_ context.Context, username, topic string) error {
	f.pushed = append(f.pushed, username+":"+topic)
	return f.err
}

type fakeTopicFrontend struct {
	posts []frontend.TopicPost
	err   error
}

func (f *fakeTopicFrontend) PublishTopic(_ context.Context, post frontend.TopicPost) error {
	f.posts = append(f.posts, post)
	return f.err
}

type topicHarness struct {
	extract  *fakeExtractor
	store    *fakeTopicStore
	announce *fakeAnnouncer
	chat     *fakeChatPusher
	front    *fakeTopicFrontend
	pipe     *topics.Pipeline
}

func newTopicHarness() *topicHarness {
	h := &topicHarness{
		extract:  &fakeExtractor{failFor: map[string]error{}},
		store:    newFakeTopicStore(),
		announce: &fakeAnnouncer{},
		chat:     &fakeChatPusher{},
		front:    &fakeTopicFrontend{},
	}
	h.pipe = &topics.Pipeline{
		Extract:   h.extract,
		Store:     h.store,
		Broadcast: h.announce,
		Chat:      h.chat,
		Frontend:  h.front,
	}
	return h
}

func TestProcessExtractsAndFansOut(t *testing.T) {
	h := newTopicHarness()
	h.extract.topic = "recursion"

	msg := topics.Message{
		Texts:    []string{"what is recursion?"},
		Username: "carol",
		Date:     "2026-04-21",
		Time:     "09:20:00",
	}
	require.NoError(t, h.pipe.Process(context.Background(), msg))

	require.Len(t, h.store.rows, 1)
	for _, rec := range h.store.rows {
		require.NotEmpty(t, rec.TopicID)
		require.Equal(t, "carol", rec.Username)
		require.Equal(t, "recursion", rec.Topic)
	}

	require.Equal(t, []string{"carol:recursion"}, h.announce.announced)
	require.Equal(t, []string{"carol:recursion"}, h.chat.pushed)

	require.Len(t, h.front.posts, 1)
	require.Equal(t, "recursion", h.front.posts[0].Title)
	require.Equal(t, "2026-04-21 09:20:00", h.front.posts[0].Timestamp)

	// The broadcast subject is a fixed localized string.
	require.NotEmpty(t, broadcast.SubjectNewTopic)
}

func TestProcessRejectsBlankTexts(t *testing.T) {
	h := newTopicHarness()

	for _, texts := range [][]string{{}, {""}, {"   ", "\t"}} {
		err := h.pipe.Process(context.Background(), topics.Message{
			Texts:    texts,
			Username: "carol",
			Date:     "2026-04-21",
			Time:     "09:20:00",
		})
		require.Error(t, err)
		require.True(t, faults.IsFormat(err))
	}
	require.Empty(t, h.store.rows)
	require.Empty(t, h.announce.announced)
}

func TestProcessStoreFailureIsFatal(t *testing.T) {
	h := newTopicHarness()
	h.store.err = faults.Dependency("topic store", errors.New("db down"))

	err := h.pipe.Process(context.Background(), topics.Message{
		Texts:    []string{"question"},
		Username: "carol",
		Date:     "2026-04-21",
		Time:     "09:20:00",
	})
	require.Error(t, err)
	require.True(t, faults.IsDependency(err))
	require.Empty(t, h.announce.announced, "no fan-out for an unpersisted topic")
}

func TestProcessFanOutFailuresAreNonFatal(t *testing.T) {
	h := newTopicHarness()
	h.announce.err = errors.New("channel down")
	h.chat.err = errors.New("chat down")
	h.front.err = errors.New("dashboard down")

	require.NoError(t, h.pipe.Process(context.Background(), topics.Message{
		Texts:    []string{"question"},
		Username: "carol",
		Date:     "2026-04-21",
		Time:     "09:20:00",
	}))
	require.Len(t, h.store.rows, 1)
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	h := newTopicHarness()
	h.extract.failFor["broken"] = faults.Dependency("topic extract", errors.New("nlp down"))

	batch := []topics.Message{
		{Texts: []string{"first"}, Username: "a", Date: "2026-04-21", Time: "09:00:00"},
		{Texts: []string{"broken"}, Username: "b", Date: "2026-04-21", Time: "09:01:00"},
		{Texts: []string{"third"}, Username: "c", Date: "2026-04-21", Time: "09:02:00"},
	}
	err := h.pipe.ProcessBatch(context.Background(), batch)
	require.Error(t, err)

	// Messages 1 and 3 were fully processed despite message 2 failing.
	require.Len(t, h.store.rows, 2)
	users := map[string]bool{}
	for _, rec := range h.store.rows {
		users[rec.Username] = true
	}
	require.Equal(t, map[string]bool{"a": true, "c": true}, users)
}
