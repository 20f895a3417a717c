package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern, subject string
		want             bool
	}{
		{"posts.created", "posts.created", true},
		{"posts.created", "posts.voted", false},
		{"posts.*", "posts.voted", true},
		{"posts.*", "posts.voted.extra", false},
		{"posts.>", "posts.voted.extra", true},
		{"posts.>", "posts", false},
		{"*.created", "posts.created", true},
		{"posts", "posts.created", false},
	}

	for _, tt := range tests {
		got := subjectMatches(strings.Split(tt.pattern, "."), strings.Split(tt.subject, "."))
		assert.Equal(t, tt.want, got, "%s vs %s", tt.pattern, tt.subject)
	}
}

func TestLocalBus_PublishSubscribe(t *testing.T) {
	t.Parallel()

	bus := NewLocalBus()

	var all, created []string
	unsubAll, err := bus.Subscribe("posts.>", func(data []byte) { all = append(all, string(data)) })
	require.NoError(t, err)
	_, err = bus.Subscribe("posts.created", func(data []byte) { created = append(created, string(data)) })
	require.NoError(t, err)

	require.NoError(t, bus.Publish("posts.created", []byte("a")))
	require.NoError(t, bus.Publish("posts.voted", []byte("b")))

	assert.Equal(t, []string{"a", "b"}, all)
	assert.Equal(t, []string{"a"}, created)

	require.NoError(t, unsubAll())
	require.NoError(t, bus.Publish("posts.voted", []byte("c")))
	assert.Equal(t, []string{"a", "b"}, all)

	_, err = bus.Subscribe("", func([]byte) {})
	assert.Error(t, err)
}
