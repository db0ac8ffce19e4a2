package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatusTag(t *testing.T) {
	tests := []struct {
		name  string
		count int64
		want  StatusTag
	}{
		{name: "negative clamps to empty", count: -5, want: TagEmpty},
		{name: "zero is empty", count: 0, want: TagEmpty},
		{name: "one is moderate", count: 1, want: TagModerate},
		{name: "just below busy", count: 29, want: TagModerate},
		{name: "busy threshold", count: 30, want: TagBusy},
		{name: "just below full", count: 79, want: TagBusy},
		{name: "full threshold", count: 80, want: TagFull},
		{name: "way over", count: 5000, want: TagFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatusTag(tt.count))
		})
	}
}

func TestValidTag(t *testing.T) {
	for _, tag := range []StatusTag{TagEmpty, TagModerate, TagBusy, TagFull} {
		assert.True(t, ValidTag(tag), "tag %q should be valid", tag)
	}

	assert.False(t, ValidTag(""))
	assert.False(t, ValidTag("packed"))
	assert.False(t, ValidTag("BUSY"))
}

func TestStatusTagAtCapacity(t *testing.T) {
	assert.False(t, TagEmpty.AtCapacity())
	assert.False(t, TagModerate.AtCapacity())
	assert.True(t, TagBusy.AtCapacity())
	assert.True(t, TagFull.AtCapacity())
}

func TestActorAuthenticated(t *testing.T) {
	assert.False(t, Actor{}.Authenticated())
	assert.True(t, Actor{ID: uuid.New(), Role: RoleUser}.Authenticated())
}

func TestValidVoteStatus(t *testing.T) {
	assert.True(t, ValidVoteStatus(VoteYes))
	assert.True(t, ValidVoteStatus(VoteMaybe))
	assert.True(t, ValidVoteStatus(VoteNo))
	assert.False(t, ValidVoteStatus("definitely"))
	assert.False(t, ValidVoteStatus(""))
}
