package domain_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vardhanngg/vibron-socket/internal/domain"
)

func TestParseRoomID(t *testing.T) {
	valid := []string{"abc123", "000000", "zzzzzz", "a1b2c3"}
	for _, s := range valid {
		id, err := domain.ParseRoomID(s)
		require.NoError(t, err, s)
		assert.Equal(t, domain.RoomID(s), id)
	}

	invalid := []string{"", "AB12", "abcdef1", "abcde", "ABCDEF", "abc 12", "abc-12", "абвгде"}
	for _, s := range invalid {
		_, err := domain.ParseRoomID(s)
		assert.ErrorIs(t, err, domain.ErrInvalidRoomID, s)
	}
}

func TestNewRoomIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z0-9]{6}$`)
	for i := 0; i < 50; i++ {
		id, err := domain.NewRoomID()
		require.NoError(t, err)
		assert.Regexp(t, pattern, string(id))
	}
}

func TestNewRoomState(t *testing.T) {
	s := domain.NewRoomState("conn-1", false)
	assert.Equal(t, []string{"conn-1"}, s.Users)
	assert.Equal(t, "conn-1", s.LeaderID)
	assert.Empty(t, s.Mood)
	assert.Empty(t, s.Language)
	assert.False(t, s.IsPlaying)
	assert.Zero(t, s.CurrentTime)
}

func TestNewRoomStateMoodMode(t *testing.T) {
	s := domain.NewRoomState("conn-1", true)
	assert.Equal(t, domain.DefaultMood, s.Mood)
	assert.Equal(t, domain.DefaultLanguage, s.Language)
}

func TestAddMemberKeepsDuplicates(t *testing.T) {
	s := domain.NewRoomState("a", false)
	s.AddMember("b")
	s.AddMember("b")
	assert.Equal(t, []string{"a", "b", "b"}, s.Users)
}

func TestRemoveMemberStripsAllOccurrences(t *testing.T) {
	s := domain.NewRoomState("a", false)
	s.AddMember("b")
	s.AddMember("a")
	s.AddMember("c")

	removed := s.RemoveMember("a")
	assert.True(t, removed)
	assert.Equal(t, []string{"b", "c"}, s.Users)
	// Leader left, first remaining member takes over.
	assert.Equal(t, "b", s.LeaderID)

	assert.False(t, s.RemoveMember("missing"))
}

func TestRemoveMemberNonLeaderKeepsLeader(t *testing.T) {
	s := domain.NewRoomState("a", false)
	s.AddMember("b")
	s.RemoveMember("b")
	assert.Equal(t, "a", s.LeaderID)
	assert.False(t, s.Empty())

	s.RemoveMember("a")
	assert.True(t, s.Empty())
}

func TestSetSongResetsPlayback(t *testing.T) {
	s := domain.NewRoomState("a", false)
	s.SetPlayback(false, 120.5)

	s.SetSong("https://cdn/x.mp3", "trk-9", "Title", "Artist", "img.png")
	assert.Equal(t, "https://cdn/x.mp3", s.CurrentSong)
	assert.Equal(t, "trk-9", s.CurrentSongID)
	assert.Zero(t, s.CurrentTime)
	assert.True(t, s.IsPlaying)
	assert.Equal(t, "img.png", s.Image)
}

func TestSetMoodSongClearsImage(t *testing.T) {
	s := domain.NewRoomState("a", true)
	s.SetSong("u1", "id1", "t", "ar", "img.png")

	s.SetMoodSong("u2", "id2", "happy", "spanish", "t2", "ar2")
	assert.Equal(t, "happy", s.Mood)
	assert.Equal(t, "spanish", s.Language)
	assert.Empty(t, s.Image)
	assert.True(t, s.IsPlaying)
	assert.Zero(t, s.CurrentTime)
}

func TestSeekToClampsNegative(t *testing.T) {
	s := domain.NewRoomState("a", false)
	s.SeekTo(-3)
	assert.Zero(t, s.CurrentTime)
	s.SeekTo(17.25)
	assert.Equal(t, 17.25, s.CurrentTime)
}

func TestCloneIsIndependent(t *testing.T) {
	s := domain.NewRoomState("a", false)
	c := s.Clone()
	c.AddMember("b")
	c.LeaderID = "b"
	assert.Equal(t, []string{"a"}, s.Users)
	assert.Equal(t, "a", s.LeaderID)
}
