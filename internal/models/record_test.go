package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayNameFallbacks(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)

	tests := []struct {
		name     string
		record   HistoryRecord
		expected string
	}{
		{
			name:     "filename wins",
			record:   HistoryRecord{Filename: "cat.png", Hash: "abc123", URL: "https://img.example.com/x/y.png"},
			expected: "cat.png",
		},
		{
			name:     "hash when no filename",
			record:   HistoryRecord{Hash: "abc123", URL: "https://img.example.com/x/y.png"},
			expected: "abc123",
		},
		{
			name:     "url segment when no hash",
			record:   HistoryRecord{URL: "https://img.example.com/x/y.png?token=1"},
			expected: "y.png",
		},
		{
			name:     "timestamp placeholder",
			record:   HistoryRecord{CreatedAt: created},
			expected: "image-20250314-092653",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.record.DisplayName())
		})
	}
}

func TestRecordKeyPrefersServerID(t *testing.T) {
	rec := HistoryRecord{ID: 42, Hash: "abc", URL: "https://img.example.com/a.png"}
	assert.Equal(t, "id:42", rec.Key())

	rec.ID = 0
	assert.Equal(t, "hash:abc", rec.Key())

	rec.Hash = ""
	assert.Equal(t, "url:https://img.example.com/a.png", rec.Key())
}

func TestMirrorsSynthesizesFromPrimaryURL(t *testing.T) {
	rec := HistoryRecord{URL: "https://img.example.com/a.png", Service: "imgbed"}
	mirrors := rec.Mirrors()
	require.Len(t, mirrors, 1)
	assert.Equal(t, "imgbed", mirrors[0].Service)
	assert.Equal(t, rec.URL, mirrors[0].URL)

	rec.AllResults = []Mirror{
		{Service: "imgbed", URL: "https://img.example.com/a.png"},
		{Service: "cdn", URL: "https://cdn.example.com/a.png"},
	}
	assert.Len(t, rec.Mirrors(), 2)
}

func TestCanModify(t *testing.T) {
	mine := true
	notMine := false

	rec := HistoryRecord{}
	assert.True(t, rec.CanModify(), "private view records have no ownership flag")

	rec.IsMine = &mine
	assert.True(t, rec.CanModify())

	rec.IsMine = &notMine
	assert.False(t, rec.CanModify())
}

func TestNormalizeURL(t *testing.T) {
	origin := "https://img.example.com"

	assert.Equal(t, "https://img.example.com/i/a.png", NormalizeURL("/i/a.png", origin))
	assert.Equal(t, "https://cdn.other.com/a.png", NormalizeURL("https://cdn.other.com/a.png", origin))
	assert.Equal(t, "", NormalizeURL("", origin))
}

func TestParseServerTimeTreatsNaiveAsUTC(t *testing.T) {
	parsed, err := ParseServerTime("2025-06-01 10:00:00")
	require.NoError(t, err)

	expected := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).Local()
	assert.True(t, parsed.Equal(expected))
}

func TestParseServerTimeKeepsExplicitZone(t *testing.T) {
	parsed, err := ParseServerTime("2025-06-01T10:00:00+08:00")
	require.NoError(t, err)

	expected := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
	assert.True(t, parsed.Equal(expected))
}

func TestFormatDisplayTimeDegradesGracefully(t *testing.T) {
	assert.Equal(t, "not really a timest", FormatDisplayTime("not really a timestamp at all"))
	assert.Equal(t, "short", FormatDisplayTime("short"))

	formatted := FormatDisplayTime("2025-06-01 10:00:00")
	assert.NotEmpty(t, formatted)
	_, err := time.Parse("2006-01-02 15:04:05", formatted)
	assert.NoError(t, err)
}

func TestViewModeValid(t *testing.T) {
	assert.True(t, ViewPrivate.Valid())
	assert.True(t, ViewShared.Valid())
	assert.True(t, ViewAdminAll.Valid())
	assert.False(t, ViewMode("everything").Valid())
}
