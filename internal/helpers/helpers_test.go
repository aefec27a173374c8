package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPasswordStrong(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Str0ng!pass", true},
		{"Sh0rt!", false},
		{"alllower1!", false},
		{"ALLUPPER1!", false},
		{"NoDigits!!", false},
		{"NoSymbol11", false},
		{"Hyphen-0k", true},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPasswordStrong(tt.password))
		})
	}
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	require.NoError(t, err)
	b, err := RandomToken(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, "abc", HashToken("abc"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestIsRemoteURL(t *testing.T) {
	assert.True(t, IsRemoteURL("https://cdn.example.com/a.jpg"))
	assert.True(t, IsRemoteURL(" HTTP://x"))
	assert.False(t, IsRemoteURL("data:image/png;base64,AAAA"))
	assert.False(t, IsRemoteURL("/tmp/a.jpg"))
}

func TestCloudinaryUploader_Disabled(t *testing.T) {
	var u *CloudinaryUploader
	_, err := u.Upload(context.Background(), "data:image/png;base64,AAAA", PropertyFolder)
	assert.ErrorIs(t, err, ErrUploadsDisabled)

	_, err = NewCloudinaryUploader(nil).Upload(context.Background(), "x", PropertyFolder)
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}
