package telegram

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"+82 10-1234-5678", "+821012345678"},
		{" 010 1234 5678\n", "01012345678"},
		{"+1 (555) 010-9999", "+15550109999"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizePhone(tt.input), tt.input)
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+82****78", maskPhone("+821012345678"))
	assert.Equal(t, "****", maskPhone("123"))
}

func TestTerminalAuthPrompts(t *testing.T) {
	logger := zerolog.Nop()
	out := &bytes.Buffer{}

	a := NewTerminalAuth("", "", strings.NewReader("+82 10 1234 5678\n12345\nsecret"), out, &logger)

	phone, err := a.Phone(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "+821012345678", phone)

	code, err := a.Code(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "12345", code)

	password, err := a.Password(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", password)

	assert.Contains(t, out.String(), "Enter phone: ")
	assert.Contains(t, out.String(), "Enter 2FA password: ")
}

func TestTerminalAuthUsesConfiguredValues(t *testing.T) {
	logger := zerolog.Nop()

	a := NewTerminalAuth("+821099998888", "pw", strings.NewReader(""), &bytes.Buffer{}, &logger)

	phone, err := a.Phone(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "+821099998888", phone)

	password, err := a.Password(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pw", password)

	_, err = a.Code(context.Background(), nil)
	assert.Error(t, err)

	_, err = a.SignUp(context.Background())
	assert.ErrorIs(t, err, ErrSignupNotSupported)
}
