package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
)

// ErrSignupNotSupported indicates that signup is not supported.
var ErrSignupNotSupported = errors.New("signup not supported")

const minPhoneLength = 10

// TerminalAuth answers the login flow from configuration, falling back to
// prompts on a terminal.
type TerminalAuth struct {
	phone    string
	password string
	in       *bufio.Reader
	out      io.Writer
	logger   *zerolog.Logger
}

var _ auth.UserAuthenticator = (*TerminalAuth)(nil)

func NewTerminalAuth(phone, password string, in io.Reader, out io.Writer, logger *zerolog.Logger) *TerminalAuth {
	return &TerminalAuth{
		phone:    phone,
		password: password,
		in:       bufio.NewReader(in),
		out:      out,
		logger:   logger,
	}
}

func (a *TerminalAuth) prompt(label string) (string, error) {
	_, _ = fmt.Fprint(a.out, label)

	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (a *TerminalAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	code, err := a.prompt("Enter code: ")
	if err != nil {
		return "", fmt.Errorf("failed to read auth code: %w", err)
	}

	return code, nil
}

func (a *TerminalAuth) Phone(_ context.Context) (string, error) {
	phone := a.phone

	if phone == "" {
		var err error

		phone, err = a.prompt("Enter phone: ")
		if err != nil {
			return "", fmt.Errorf("failed to read phone number: %w", err)
		}
	}

	phone = sanitizePhone(phone)
	a.logger.Info().Str("phone", maskPhone(phone)).Msg("Using phone number")

	if len(phone) < minPhoneLength {
		a.logger.Warn().Int("length", len(phone)).Msg("Phone number seems too short, it might be invalid. Ensure it includes country code (e.g. +82...)")
	}

	return phone, nil
}

func (a *TerminalAuth) Password(_ context.Context) (string, error) {
	if a.password != "" {
		return a.password, nil
	}

	password, err := a.prompt("Enter 2FA password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read 2FA password: %w", err)
	}

	return password, nil
}

func (a *TerminalAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (a *TerminalAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, ErrSignupNotSupported
}

func sanitizePhone(phone string) string {
	var sb strings.Builder

	phone = strings.TrimSpace(phone)

	if strings.HasPrefix(phone, "+") {
		sb.WriteByte('+')

		phone = phone[1:]
	}

	for _, char := range phone {
		if char >= '0' && char <= '9' {
			sb.WriteRune(char)
		}
	}

	return sb.String()
}

func maskPhone(phone string) string {
	if len(phone) < 7 {
		return "****"
	}

	return phone[:3] + "****" + phone[len(phone)-2:]
}
