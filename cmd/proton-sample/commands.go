package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/eppie-io/go-proton-client/auth"
	"github.com/eppie-io/go-proton-client/auth/srp/gosrp"
	"github.com/eppie-io/go-proton-client/internal/config"
	"github.com/eppie-io/go-proton-client/restclient"
	"github.com/eppie-io/go-proton-client/session"
)

const sessionFilePerm = 0o600

// refreshReserve forces a refresh when the token has less than this left.
const refreshReserve = 5 * time.Minute

func newRootCommand() *cobra.Command {
	var sessionFile string

	root := &cobra.Command{
		Use:          "proton-sample",
		Short:        "Demonstrates the Proton session lifecycle",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&sessionFile, "session-file", "proton-session.json", "file the session is persisted to")

	root.AddCommand(
		newLoginCommand(&sessionFile),
		newStatusCommand(&sessionFile),
		newRefreshCommand(&sessionFile),
		newCountCommand(&sessionFile),
		newLogoutCommand(&sessionFile),
	)
	return root
}

func newLoginCommand(sessionFile *string) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}

			password, err := prompt("Password: ")
			if err != nil {
				return err
			}

			if err := s.Login(cmd.Context(), username, password); err != nil {
				var reqErr *session.RequestError
				if errors.As(err, &reqErr) && reqErr.Verification != nil {
					return errors.Errorf("human verification required, supported methods: %s",
						strings.Join(reqErr.Verification.Methods, ", "))
				}
				return err
			}

			if s.IsTwoFactor() {
				code, err := prompt("Second factor code: ")
				if err != nil {
					return err
				}
				if err := s.ProvideTwoFactorCode(cmd.Context(), code); err != nil {
					return err
				}
			}

			if err := saveSession(s, *sessionFile); err != nil {
				return err
			}
			cmd.Printf("Logged in as %s (scopes: %s)\n", username, strings.Join(s.Scopes(), ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newStatusCommand(sessionFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSession(*sessionFile)
			if err != nil {
				return err
			}

			expired, err := s.IsExpired(0)
			if err != nil {
				return err
			}

			cmd.Printf("UID:     %s\n", s.UID())
			cmd.Printf("Scopes:  %s\n", strings.Join(s.Scopes(), ", "))
			if expiresAt := s.ExpiresAt(); !expiresAt.IsZero() {
				cmd.Printf("Expires: %s\n", expiresAt.Format(time.RFC3339))
			}
			cmd.Printf("Expired: %t\n", expired)
			return nil
		},
	}
}

func newRefreshCommand(sessionFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the persisted session's tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSession(*sessionFile)
			if err != nil {
				return err
			}
			if err := s.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := saveSession(s, *sessionFile); err != nil {
				return err
			}
			cmd.Printf("Session refreshed, now expires %s\n", s.ExpiresAt().Format(time.RFC3339))
			return nil
		},
	}
}

func newCountCommand(sessionFile *string) *cobra.Command {
	// countResponse mirrors the mail message-count reply. Payload schemas are
	// demo-local; the library ships only the envelope.
	type countResponse struct {
		restclient.CommonResponse
		Counts []struct {
			LabelID string `json:"LabelID"`
			Total   int    `json:"Total"`
			Unread  int    `json:"Unread"`
		} `json:"Counts"`
	}

	return &cobra.Command{
		Use:   "count",
		Short: "Fetch per-label message counts through the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSession(*sessionFile)
			if err != nil {
				return err
			}

			expired, err := s.IsExpired(refreshReserve)
			if err != nil {
				return err
			}
			if expired {
				if err := s.Refresh(cmd.Context()); err != nil {
					return err
				}
				if err := saveSession(s, *sessionFile); err != nil {
					return err
				}
			}

			msg := restclient.NewMessage[countResponse]("GET", "/mail/v4/messages/count")
			if _, err := s.Dispatch(cmd.Context(), msg); err != nil {
				return err
			}

			for _, count := range msg.Response.Counts {
				cmd.Printf("label %-10s total %-6d unread %d\n", count.LabelID, count.Total, count.Unread)
			}
			return nil
		},
	}
}

func newLogoutCommand(sessionFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSession(*sessionFile)
			if err != nil {
				return err
			}
			if err := s.Logout(cmd.Context()); err != nil {
				return err
			}
			if err := os.Remove(*sessionFile); err != nil {
				return errors.Wrap(err, "remove session file")
			}
			cmd.Println("Logged out")
			return nil
		},
	}
}

// newSession wires a session against the env-configured host.
func newSession() (*session.Session, error) {
	c := config.New()
	logger := newLogger(c)

	client, err := restclient.New(c.GetHost(),
		restclient.WithUserAgent(c.GetUserAgent()),
		restclient.WithAppVersion(c.GetAppVersion()),
		restclient.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	broker, err := auth.NewBroker(client, gosrp.New(),
		auth.WithClientSecret(c.GetClientSecret()),
		auth.WithRedirectURI(c.GetRedirectURI()),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return session.New(broker, client,
		session.WithUserAgent(c.GetUserAgent()),
		session.WithAppVersion(c.GetAppVersion()),
		session.WithLogger(logger),
	)
}

func loadSession(sessionFile string) (*session.Session, error) {
	s, err := newSession()
	if err != nil {
		return nil, err
	}

	dump, err := os.ReadFile(sessionFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read session file %q (run login first)", sessionFile)
	}
	if err := s.Load(dump); err != nil {
		return nil, err
	}
	return s, nil
}

func saveSession(s *session.Session, sessionFile string) error {
	dump, err := s.Dump()
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(sessionFile, dump, sessionFilePerm), "write session file")
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "read input")
	}
	return strings.TrimSpace(line), nil
}
