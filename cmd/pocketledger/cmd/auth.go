package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/pocketledger/internal/i18n"
)

// readPassword returns flagValue, or the first line of in when it is empty.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCmd(o *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long:  `Sign in with email and password. The password is read from stdin when --password is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(a *app) error {
				res := a.session.Login(cmd.Context(), email, pw)
				if err := check(res); err != nil {
					return err
				}
				return o.emit(cmd, res.Data.User, func(w io.Writer) {
					line(w, "%s", a.printer.Text(i18n.LoggedIn, res.Data.User.Name))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	return cmd
}

func newRegisterCmd(o *rootOptions) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long:  `Create an account. Registration does not sign you in; run login afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(a *app) error {
				res := a.session.Register(cmd.Context(), name, email, pw)
				if err := check(res); err != nil {
					return err
				}
				return o.emit(cmd, res.Data.User, func(w io.Writer) {
					line(w, "%s", a.printer.Text(i18n.Registered, res.Data.User.Email))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Full name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (at least 6 characters)")
	return cmd
}

func newLogoutCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(a *app) error {
				a.session.Logout(cmd.Context())
				return o.emit(cmd, a.session.State(), func(w io.Writer) {
					line(w, "%s", a.printer.Text(i18n.LoggedOut))
				})
			})
		},
	}
}

type whoami struct {
	Status    string     `json:"status"`
	Name      string     `json:"nome,omitempty"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expira_em,omitempty"`
}

func newWhoamiCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session without contacting the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(a *app) error {
				st := a.session.State()
				out := whoami{Status: st.Status.String()}
				if st.User != nil {
					out.Name, out.Email = st.User.Name, st.User.Email
				}
				if exp, ok := a.session.ExpiresAt(); ok {
					out.ExpiresAt = &exp
				}
				return o.emit(cmd, out, func(w io.Writer) {
					if st.User == nil {
						line(w, "%s", a.printer.Text(i18n.NotSignedIn))
						return
					}
					line(w, "%s <%s>", out.Name, out.Email)
					if out.ExpiresAt != nil {
						line(w, "%s", a.printer.Text(i18n.SessionExpires, out.ExpiresAt.Local().Format(time.DateTime)))
					}
				})
			})
		},
	}
}
