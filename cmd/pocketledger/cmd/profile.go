package cmd

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmcleod/pocketledger/internal/i18n"
	"github.com/jmcleod/pocketledger/model"
)

func printProfile(w io.Writer, p model.Profile) {
	line(w, "%s <%s>", p.Name, p.Email)
}

func newProfileCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the signed-in profile",
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the profile from the backend and update the local copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(a *app) error {
				res := a.session.RefreshProfile(cmd.Context())
				if err := check(res); err != nil {
					return err
				}
				return o.emit(cmd, res.Data, func(w io.Writer) { printProfile(w, *res.Data) })
			})
		},
	}

	var name, email string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change name and email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(a *app) error {
				current := a.session.State().User
				if !cmd.Flags().Changed("name") {
					name = current.Name
				}
				if !cmd.Flags().Changed("email") {
					email = current.Email
				}
				res := a.session.UpdateProfile(cmd.Context(), name, email)
				if err := check(res); err != nil {
					return err
				}
				return o.emit(cmd, res.Data.User, func(w io.Writer) {
					line(w, "%s", a.printer.Text(i18n.ProfileUpdated))
					printProfile(w, res.Data.User)
				})
			})
		},
	}
	update.Flags().StringVarP(&name, "name", "n", "", "New name")
	update.Flags().StringVarP(&email, "email", "e", "", "New email")

	cmd.AddCommand(refresh, update)
	return cmd
}

func newAccountCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the account",
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Permanently delete the account and all its data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(a *app) error {
				if !yes {
					return errors.New(a.printer.Text(i18n.ConfirmDelete))
				}
				res := a.session.DeleteAccount(cmd.Context())
				if err := check(res); err != nil {
					return err
				}
				return o.emit(cmd, res.Data, func(w io.Writer) {
					line(w, "%s", a.printer.Text(i18n.AccountDeleted))
				})
			})
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")

	cmd.AddCommand(del)
	return cmd
}
