package main

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	sessionModel "cardistry-catalog/internal/domains/session/model"
)

var (
	authEmail       string
	authPassword    string
	authDisplayName string
	authPhotoURL    string
	authCopy        bool
)

// authCmd groups session commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your catalog session",
	Long: `Register, sign in and sign out.

Available subcommands:
  register - Create an email/password account
  sign-in  - Sign in and print a session token
  sign-out - Revoke the current token
  whoami   - Show who the current token belongs to`,
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an email/password account",
	RunE:  runAuthRegister,
}

// authSignInCmd prints only the token on stdout so it can be captured.
var authSignInCmd = &cobra.Command{
	Use:   "sign-in",
	Short: "Sign in and print a session token",
	RunE:  runAuthSignIn,
}

var authSignOutCmd = &cobra.Command{
	Use:   "sign-out",
	Short: "Revoke the current session token",
	RunE:  runAuthSignOut,
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	RunE:  runAuthWhoami,
}

func init() {
	for _, c := range []*cobra.Command{authRegisterCmd, authSignInCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email (required)")
		c.Flags().StringVar(&authPassword, "password", "", "Account password (required)")
		c.MarkFlagRequired("email")    //nolint:errcheck
		c.MarkFlagRequired("password") //nolint:errcheck
	}
	authRegisterCmd.Flags().StringVar(&authDisplayName, "name", "", "Display name (required)")
	authRegisterCmd.Flags().StringVar(&authPhotoURL, "photo", "", "Avatar URL")
	authRegisterCmd.MarkFlagRequired("name") //nolint:errcheck
	authSignInCmd.Flags().BoolVar(&authCopy, "copy", false, "Also copy the token to the clipboard")

	authCmd.AddCommand(authRegisterCmd, authSignInCmd, authSignOutCmd, authWhoamiCmd)
}

func runAuthRegister(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	identity, err := newClient().Register(ctx, sessionModel.RegisterRequest{
		Email:       authEmail,
		Password:    authPassword,
		DisplayName: authDisplayName,
		PhotoURL:    authPhotoURL,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Registered %s <%s>\n", okMark(), identity.DisplayName, identity.Email)
	return nil
}

func runAuthSignIn(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := newClient().SignIn(ctx, authEmail, authPassword)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s Signed in as %s (expires %s)\n",
		okMark(), res.Identity.DisplayName, res.ExpiresAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintln(cmd.OutOrStdout(), res.Token)

	if authCopy {
		if err := clipboard.WriteAll(res.Token); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("could not copy token: "+err.Error()))
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("token copied to clipboard"))
		}
	}
	return nil
}

func runAuthSignOut(cmd *cobra.Command, args []string) error {
	if token == "" {
		return fmt.Errorf("not signed in: pass --token or set CATALOG_TOKEN")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := newClient().SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out\n", okMark())
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	sess, err := newClient().Me(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Signed out"))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderIdentity(sess))
	return nil
}
