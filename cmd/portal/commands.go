package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jrsteele09/go-portal-client/auth"
	"github.com/jrsteele09/go-portal-client/gate"
	"github.com/jrsteele09/go-portal-client/internal/config"
	"github.com/jrsteele09/go-portal-client/users"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	isTerminalFunc   = term.IsTerminal

	errNotLoggedIn    = errors.New("not logged in, run `portal login`")
	errSessionExpired = errors.New("session expired, run `portal login`")
)

type cli struct {
	verbose bool
	stdin   *bufio.Reader
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "portal",
		Short:         "Faculty portal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at the configured LOG_LEVEL instead of warnings only")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.profileCmd(),
		c.passwdCmd(),
		c.openCmd(),
		c.getCmd(),
		c.serveCmd(),
	)
	return root
}

// run wires an app, restores the stored session and hands both to fn.
func (c *cli) run(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg := config.New()
		a, err := newApp(ctx, cfg, newLogger(cfg, cmd.ErrOrStderr(), !c.verbose))
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.restore(ctx, cmd.ErrOrStderr()); err != nil {
			return err
		}
		return fn(ctx, cmd, a, args)
	}
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and save the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			var username string
			if len(args) == 1 {
				username = args[0]
			} else {
				var err error
				if username, err = c.prompt(cmd, "Username: "); err != nil {
					return err
				}
			}
			password, err := c.secret(cmd, "Password: ")
			if err != nil {
				return err
			}

			result, err := a.flows.Login(ctx, username, password)
			if err != nil && result == nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err != nil {
				printf(cmd.ErrOrStderr(), "Warning: the session could not be saved (%v)\n", err)
			}
			printf(out, "Logged in as %s (%s)\n", result.Identity.DisplayName(), result.Identity.Role)
			if result.Next == gate.RouteChangePassword {
				printf(out, "You must change your password before continuing: run `portal passwd`\n")
				return nil
			}
			printf(out, "Start at %s\n", result.Next)
			return nil
		}),
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := a.flows.Logout(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("backend logout failed")
			}
			printf(cmd.OutOrStdout(), "Logged out\n")
			return nil
		}),
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			identity := a.controller.CurrentIdentity()
			if identity == nil {
				return errNotLoggedIn
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeIndented(out, identity)
			}

			printf(out, "Name:     %s\n", identity.DisplayName())
			printf(out, "Username: %s\n", identity.Username)
			printf(out, "Role:     %s\n", identity.Role)
			printf(out, "Home:     %s\n", identity.LandingRoute())
			if identity.FirstLoginRequired {
				printf(out, "Password: change required\n")
			}
			credential, err := a.controller.Credential(ctx)
			if err != nil {
				return err
			}
			if expiry, ok := auth.CredentialExpiry(credential); ok {
				printf(out, "Expires:  %s (%s)\n", expiry.Local().Format(time.RFC1123), time.Until(expiry).Round(time.Second))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the identity as JSON")
	return cmd
}

func (c *cli) profileCmd() *cobra.Command {
	var firstName, lastName, email, phone, address string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the profile",
		Long:  "Without flags the profile is re-read from the portal. With flags the given fields are updated.",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.run(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
		var patch users.ProfilePatch
		changed := false
		set := func(flag string, value string, field **string) {
			if cmd.Flags().Changed(flag) {
				v := value
				*field = &v
				changed = true
			}
		}
		set("first-name", firstName, &patch.FirstName)
		set("last-name", lastName, &patch.LastName)
		set("email", email, &patch.Email)
		set("phone", phone, &patch.PhoneNumber)
		set("address", address, &patch.Address)

		var identity *users.Identity
		var err error
		if changed {
			identity, err = a.flows.UpdateProfile(ctx, patch)
		} else {
			identity, err = a.flows.Refresh(ctx)
		}
		if identity == nil {
			return notLoggedIn(err)
		}
		if err != nil {
			printf(cmd.ErrOrStderr(), "Warning: the profile could not be saved locally (%v)\n", err)
		}
		return writeIndented(cmd.OutOrStdout(), identity)
	})
	cmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "new last name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&phone, "phone", "", "new phone number")
	cmd.Flags().StringVar(&address, "address", "", "new postal address")
	return cmd
}

func (c *cli) passwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the password",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if a.controller.CurrentIdentity() == nil {
				return errNotLoggedIn
			}
			var change users.PasswordChange
			var err error
			if change.CurrentPassword, err = c.secret(cmd, "Current password: "); err != nil {
				return err
			}
			if change.NewPassword, err = c.secret(cmd, "New password: "); err != nil {
				return err
			}
			if change.ConfirmPassword, err = c.secret(cmd, "Confirm new password: "); err != nil {
				return err
			}

			next, err := a.flows.ChangePassword(ctx, change)
			if next == "" {
				return notLoggedIn(err)
			}
			if err != nil {
				printf(cmd.ErrOrStderr(), "Warning: the session could not be saved (%v)\n", err)
			}
			printf(cmd.OutOrStdout(), "Password changed. Start at %s\n", next)
			return nil
		}),
	}
}

func (c *cli) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Check where navigating to a portal screen would lead",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(_ context.Context, cmd *cobra.Command, a *app, args []string) error {
			d := a.gate.Decide(args[0], a.controller.CurrentIdentity())
			out := cmd.OutOrStdout()
			switch d.Kind {
			case gate.KindAdmit:
				printf(out, "admit %s (%s)\n", d.Target, d.Route.Name)
				for name, value := range d.Params {
					printf(out, "  %s=%s\n", name, value)
				}
			case gate.KindRedirect:
				printf(out, "redirect %s\n", d.Target)
			default:
				return errors.Errorf("no screen at %s", args[0])
			}
			return nil
		}),
	}
}

func (c *cli) getCmd() *cobra.Command {
	var method, data string
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Call a backend API path with the saved session and print the response",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.run(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		var body io.Reader
		if data != "" {
			body = strings.NewReader(data)
		}
		resp, err := a.api.Raw(ctx, strings.ToUpper(method), args[0], body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			return errSessionExpired
		}
		if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
			return errors.Wrap(err, "reading response")
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return errors.Errorf("%s %s: %s", method, args[0], resp.Status)
		}
		return nil
	})
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

// prompt reads one line of visible input.
func (c *cli) prompt(cmd *cobra.Command, label string) (string, error) {
	printf(cmd.ErrOrStderr(), "%s", label)
	if c.stdin == nil {
		c.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	line, err := c.stdin.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Wrap(err, "reading input")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// secret reads a password without echo when stdin is a terminal.
func (c *cli) secret(cmd *cobra.Command, label string) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminalFunc(int(f.Fd())) {
		return c.prompt(cmd, label)
	}
	printf(cmd.ErrOrStderr(), "%s", label)
	pwd, err := readPasswordFunc(int(f.Fd()))
	printf(cmd.ErrOrStderr(), "\n")
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

func notLoggedIn(err error) error {
	if errors.Is(err, auth.ErrNotAuthenticated) {
		return errNotLoggedIn
	}
	return err
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
