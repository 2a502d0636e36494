package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flemzord/coffee/internal/identity"
	"github.com/flemzord/coffee/internal/live"
	"github.com/flemzord/coffee/pkg/app"
)

func loginCmd() *cobra.Command {
	var userID, token, email, phone string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				if err := loginForm(&userID, &token, &email); err != nil {
					return err
				}
			}
			params := app.ClientParams{RunParams: runParams(cmd)}
			created, err := app.SignIn(cmd.Context(), params, identity.Session{UserID: strings.TrimSpace(userID), Token: token}, email, phone)
			if err != nil {
				return err
			}
			verb := "Signed in"
			if created {
				verb = "Account created, signed in"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s as %s\n", verb, accent.Render(userID))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id (prompts when empty)")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token for the backend")
	cmd.Flags().StringVar(&email, "email", "", "Email to sync")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone to sync")
	return cmd
}

func loginForm(userID, token, email *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("User id").
				Value(userID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("user id is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Access token").
				EchoMode(huh.EchoModePassword).
				Value(token),
			huh.NewInput().
				Title("Email").
				Value(email),
		),
	).Run()
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.NewClient(cmd.Context(), app.ClientParams{RunParams: runParams(cmd)})
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.NewClient(cmd.Context(), app.ClientParams{RunParams: runParams(cmd)})
			if err != nil {
				return err
			}
			defer c.Close()

			sess, err := c.Session(cmd.Context())
			if err != nil {
				return err
			}
			if err := sess.LoadConversations(cmd.Context()); err != nil {
				return err
			}
			renderConversations(cmd.OutOrStdout(), sess.Snapshot().Conversations)
			return nil
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <counterpart>",
		Short: "Open a live thread and send lines read from stdin",
		Long: "Open a live thread with a counterpart. Each input line is sent as a message.\n" +
			"Commands: /retry <temp-id>, /discard <temp-id>, /quit.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			changed := make(chan struct{}, 1)
			params := app.ClientParams{
				RunParams: runParams(cmd),
				OnEvent: func(ev live.Event) {
					if ev.Kind == live.ThreadChanged || ev.Kind == live.StaleChanged {
						select {
						case changed <- struct{}{}:
						default:
						}
					}
				},
			}
			c, err := app.NewClient(ctx, params)
			if err != nil {
				return err
			}
			defer c.Close()

			sess, err := c.Session(ctx)
			if err != nil {
				return err
			}
			if err := sess.OpenThread(ctx, args[0]); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			r := newThreadPrinter(out, sess.Self())
			r.print(sess.Snapshot())

			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-changed:
						r.print(sess.Snapshot())
					}
				}
			}()

			err = chatLoop(ctx, cmd.InOrStdin(), out, sess)

			// Sends are bounded by the session send timeout.
			if ferr := sess.Flush(context.WithoutCancel(ctx)); ferr != nil {
				return errors.Join(err, ferr)
			}
			r.print(sess.Snapshot())
			return err
		},
	}
}

// chatLoop sends every line of in until EOF, /quit or ctx is done.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, sess *live.Session) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := chatCommand(sess, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintln(out, failed.Render(err.Error()))
			}
		}
	}
}

var errQuit = errors.New("quit")

func chatCommand(sess *live.Session, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "/quit":
		return errQuit
	case strings.HasPrefix(line, "/retry "):
		return sess.Retry(strings.TrimSpace(strings.TrimPrefix(line, "/retry ")))
	case strings.HasPrefix(line, "/discard "):
		return sess.Discard(strings.TrimSpace(strings.TrimPrefix(line, "/discard ")))
	default:
		_, err := sess.Send(line)
		return err
	}
}
