package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/pslog"
	"pkt.systems/sketchroom/internal/appconfig"
	"pkt.systems/sketchroom/internal/auth"
	"pkt.systems/sketchroom/internal/chatlog"
)

const defaultPasswordLength = 20

func newUsersCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage sketchroom users",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newUsersListCmd(&cfgPath))
	cmd.AddCommand(newUsersAddCmd(&cfgPath))
	cmd.AddCommand(newUsersDeleteCmd(&cfgPath))
	cmd.AddCommand(newUsersChpasswd(&cfgPath))
	cmd.AddCommand(newUsersRotateTOTP(&cfgPath))
	cmd.AddCommand(newUsersDisableTOTP(&cfgPath))

	return cmd
}

func openAuth(cmd *cobra.Command, cfgPath string) (*chatlog.Store, *auth.Service, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger := pslog.Ctx(cmd.Context())
	store, err := chatlog.NewStore(cfg.Database.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	svc, err := auth.NewService(store, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, svc, nil
}

func newUsersListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openAuth(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			users, err := store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, user := range users {
				_, _ = fmt.Fprintln(out, user.Username)
			}
			return nil
		},
	}
}

func newUsersAddCmd(cfgPath *string) *cobra.Command {
	var passwordFromStdin bool
	var autoPassword bool
	var name string
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			password, generated, err := resolvePassword(cmd, passwordFromStdin, autoPassword)
			if err != nil {
				return err
			}
			store, svc, err := openAuth(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			userID, err := svc.Signup(cmd.Context(), username, password, name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "username: %s\n", username)
			_, _ = fmt.Fprintf(out, "user_id: %s\n", userID)
			if generated {
				_, _ = fmt.Fprintf(out, "password: %s\n", password)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordFromStdin, "password-from-stdin", false, "read password from stdin")
	cmd.Flags().BoolVar(&autoPassword, "auto-password", false, "generate a random password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newUsersDeleteCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openAuth(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			user, err := store.UserByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteUser(cmd.Context(), user.ID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted user: %s\n", args[0])
			return nil
		},
	}
}

func newUsersChpasswd(cfgPath *string) *cobra.Command {
	var passwordFromStdin bool
	var autoPassword bool
	cmd := &cobra.Command{
		Use:   "chpasswd <username>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			password, generated, err := resolvePassword(cmd, passwordFromStdin, autoPassword)
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			store, _, err := openAuth(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			user, err := store.UserByUsername(cmd.Context(), username)
			if err != nil {
				return err
			}
			if err := store.UpdateUserPassword(cmd.Context(), user.ID, hash); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "username: %s\n", username)
			if generated {
				_, _ = fmt.Fprintf(out, "password: %s\n", password)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordFromStdin, "password-from-stdin", false, "read password from stdin")
	cmd.Flags().BoolVar(&autoPassword, "auto-password", false, "generate a random password")
	return cmd
}

func newUsersRotateTOTP(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-totp <username>",
		Short: "Enroll or rotate a user's TOTP secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, svc, err := openAuth(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			key, err := svc.EnrollTOTP(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "username: %s\n", args[0])
			_, _ = fmt.Fprintf(out, "totp_secret: %s\n", key.Secret())
			_, _ = fmt.Fprintf(out, "otpauth_url: %s\n", key.URL())
			_, _ = fmt.Fprintln(out, "totp_qr:")
			qrterminal.GenerateHalfBlock(key.URL(), qrterminal.L, out)
			return nil
		},
	}
}

func newUsersDisableTOTP(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "disable-totp <username>",
		Short: "Disable a user's TOTP requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, svc, err := openAuth(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := svc.DisableTOTP(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "totp disabled: %s\n", args[0])
			return nil
		},
	}
}

func resolvePassword(cmd *cobra.Command, fromStdin, auto bool) (string, bool, error) {
	if fromStdin && auto {
		return "", false, errors.New("choose one of --password-from-stdin or --auto-password")
	}
	if fromStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", false, err
		}
		pass := strings.TrimSpace(string(data))
		if pass == "" {
			return "", false, errors.New("password from stdin is empty")
		}
		return pass, false, nil
	}
	if auto {
		pass, err := generatePassword(defaultPasswordLength)
		if err != nil {
			return "", false, err
		}
		return pass, true, nil
	}
	passphrase, err := keymgmt.PromptPassphrase(cmd.InOrStdin(), "Password: ", cmd.ErrOrStderr())
	if err != nil {
		return "", false, err
	}
	confirm, err := keymgmt.PromptPassphrase(cmd.InOrStdin(), "Confirm password: ", cmd.ErrOrStderr())
	if err != nil {
		return "", false, err
	}
	if string(passphrase) != string(confirm) {
		return "", false, errors.New("passwords do not match")
	}
	pass := string(passphrase)
	if pass == "" {
		return "", false, errors.New("password is empty")
	}
	return pass, false, nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		length = defaultPasswordLength
	}
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	for i, b := range bytes {
		bytes[i] = charset[int(b)%len(charset)]
	}
	return string(bytes), nil
}
