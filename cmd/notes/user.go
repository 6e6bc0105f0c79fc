package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/notes/internal/auth"
	"github.com/dukerupert/notes/internal/database"
	"github.com/dukerupert/notes/internal/form"
	"github.com/dukerupert/notes/internal/store"
)

var (
	username string
	password string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := &form.Signup{Username: username, Password1: password, Password2: password, Errors: form.Errors{}}
		if !f.Validate() {
			return formError(f.Errors)
		}

		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		u, err := store.NewUserStore(db).Create(username, hash)
		if errors.Is(err, store.ErrUsernameTaken) {
			return fmt.Errorf("user %q already exists", username)
		}
		if err != nil {
			return err
		}

		logger.Info("user created", "user_id", u.ID, "username", u.Username)
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", u.Username, u.ID)
		return nil
	},
}

var userSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Replace a user's password and end their sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := &form.Signup{Username: username, Password1: password, Password2: password, Errors: form.Errors{}}
		if !f.Validate() {
			return formError(f.Errors)
		}

		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		users := store.NewUserStore(db)
		u, err := users.GetByUsername(username)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("user %q not found", username)
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		if err := users.UpdatePassword(u.ID, hash); err != nil {
			return err
		}
		if err := store.NewSessionStore(db, cfg.SessionTTL).DeleteByUserID(u.ID); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", u.Username)
		return nil
	},
}

func formError(errs form.Errors) error {
	var msgs []error
	for field, list := range errs {
		for _, msg := range list {
			msgs = append(msgs, fmt.Errorf("%s: %s", field, msg))
		}
	}
	return errors.Join(msgs...)
}

func init() {
	for _, c := range []*cobra.Command{userCreateCmd, userSetPasswordCmd} {
		c.Flags().StringVar(&username, "username", "", "Username")
		c.Flags().StringVar(&password, "password", "", "Password (at least 8 characters)")
		c.MarkFlagRequired("username")
		c.MarkFlagRequired("password")
	}
	userCmd.AddCommand(userCreateCmd, userSetPasswordCmd)
	rootCmd.AddCommand(userCmd)
}
