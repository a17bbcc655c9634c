package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OldStager01/joyce/internal/credentials"
)

func credentialsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the Zabbix password in the system keyring",
	}

	cmd.AddCommand(credentialsSetCommand(opts))
	cmd.AddCommand(credentialsDeleteCommand(opts))
	return cmd
}

func credentialsSetCommand(opts *rootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the password of zabbix.user",
		Long: `Store the password of zabbix.user in the system keyring. Set
zabbix.use_keyring to true to have runs read it from there.

Without --password the password is read from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter Zabbix password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}

			if err := credentials.NewKeyringStore(credentials.ServiceName).Set(cfg.Zabbix.User, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved password for %s\n", cfg.Zabbix.User)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password to store (read from stdin when empty)")
	return cmd
}

func credentialsDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored password of zabbix.user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := credentials.NewKeyringStore(credentials.ServiceName).Delete(cfg.Zabbix.User); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed password for %s\n", cfg.Zabbix.User)
			return nil
		},
	}
}
