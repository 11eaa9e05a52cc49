package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	integrationsCmd := &cobra.Command{Use: "integrations", Short: "Provider integration operations"}

	// connect
	var provider, accessToken, accountLogin, installationID string
	connectCmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a source-control provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" || accessToken == "" {
				return fmt.Errorf("--user and --access-token required")
			}
			metadata := map[string]string{}
			if accountLogin != "" {
				metadata["accountLogin"] = accountLogin
			}
			if installationID != "" {
				metadata["installationId"] = installationID
			}
			payload := map[string]interface{}{"provider": provider, "accessToken": accessToken}
			if len(metadata) > 0 {
				payload["metadata"] = metadata
			}
			data, err := doPost(fmt.Sprintf("/api/users/%s/integrations", userFlag), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, data)
			return nil
		},
	}
	connectCmd.Flags().StringVarP(&provider, "provider", "p", "github", "Provider type")
	connectCmd.Flags().StringVar(&accessToken, "access-token", "", "Provider access token (required)")
	connectCmd.Flags().StringVar(&accountLogin, "account-login", "", "Provider account login")
	connectCmd.Flags().StringVar(&installationID, "installation-id", "", "Provider installation ID (selects the installation strategy)")
	_ = connectCmd.MarkFlagRequired("access-token")
	integrationsCmd.AddCommand(connectCmd)

	// list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List connected providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doGet(fmt.Sprintf("/api/users/%s/integrations", userFlag))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, data)
			return nil
		},
	}
	integrationsCmd.AddCommand(listCmd)

	// verify
	verifyCmd := &cobra.Command{
		Use:   "verify PROVIDER",
		Short: "Verify a connected provider still authenticates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doPost(fmt.Sprintf("/api/users/%s/integrations/%s/verify", userFlag, args[0]), map[string]interface{}{})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, data)
			return nil
		},
	}
	integrationsCmd.AddCommand(verifyCmd)

	// disconnect
	disconnectCmd := &cobra.Command{
		Use:   "disconnect PROVIDER",
		Short: "Disconnect a provider and remove its credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			if err := doDelete(fmt.Sprintf("/api/users/%s/integrations/%s", userFlag, args[0])); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "disconnected")
			return nil
		},
	}
	integrationsCmd.AddCommand(disconnectCmd)

	rootCmd.AddCommand(integrationsCmd)
}
