package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	// create
	var userId, email, fullName, tz, role string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userId == "" || email == "" || tz == "" {
				return fmt.Errorf("--userId, --email and --tz required")
			}
			payload := map[string]interface{}{"userId": userId, "email": email, "timeZone": tz}
			if fullName != "" {
				payload["displayName"] = fullName
			}
			if role != "" {
				payload["role"] = role
			}
			data, err := checkResp(newClient().R().SetBody(payload).Post("/api/users"))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	createCmd.Flags().StringVarP(&userId, "userId", "u", "", "UserID (required)")
	createCmd.Flags().StringVarP(&email, "email", "e", "", "User email (required)")
	createCmd.Flags().StringVarP(&fullName, "name", "n", "", "Full name")
	createCmd.Flags().StringVarP(&tz, "tz", "t", "", "IANA timezone (required)")
	createCmd.Flags().StringVarP(&role, "role", "r", "", "Template role (defaults to public)")
	_ = createCmd.MarkFlagRequired("userId")
	_ = createCmd.MarkFlagRequired("tz")
	usersCmd.AddCommand(createCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get user by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := checkResp(newClient().R().Get("/api/users/" + args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	usersCmd.AddCommand(getCmd)

	rootCmd.AddCommand(usersCmd)
}
