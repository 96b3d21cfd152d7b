package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	daysCmd := &cobra.Command{Use: "days", Short: "Day record operations"}
	daysCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User ID (required)")

	dayURL := func(date, suffix string) string {
		return fmt.Sprintf("/api/users/%s/days/%s%s", userFlag, date, suffix)
	}

	// get (hydrated view)
	getCmd := &cobra.Command{
		Use:   "get DATE",
		Short: "Get the hydrated day view (template merged with completions)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := checkResp(newClient().R().Get(dayURL(args[0], "")))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	daysCmd.AddCommand(getCmd)

	// complete-item / uncomplete-item
	var checklistID string
	completeCmd := &cobra.Command{
		Use:   "complete-item DATE ITEM_ID",
		Short: "Complete a checklist item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" || checklistID == "" {
				return fmt.Errorf("--user and --checklist required")
			}
			suffix := fmt.Sprintf("/checklists/%s/items/%s/complete", checklistID, args[1])
			_, err := checkResp(newClient().R().Post(dayURL(args[0], suffix)))
			return err
		},
	}
	completeCmd.Flags().StringVarP(&checklistID, "checklist", "c", "", "Checklist ID (required)")
	daysCmd.AddCommand(completeCmd)

	uncompleteCmd := &cobra.Command{
		Use:   "uncomplete-item DATE ITEM_ID",
		Short: "Remove a checklist item completion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" || checklistID == "" {
				return fmt.Errorf("--user and --checklist required")
			}
			suffix := fmt.Sprintf("/checklists/%s/items/%s/complete", checklistID, args[1])
			_, err := checkResp(newClient().R().Delete(dayURL(args[0], suffix)))
			return err
		},
	}
	uncompleteCmd.Flags().StringVarP(&checklistID, "checklist", "c", "", "Checklist ID (required)")
	daysCmd.AddCommand(uncompleteCmd)

	// toggle-block
	toggleCmd := &cobra.Command{
		Use:   "toggle-block DATE BLOCK_ID",
		Short: "Toggle a time block completion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			suffix := fmt.Sprintf("/blocks/%s/toggle", args[1])
			_, err := checkResp(newClient().R().Post(dayURL(args[0], suffix)))
			return err
		},
	}
	daysCmd.AddCommand(toggleCmd)

	// add-todo
	addTodoCmd := &cobra.Command{
		Use:   "add-todo DATE TEXT",
		Short: "Add a todo item to a day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			body := map[string]string{"text": args[1]}
			data, err := checkResp(newClient().R().SetBody(body).Post(dayURL(args[0], "/todos")))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	daysCmd.AddCommand(addTodoCmd)

	// wake-time
	wakeCmd := &cobra.Command{
		Use:   "wake-time DATE HH:MM",
		Short: "Record the wake time for a day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			body := map[string]string{"wakeTime": args[1]}
			_, err := checkResp(newClient().R().SetBody(body).Put(dayURL(args[0], "/wake-time")))
			return err
		},
	}
	daysCmd.AddCommand(wakeCmd)

	rootCmd.AddCommand(daysCmd)
}
