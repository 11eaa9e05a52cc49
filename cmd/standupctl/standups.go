package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	standupsCmd := &cobra.Command{Use: "standups", Short: "Standup operations"}

	// generate
	var date, tone, length, customPrompt, sprintGoal string
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate (or replace) the standup for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			if date == "" {
				date = time.Now().UTC().Format("2006-01-02")
			}
			payload := map[string]interface{}{"date": date, "tone": tone, "length": length}
			if customPrompt != "" {
				payload["customPrompt"] = customPrompt
			}
			if sprintGoal != "" {
				payload["sprintGoal"] = sprintGoal
			}
			data, err := doPost(fmt.Sprintf("/api/users/%s/standups/generate", userFlag), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, data)
			return nil
		},
	}
	generateCmd.Flags().StringVarP(&date, "date", "d", "", "Calendar date YYYY-MM-DD (defaults to today, UTC)")
	generateCmd.Flags().StringVar(&tone, "tone", "professional", "Report tone")
	generateCmd.Flags().StringVar(&length, "length", "medium", "Report length (short, medium, long)")
	generateCmd.Flags().StringVar(&customPrompt, "custom-prompt", "", "Extra instructions for the report")
	generateCmd.Flags().StringVar(&sprintGoal, "sprint-goal", "", "Current sprint goal")
	standupsCmd.AddCommand(generateCmd)

	// regenerate
	var regenTone, regenLength string
	regenerateCmd := &cobra.Command{
		Use:   "regenerate STANDUP_ID",
		Short: "Regenerate an existing standup from its captured activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			payload := map[string]interface{}{"tone": regenTone, "length": regenLength}
			data, err := doPost(fmt.Sprintf("/api/users/%s/standups/%s/regenerate", userFlag, args[0]), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, data)
			return nil
		},
	}
	regenerateCmd.Flags().StringVar(&regenTone, "tone", "professional", "Report tone")
	regenerateCmd.Flags().StringVar(&regenLength, "length", "medium", "Report length (short, medium, long)")
	standupsCmd.AddCommand(regenerateCmd)

	// list
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List standups, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doGet(fmt.Sprintf("/api/users/%s/standups?limit=%d&offset=%d", userFlag, limit, offset))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, data)
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Max records to return (0 = all)")
	listCmd.Flags().IntVarP(&offset, "offset", "o", 0, "Records to skip")
	standupsCmd.AddCommand(listCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get STANDUP_ID",
		Short: "Get one standup by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doGet(fmt.Sprintf("/api/users/%s/standups/%s", userFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, data)
			return nil
		},
	}
	standupsCmd.AddCommand(getCmd)

	// date
	dateCmd := &cobra.Command{
		Use:   "date DATE",
		Short: "Get the standup for one calendar date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doGet(fmt.Sprintf("/api/users/%s/standups/date/%s", userFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, data)
			return nil
		},
	}
	standupsCmd.AddCommand(dateCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete STANDUP_ID",
		Short: "Delete one standup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			if err := doDelete(fmt.Sprintf("/api/users/%s/standups/%s", userFlag, args[0])); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "deleted")
			return nil
		},
	}
	standupsCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(standupsCmd)
}
