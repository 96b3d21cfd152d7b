package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/amptracker/amp-tracker/internal/model"
)

// templateFile is the YAML shape accepted by `trackerctl templates import`.
// It mirrors the REST payload so admins can keep catalogs in version control.
type templateFile struct {
	Role       string `yaml:"role"`
	Activate   bool   `yaml:"activate"`
	TimeBlocks []struct {
		BlockID string `yaml:"blockId"`
		Time    string `yaml:"time"`
		Label   string `yaml:"label"`
		Order   int    `yaml:"order"`
	} `yaml:"timeBlocks"`
	Checklists []struct {
		ChecklistID string `yaml:"checklistId"`
		Title       string `yaml:"title"`
		Order       int    `yaml:"order"`
		Items       []struct {
			ItemID string `yaml:"itemId"`
			Text   string `yaml:"text"`
			Order  int    `yaml:"order"`
		} `yaml:"items"`
		ItemsOrder []string `yaml:"itemsOrder"`
	} `yaml:"checklists"`
}

func (f *templateFile) toModel() *model.TemplateSet {
	ts := &model.TemplateSet{Role: f.Role, IsActive: f.Activate}
	for _, b := range f.TimeBlocks {
		ts.TimeBlocks = append(ts.TimeBlocks, model.TimeBlockDefinition{
			BlockID: b.BlockID, Time: b.Time, Label: b.Label, Order: b.Order,
		})
	}
	for _, c := range f.Checklists {
		cl := model.ChecklistDefinition{
			ChecklistID: c.ChecklistID, Title: c.Title, Order: c.Order, ItemsOrder: c.ItemsOrder,
		}
		for _, it := range c.Items {
			cl.Items = append(cl.Items, model.ChecklistItemDefinition{
				ItemID: it.ItemID, Text: it.Text, Order: it.Order,
			})
		}
		ts.Checklists = append(ts.Checklists, cl)
	}
	return ts
}

func init() {
	templatesCmd := &cobra.Command{Use: "templates", Short: "Template catalog operations (admin key)"}

	// import
	var file string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a template version from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var tf templateFile
			if err := yaml.Unmarshal(raw, &tf); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			if tf.Role == "" {
				return fmt.Errorf("template file must set role")
			}
			data, err := checkResp(newClient().R().SetBody(tf.toModel()).Post("/api/templates"))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	importCmd.Flags().StringVarP(&file, "file", "f", "", "YAML template file (required)")
	_ = importCmd.MarkFlagRequired("file")
	templatesCmd.AddCommand(importCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get ROLE",
		Short: "Get the active template for a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := checkResp(newClient().R().Get("/api/templates/" + args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	templatesCmd.AddCommand(getCmd)

	// versions
	versionsCmd := &cobra.Command{
		Use:   "versions ROLE",
		Short: "List stored versions for a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := checkResp(newClient().R().Get("/api/templates/" + args[0] + "/versions"))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	templatesCmd.AddCommand(versionsCmd)

	// activate
	activateCmd := &cobra.Command{
		Use:   "activate ROLE VERSION",
		Short: "Activate a stored template version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("/api/templates/%s/versions/%s/activate", args[0], args[1])
			if _, err := checkResp(newClient().R().Post(url)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "activated %s version %s\n", args[0], args[1])
			return nil
		},
	}
	templatesCmd.AddCommand(activateCmd)

	rootCmd.AddCommand(templatesCmd)
}
