package main

import (
	"context"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spycats/internal/domain"
	"spycats/internal/engine"
)

func catCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat",
		Short: "Manage spy cats",
	}
	cmd.AddCommand(catCreateCmd())
	cmd.AddCommand(catListCmd())
	cmd.AddCommand(catShowCmd())
	cmd.AddCommand(catSalaryCmd())
	cmd.AddCommand(catDeleteCmd())
	return cmd
}

func catCreateCmd() *cobra.Command {
	var opts engine.CatCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cat (breed is checked against the catalog)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCat(ctx, opts)
				if err != nil {
					return err
				}
				return printCats([]domain.Cat{c})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "cat name")
	cmd.Flags().IntVar(&opts.Experience, "experience", 0, "years of experience")
	cmd.Flags().StringVar(&opts.Breed, "breed", "", "breed name")
	cmd.Flags().Float64Var(&opts.Salary, "salary", 0, "salary")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("breed")
	return cmd
}

func catListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cats, err := e.ListCats(ctx)
				if err != nil {
					return err
				}
				return printCats(cats)
			})
		},
	}
}

func catShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <cat-id>",
		Short: "Show a cat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("cat", args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.GetCat(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func catSalaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "salary <cat-id> <salary>",
		Short: "Update a cat's salary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("cat", args[0])
			if err != nil {
				return err
			}
			salary, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.UpdateCatSalary(ctx, id, salary)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func catDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <cat-id>",
		Short: "Delete a cat without a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("cat", args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteCat(ctx, id); err != nil {
					return err
				}
				return printOK()
			})
		},
	}
}

func printCats(cats []domain.Cat) error {
	if viper.GetBool("json") {
		return printJSON(cats)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Breed", "Experience", "Salary", "Mission"})
	for _, c := range cats {
		mission := ""
		if c.MissionID != nil {
			mission = strconv.FormatInt(*c.MissionID, 10)
		}
		tw.AppendRow(table.Row{c.ID, c.Name, c.Breed, c.Experience, c.Salary, mission})
	}
	tw.Render()
	return nil
}
