package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spycats/internal/domain"
	"spycats/internal/engine"
)

func missionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mission",
		Short: "Manage missions and their targets",
	}
	cmd.AddCommand(missionCreateCmd())
	cmd.AddCommand(missionListCmd())
	cmd.AddCommand(missionShowCmd())
	cmd.AddCommand(missionDeleteCmd())
	cmd.AddCommand(missionAssignCmd())
	cmd.AddCommand(missionNotesCmd())
	cmd.AddCommand(missionCompleteCmd())
	return cmd
}

func missionCreateCmd() *cobra.Command {
	var targets []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mission with 1 to 3 targets",
		Example: `  spycat mission create --target "Alpha:Freedonia" --target "Bravo:Sylvania"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseTargets(targets)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateMission(ctx, in)
				if err != nil {
					return err
				}
				return printMission(m)
			})
		},
	}
	cmd.Flags().StringArrayVar(&targets, "target", nil, "target as name:country (repeatable)")
	return cmd
}

func missionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				missions, err := e.ListMissions(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(missions)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Cat", "Complete", "Targets", "Open"})
				for _, m := range missions {
					open := 0
					for _, t := range m.Targets {
						if !t.Complete {
							open++
						}
					}
					tw.AppendRow(table.Row{m.ID, catLabel(m.CatID), m.Complete, len(m.Targets), open})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func missionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <mission-id>",
		Short: "Show a mission with its targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("mission", args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.GetMission(ctx, id)
				if err != nil {
					return err
				}
				return printMission(m)
			})
		},
	}
}

func missionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <mission-id>",
		Short: "Delete an unassigned mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("mission", args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteMission(ctx, id); err != nil {
					return err
				}
				return printOK()
			})
		},
	}
}

func missionAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <mission-id> <cat-id>",
		Short: "Assign a free cat to a mission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			missionID, err := parseID("mission", args[0])
			if err != nil {
				return err
			}
			catID, err := parseID("cat", args[1])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.AssignCat(ctx, missionID, catID); err != nil {
					return err
				}
				return printOK()
			})
		},
	}
}

func missionNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <mission-id> <target-id> <notes>",
		Short: "Replace a target's notes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			missionID, err := parseID("mission", args[0])
			if err != nil {
				return err
			}
			targetID, err := parseID("target", args[1])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.UpdateTargetNotes(ctx, missionID, targetID, args[2]); err != nil {
					return err
				}
				return printOK()
			})
		},
	}
}

func missionCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <mission-id> <target-id>",
		Short: "Complete a target; the last one completes the mission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			missionID, err := parseID("mission", args[0])
			if err != nil {
				return err
			}
			targetID, err := parseID("target", args[1])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.CompleteTarget(ctx, missionID, targetID); err != nil {
					return err
				}
				m, err := e.GetMission(ctx, missionID)
				if err != nil {
					return err
				}
				return printMission(m)
			})
		},
	}
}

// parseTargets reads name:country pairs. The country is everything after the
// last colon.
func parseTargets(raw []string) ([]domain.NewTarget, error) {
	out := make([]domain.NewTarget, 0, len(raw))
	for _, r := range raw {
		i := strings.LastIndex(r, ":")
		if i <= 0 || i == len(r)-1 {
			return nil, fmt.Errorf("%w: target %q must be name:country", engine.ErrValidation, r)
		}
		out = append(out, domain.NewTarget{
			Name:    strings.TrimSpace(r[:i]),
			Country: strings.TrimSpace(r[i+1:]),
		})
	}
	return out, nil
}

func printMission(m domain.Mission) error {
	if viper.GetBool("json") {
		return printJSON(m)
	}
	status := "open"
	if m.Complete {
		status = "complete"
	}
	fmt.Printf("Mission %d [%s] cat: %s\n", m.ID, status, catLabel(m.CatID))
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Target", "Name", "Country", "Complete", "Notes"})
	for _, t := range m.Targets {
		tw.AppendRow(table.Row{t.ID, t.Name, t.Country, t.Complete, t.Notes})
	}
	tw.Render()
	return nil
}

func catLabel(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}
