package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shiftlog/internal/app"
	"shiftlog/internal/domain"
	"shiftlog/internal/engine"
	"shiftlog/internal/repo"
)

func departmentCmd() *cobra.Command {
	dep := &cobra.Command{Use: "department", Short: "Manage departments"}
	dep.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				d, err := rt.Engine.AddDepartment(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(d, "Department %s added (%s)\n", d.Name, d.ID)
			})
		},
	})
	dep.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Engine.Repo.ListDepartments(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Created")
				for _, d := range items {
					tw.AppendRow(table.Row{d.ID, d.Name, d.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})
	return dep
}

func employeeCmd() *cobra.Command {
	emp := &cobra.Command{Use: "employee", Short: "Manage the employee directory"}
	emp.AddCommand(employeeAddCmd())
	emp.AddCommand(employeeListCmd())
	emp.AddCommand(&cobra.Command{
		Use:   "set-telegram-id <employee> <telegram-id>",
		Short: "Link an employee to a Telegram chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				e, err := resolveEmployee(ctx, rt, args[0])
				if err != nil {
					return err
				}
				if err := rt.Engine.SetTelegramID(ctx, e.ID, args[1]); err != nil {
					return err
				}
				return printResult(map[string]string{"id": e.ID, "telegram_id": args[1]}, "Telegram id set for %s\n", e.Username)
			})
		},
	})
	emp.AddCommand(&cobra.Command{
		Use:   "deactivate <employee>",
		Short: "Deactivate an employee (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				e, err := resolveEmployee(ctx, rt, args[0])
				if err != nil {
					return err
				}
				if err := rt.Engine.DeactivateEmployee(ctx, me, e.ID); err != nil {
					return err
				}
				return printResult(map[string]string{"id": e.ID, "status": "deactivated"}, "Employee %s deactivated\n", e.Username)
			})
		},
	})
	return emp
}

func employeeAddCmd() *cobra.Command {
	var in engine.EmployeeInput
	var position, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Position = domain.Position(position)
			in.Role = domain.Role(role)
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				e, err := rt.Engine.AddEmployee(ctx, in)
				if err != nil {
					return err
				}
				return printResult(e, "Employee %s added (%s)\n", e.Username, e.ID)
			})
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "login name")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&in.Department, "department", "", "department name")
	cmd.Flags().StringVar(&position, "position", string(domain.PositionEmployee), "employee, supervisor or admin")
	cmd.Flags().StringVar(&role, "role", "", "programmer, tester or empty")
	cmd.Flags().StringVar(&in.TelegramID, "telegram-id", "", "Telegram chat id")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func employeeListCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Engine.ListEmployees(ctx, activeOnly)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Username", "Name", "Position", "Role", "Telegram", "Active")
				for _, e := range items {
					tw.AppendRow(table.Row{e.ID, e.Username, e.FullName, e.Position, e.Role, e.TelegramID, e.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active-only", false, "only active employees")
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage test projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var name, desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a test project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				p, err := rt.Engine.CreateProject(ctx, me, name, desc)
				if err != nil {
					return err
				}
				return printResult(p, "Project %s created (%s)\n", p.Name, p.ID)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	var f repo.ProjectFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible test projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				items, err := rt.Engine.ListProjects(ctx, me, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Created by", "Active", "Updated")
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.CreatedBy, p.IsActive, p.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&f.ActiveOnly, "active-only", false, "only active projects")
	cmd.Flags().StringVar(&f.CreatedBy, "created-by", "", "creator id filter")
	cmd.Flags().StringVar(&f.Search, "search", "", "match name or description")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				s, err := rt.Engine.GetProject(ctx, me, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				fmt.Printf("Project: %s (%s)\n", s.Project.Name, s.Project.ID)
				if s.Project.Description != "" {
					fmt.Printf("  %s\n", s.Project.Description)
				}
				fmt.Printf("Active: %t\n", s.Project.IsActive)
				fmt.Printf("Features: %d (%d not done)\n", s.FeaturesCount, s.ActiveFeatures)
				fmt.Printf("Unresolved comments: %d\n", s.UnresolvedComments)
				return nil
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var desc string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update a project (creator or admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd engine.ProjectUpdate
			upd.Description = optionalString(cmd, "description", desc)
			if cmd.Flags().Changed("active") {
				upd.IsActive = &active
			}
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				p, err := rt.Engine.UpdateProject(ctx, me, args[0], upd)
				if err != nil {
					return err
				}
				return printResult(p, "Project %s updated\n", p.ID)
			})
		},
	}
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().BoolVar(&active, "active", true, "active flag")
	return cmd
}

func featureCmd() *cobra.Command {
	f := &cobra.Command{Use: "feature", Short: "Review features"}
	f.AddCommand(featureCreateCmd())
	f.AddCommand(featureListCmd())
	f.AddCommand(featureShowCmd())
	f.AddCommand(featureUpdateCmd())
	f.AddCommand(featureStatusCmd())
	f.AddCommand(featureTransitionsCmd())
	f.AddCommand(featureCompleteCmd())
	f.AddCommand(featureReworkCmd())
	f.AddCommand(featureHistoryCmd())
	return f
}

func featureCreateCmd() *cobra.Command {
	var in engine.FeatureInput
	var priority int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a feature (programmers)",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Priority = domain.Priority(priority)
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				f, err := rt.Engine.CreateFeature(ctx, me, in)
				if err != nil {
					return err
				}
				return printResult(f, "Feature %s created (%s)\n", f.Title, f.ID)
			})
		},
	}
	cmd.Flags().StringVar(&in.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().IntVar(&priority, "priority", int(domain.PriorityMedium), "1 low, 2 medium, 3 high, 4 critical")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func featureListCmd() *cobra.Command {
	var f repo.FeatureFilter
	var status string
	var priority int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List features by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = domain.FeatureStatus(status)
			f.Priority = domain.Priority(priority)
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				items, err := rt.Engine.ListFeatures(ctx, me, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				printFeatures(items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority filter")
	cmd.Flags().StringVar(&f.CreatedBy, "created-by", "", "creator id filter")
	cmd.Flags().StringVar(&f.Search, "search", "", "match title or description")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func printFeatures(items []domain.Feature) {
	tw := newTable("ID", "Title", "Status", "Priority", "Created by", "Updated")
	for _, f := range items {
		tw.AppendRow(table.Row{f.ID, f.Title, f.Status.Label(), f.Priority.Label(), f.CreatedBy, f.UpdatedAt})
	}
	tw.Render()
}

func featureShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <feature-id>",
		Short: "Show a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				f, err := rt.Engine.GetFeature(ctx, me, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(f)
				}
				fmt.Printf("Feature: %s (%s)\n", f.Title, f.ID)
				fmt.Printf("Project: %s\n", f.ProjectID)
				fmt.Printf("Status: %s  Priority: %s\n", f.Status.Label(), f.Priority.Label())
				fmt.Printf("Created by %s at %s\n", f.CreatedBy, f.CreatedAt)
				if f.CompletedAt != nil {
					fmt.Printf("Done at %s\n", *f.CompletedAt)
				}
				if f.Description != "" {
					fmt.Printf("\n%s\n", f.Description)
				}
				return nil
			})
		},
	}
}

func featureUpdateCmd() *cobra.Command {
	var title, desc string
	var priority int
	cmd := &cobra.Command{
		Use:   "update <feature-id>",
		Short: "Edit title, description or priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd := engine.FeatureUpdate{
				Title:       optionalString(cmd, "title", title),
				Description: optionalString(cmd, "description", desc),
			}
			if cmd.Flags().Changed("priority") {
				p := domain.Priority(priority)
				upd.Priority = &p
			}
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				f, err := rt.Engine.UpdateFeature(ctx, me, args[0], upd)
				if err != nil {
					return err
				}
				return printResult(f, "Feature %s updated\n", f.ID)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority 1-4")
	return cmd
}

func featureStatusCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "status <feature-id> <status>",
		Short: "Move a feature to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				f, err := rt.Engine.UpdateStatus(ctx, me, args[0], domain.FeatureStatus(args[1]), comment)
				if err != nil {
					return err
				}
				return printResult(f, "Feature %s is now %s\n", f.ID, f.Status.Label())
			})
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "note stored in the status history")
	return cmd
}

func featureTransitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions <feature-id>",
		Short: "List statuses the acting employee may move the feature to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				next, err := rt.Engine.AvailableTransitions(ctx, me, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(next)
				}
				if len(next) == 0 {
					fmt.Println("No transitions available")
					return nil
				}
				for _, s := range next {
					fmt.Println(s)
				}
				return nil
			})
		},
	}
}

func featureCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <feature-id>",
		Short: "Mark a feature done (testers and admins)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				f, err := rt.Engine.MarkAsCompleted(ctx, me, args[0])
				if err != nil {
					return err
				}
				return printResult(f, "Feature %s is done\n", f.ID)
			})
		},
	}
}

func featureReworkCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "rework <feature-id>",
		Short: "Send a feature under test back to rework",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				f, err := rt.Engine.ReturnFeatureToRework(ctx, me, args[0], comment)
				if err != nil {
					return err
				}
				return printResult(f, "Feature %s returned to rework\n", f.ID)
			})
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "reason")
	return cmd
}

func featureHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <feature-id>",
		Short: "Show status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				items, err := rt.Engine.StatusHistory(ctx, me, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("When", "From", "To", "By", "Comment")
				for _, h := range items {
					tw.AppendRow(table.Row{h.ChangedAt, h.OldStatus, h.NewStatus, h.ActorID, h.Comment})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func commentCmd() *cobra.Command {
	c := &cobra.Command{Use: "comment", Short: "Review comments"}
	c.AddCommand(commentAddCmd())
	c.AddCommand(commentListCmd())
	c.AddCommand(commentResolveCmd())
	c.AddCommand(commentReturnCmd())
	c.AddCommand(commentHistoryCmd())
	return c
}

func commentAddCmd() *cobra.Command {
	var text, typ string
	cmd := &cobra.Command{
		Use:   "add <feature-id>",
		Short: "Comment on a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				c, err := rt.Engine.AddComment(ctx, me, args[0], text, domain.CommentType(typ))
				if err != nil {
					return err
				}
				return printResult(c, "Comment %s added\n", c.ID)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "comment text")
	cmd.Flags().StringVar(&typ, "type", string(domain.CommentRemark), "remark, approval or clarification")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func commentListCmd() *cobra.Command {
	var unresolved bool
	cmd := &cobra.Command{
		Use:   "list <feature-id>",
		Short: "List comments of a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				items, err := rt.Engine.ListComments(ctx, me, args[0], unresolved)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Type", "Author", "Resolved", "Text", "Rework reason")
				for _, c := range items {
					reason := ""
					if c.ReworkReason != nil {
						reason = *c.ReworkReason
					}
					tw.AppendRow(table.Row{c.ID, c.Type, c.AuthorID, c.IsResolved, c.Text, reason})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unresolved, "unresolved", false, "only unresolved comments")
	return cmd
}

func commentResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <feature-id> <comment-id>",
		Short: "Resolve a comment; the last one sends a reworked feature back to testing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				res, err := rt.Engine.ResolveCommentAndRequestReview(ctx, me, args[0], args[1])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("Comment %s resolved\n", res.Comment.ID)
				if res.ReviewRequested {
					fmt.Printf("Feature %s sent back to testing\n", res.Feature.ID)
				} else if res.UnresolvedPending > 0 {
					fmt.Printf("%d unresolved comment(s) remain\n", res.UnresolvedPending)
				}
				return nil
			})
		},
	}
}

func commentReturnCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "return <feature-id> <comment-id>",
		Short: "Reopen a resolved comment and return the feature to rework",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				res, err := rt.Engine.ReturnCommentToRework(ctx, me, args[0], args[1], reason)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("Comment %s reopened\n", res.Comment.ID)
				if res.StatusChanged {
					fmt.Printf("Feature %s returned to rework\n", res.Feature.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the fix was not accepted")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func commentHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <comment-id>",
		Short: "Show comment history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				items, err := rt.Engine.CommentHistory(ctx, me, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("When", "Action", "By", "Reason")
				for _, h := range items {
					tw.AppendRow(table.Row{h.ChangedAt, h.Action, h.ActorID, h.Reason})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func notificationCmd() *cobra.Command {
	n := &cobra.Command{Use: "notification", Short: "Inbox of the acting employee"}
	n.AddCommand(notificationListCmd())
	n.AddCommand(notificationReadCmd())
	return n
}

func notificationListCmd() *cobra.Command {
	var unread bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				items, err := rt.Engine.ListNotifications(ctx, me, unread, limit)
				if err != nil {
					return err
				}
				count, err := rt.Engine.UnreadCount(ctx, me)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"items": items, "unread_count": count})
				}
				tw := newTable("ID", "Sent", "Type", "Title", "Read")
				for _, n := range items {
					tw.AppendRow(table.Row{n.ID, n.SentAt, n.Type, n.Title, n.IsRead})
				}
				tw.AppendFooter(table.Row{"", "", "", "unread", strconv.Itoa(count)})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func notificationReadCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "read [notification-id]",
		Short: "Mark notifications read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("notification id or --all required")
			}
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				if all {
					n, err := rt.Engine.MarkAllNotificationsRead(ctx, me)
					if err != nil {
						return err
					}
					return printResult(map[string]int64{"updated": n}, "%d notification(s) marked read\n", n)
				}
				if err := rt.Engine.MarkNotificationRead(ctx, me, args[0]); err != nil {
					return err
				}
				return printResult(map[string]string{"id": args[0], "status": "read"}, "Notification %s marked read\n", args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "mark every notification read")
	return cmd
}

// printResult prints v as JSON under --json, the formatted line otherwise.
func printResult(v any, format string, args ...any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	fmt.Printf(format, args...)
	return nil
}
