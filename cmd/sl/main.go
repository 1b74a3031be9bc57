package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"shiftlog/internal/actor"
	"shiftlog/internal/app"
	"shiftlog/internal/config"
	"shiftlog/internal/domain"
	"shiftlog/internal/logging"
	"shiftlog/internal/notify"
	"shiftlog/internal/repo"
	"shiftlog/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Shift log feature review CLI",
	Long: `sl drives the feature review workflow of a shift log workspace.
- Workspace: a directory holding shiftlog.yml and the .shiftlog database.
- Employees: programmers create features, testers review them, admins and supervisors oversee.
- Features: move new -> testing -> rework/completed -> done, following the transition table.
- Comments: testers leave remarks; resolving the last open remark on a reworked feature sends it back to testing.
- Notifications: every step lands in the recipients' inbox and, when configured, on Telegram.
Pass --as <username> (or SHIFTLOG_AS) to act as an employee.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (default <workspace>/shiftlog.yml)")
	rootCmd.PersistentFlags().String("as", "", "acting employee (id or username)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("as", rootCmd.PersistentFlags().Lookup("as"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(departmentCmd())
	rootCmd.AddCommand(employeeCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(featureCmd())
	rootCmd.AddCommand(commentCmd())
	rootCmd.AddCommand(notificationCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(telegramCmd())
	rootCmd.AddCommand(tokenCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create shiftlog.yml and the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.Init(cmd.Context(), viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"config": path})
			}
			fmt.Printf("Workspace ready (config at %s)\n", path)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withRuntime(ctx, func(ctx context.Context, rt *app.Runtime) error {
				cfg := rt.Config
				if addr == "" {
					addr = cfg.Server.Addr
				}
				if basePath == "" {
					basePath = cfg.Server.BasePath
				}
				if cfg.Auth.JWTSecret == "" && !cfg.Auth.AllowHeaderIdentity {
					return errors.New("auth.jwt_secret (or SHIFTLOG_AUTH_JWT_SECRET) is required unless auth.allow_header_identity is set")
				}
				handler, err := server.New(server.Config{
					Engine:   rt.Engine,
					BasePath: basePath,
					Auth: server.AuthConfig{
						JWTSecret:           cfg.Auth.JWTSecret,
						AllowHeaderIdentity: cfg.Auth.AllowHeaderIdentity,
						Logger:              rt.Log,
					},
					Log: rt.Log,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
				if len(cfg.Webhooks) > 0 {
					hooks := server.NewWebhookDispatcher(rt.Engine.Repo, cfg.Webhooks, rt.Log)
					g.Go(func() error {
						hooks.Run(gctx)
						return nil
					})
				}
				rt.Log.Info().Str("addr", addr).Str("base_path", basePath).Int("webhooks", len(cfg.Webhooks)).Msg("serving")
				fmt.Printf("Serving shiftlog API on http://%s%s (OpenAPI at %s/openapi.json, docs at /docs)\n", addr, basePath, basePath)
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default server.base_path)")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect shiftlog.yml",
		Long:  "Configuration lives in <workspace>/shiftlog.yml; SHIFTLOG_* environment variables override it (e.g. SHIFTLOG_TELEGRAM_TOKEN).",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = config.Path(viper.GetString("workspace"))
	}
	return config.Load(path)
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Telegram.Token != "" {
				cfg.Telegram.Token = "***"
			}
			if cfg.Auth.JWTSecret != "" {
				cfg.Auth.JWTSecret = "***"
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Activity log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var f repo.ActivityFilter
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent activity (supervisors and admins)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, rt *app.Runtime, me domain.Employee) error {
				entries, err := rt.Engine.ActivityTail(ctx, me, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := newTable("ID", "When", "Actor", "Action", "Entity", "Description")
				for _, a := range entries {
					tw.AppendRow(table.Row{a.ID, a.TS, a.ActorID, a.Action, a.EntityType + ":" + a.EntityID, a.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of entries")
	cmd.Flags().StringVar(&f.ActorID, "actor", "", "actor id filter")
	cmd.Flags().StringVar(&f.Action, "action", "", "action filter")
	cmd.Flags().StringVar(&f.EntityType, "entity-type", "", "entity type filter")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id filter")
	return cmd
}

func telegramCmd() *cobra.Command {
	tg := &cobra.Command{Use: "telegram", Short: "Telegram delivery"}
	tg.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify the bot token against the Bot API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Telegram.Enabled {
				return errors.New("telegram is disabled in config")
			}
			log, closer, err := logging.New(cfg.Logging, viper.GetString("workspace"), nil)
			if err != nil {
				return err
			}
			defer closer.Close()
			bot, err := notify.NewTelegram(cfg.Telegram, log)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"bot": bot.BotName()})
			}
			fmt.Printf("Telegram OK (bot @%s)\n", bot.BotName())
			return nil
		},
	})
	return tg
}

func tokenCmd() *cobra.Command {
	var employee string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if employee == "" {
					employee = viper.GetString("as")
				}
				e, err := resolveEmployee(ctx, rt, employee)
				if err != nil {
					return err
				}
				tok, err := server.SignToken(rt.Config.Auth.JWTSecret, e.ID, ttl)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"employee_id": e.ID, "token": tok})
				}
				fmt.Println(tok)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "employee id or username (default --as)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 = no expiry)")
	return cmd
}

// --- helpers ---

func withRuntime(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	rt, err := app.Open(ctx, app.Options{
		Workspace:  viper.GetString("workspace"),
		ConfigPath: viper.GetString("config"),
	})
	if err != nil {
		return err
	}
	err = fn(ctx, rt)
	if cerr := rt.Close(); err == nil {
		err = cerr
	}
	return err
}

// withActor runs fn as the employee named by --as.
func withActor(ctx context.Context, fn func(context.Context, *app.Runtime, domain.Employee) error) error {
	return withRuntime(ctx, func(ctx context.Context, rt *app.Runtime) error {
		me, err := rt.Actor(ctx, viper.GetString("as"))
		if err != nil {
			return err
		}
		return fn(ctx, rt, me)
	})
}

// resolveEmployee looks up an employee by id or username, active or not.
func resolveEmployee(ctx context.Context, rt *app.Runtime, ref string) (domain.Employee, error) {
	if strings.TrimSpace(ref) == "" {
		return domain.Employee{}, errors.New("employee required")
	}
	a, err := actor.Resolve(ctx, rt.Engine.Repo, ref)
	if err != nil {
		return domain.Employee{}, err
	}
	e, _ := a.Employee()
	return e, nil
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
