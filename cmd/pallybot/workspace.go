package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/auth"
	"github.com/jonathan/pallybot/internal/config"
	"github.com/jonathan/pallybot/internal/fetch"
	"github.com/jonathan/pallybot/internal/intake"
	"github.com/jonathan/pallybot/internal/llm"
	"github.com/jonathan/pallybot/internal/observability"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/jonathan/pallybot/internal/workspace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Open an interactive workspace in the terminal",
	Long: `Open the workspace in the terminal. Accounts live in memory for the life of the process;
type "help" for the list of commands.`,
	RunE: runWorkspace,
}

func init() {
	rootCmd.AddCommand(workspaceCmd)
}

func runWorkspace(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLocal(envFiles...)
	if err != nil {
		return err
	}
	// logs go to stderr only above info so they do not interleave with the prompt
	level := cfg.LogLevel
	if level == "info" {
		level = "warn"
	}
	logger, err := observability.NewLogger(level, cfg.LogFormat)
	if err != nil {
		return err
	}

	opts := []intake.Option{
		intake.WithLogger(logger),
		intake.WithFetcher(fetch.New(fetch.Options{UseBrowser: cfg.IntakeUseBrowser, CacheTTL: 15 * time.Minute},
			fetch.WithLogger(logger))),
	}
	if cfg.GeminiAPIKey != "" {
		tier, err := llm.ParseTier(cfg.IntakeModelTier)
		if err != nil {
			return err
		}
		extractor, client, err := intake.NewGeminiExtractor(cmd.Context(), cfg.GeminiAPIKey, tier, cfg.GeminiModel, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, intake.WithExtractor(extractor))
	}

	term := newTerminal(cfg, auth.NewMemoryStore(), intake.New(opts...), logger, cmd.OutOrStdout())
	defer term.Close()
	return term.Run(cmd.Context(), cmd.InOrStdin())
}

const terminalHelp = `Commands:
  register <email> <password> [name]   create an account and sign in
  login <email> <password>             sign in
  logout                               sign out
  add <title> | <company> | <description>
                                       save a job description
  paste [<title> | <company>]          save a pasted posting, ended by a line with a single "."
  fetch <url> [| <title> | <company>]  save the posting at url
  select <n|none>                      bind job n to the interview session
  remove <n>                           delete job n
  tab <interview|jobs|settings>        switch tabs
  menu                                 toggle the menu
  close                                close the menu
  view                                 show the workspace
  help                                 show this help
  quit                                 exit`

// terminal is an interactive workspace driven by line commands. It owns one auth session and
// one controller; signing in again replaces the previous session's workspace.
type terminal struct {
	users        *auth.Service
	tokens       *auth.TokenIssuer
	provider     *auth.Session
	controller   *workspace.Controller
	intake       *intake.Intake
	printer      *observability.Printer
	out          io.Writer
	loginTimeout time.Duration
}

func newTerminal(cfg *config.Config, store auth.UserStore, in *intake.Intake, logger logrus.FieldLogger, out io.Writer) *terminal {
	tokens := auth.NewTokenIssuer(&cfg.JWT)
	provider := auth.NewSession(auth.WithTokens(tokens), auth.WithSessionLogger(logger))
	return &terminal{
		users:    auth.NewService(store, &cfg.Password),
		tokens:   tokens,
		provider: provider,
		controller: workspace.NewController(provider,
			workspace.WithLogger(logger),
			workspace.WithLogoutTimeout(cfg.LogoutTimeout),
		),
		intake:       in,
		printer:      observability.NewPrinter(out),
		out:          out,
		loginTimeout: cfg.LoginTimeout,
	}
}

// Close signs out and detaches the controller.
func (t *terminal) Close() {
	t.provider.SignOut(errors.New("terminal closed"))
	t.controller.Close()
}

// Run reads commands from in until quit or end of input.
//
//nolint:errcheck // writing to a terminal; errors are not recoverable
func (t *terminal) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintln(t.out, `Pallybot workspace. Type "help" for commands.`)
	for {
		fmt.Fprint(t.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(t.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, rest, _ := strings.Cut(line, " ")
		if name == "quit" || name == "exit" {
			return nil
		}
		if err := t.execute(ctx, scanner, strings.ToLower(name), strings.TrimSpace(rest)); err != nil {
			t.printer.PrintNotice(noticeFor(err))
		}
	}
}

func (t *terminal) execute(ctx context.Context, scanner *bufio.Scanner, name, args string) error {
	switch name {
	case "help":
		fmt.Fprintln(t.out, terminalHelp) //nolint:errcheck
		return nil
	case "view":
		t.printer.PrintView(t.controller.View())
		return nil
	case "register":
		return t.register(ctx, strings.Fields(args))
	case "login":
		return t.login(ctx, strings.Fields(args))
	case "logout":
		return t.dispatch(ctx, workspace.Logout{})
	case "add":
		parts := splitFields(args)
		if len(parts) != 3 {
			return errors.New("usage: add <title> | <company> | <description>")
		}
		return t.dispatch(ctx, workspace.AddJob{Input: types.JobDescriptionInput{
			Title:       parts[0],
			Company:     parts[1],
			Description: parts[2],
		}})
	case "paste":
		return t.paste(ctx, scanner, args)
	case "fetch":
		return t.fetch(ctx, args)
	case "select":
		if args == "none" || args == "0" {
			return t.dispatch(ctx, workspace.SelectJob{ID: uuid.Nil})
		}
		id, err := t.jobAt(args)
		if err != nil {
			return err
		}
		return t.dispatch(ctx, workspace.SelectJob{ID: id})
	case "remove":
		id, err := t.jobAt(args)
		if err != nil {
			return err
		}
		return t.dispatch(ctx, workspace.RemoveJob{ID: id})
	case "tab":
		tab, err := workspace.ParseTab(strings.ToLower(args))
		if err != nil {
			return err
		}
		return t.dispatch(ctx, workspace.SetTab{Tab: tab})
	case "menu":
		return t.dispatch(ctx, workspace.ToggleSidebar{})
	case "close":
		return t.dispatch(ctx, workspace.CloseSidebar{})
	default:
		return fmt.Errorf("unknown command %q, type \"help\" for commands", name)
	}
}

func (t *terminal) dispatch(ctx context.Context, action workspace.Action) error {
	if _, err := t.controller.Dispatch(ctx, action); err != nil {
		return err
	}
	t.printer.PrintView(t.controller.View())
	return nil
}

func (t *terminal) register(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: register <email> <password> [name]")
	}
	req := &types.CreateUserRequest{Email: args[0], Password: args[1], Name: strings.Join(args[2:], " ")}
	if err := req.Validate(); err != nil {
		if field, tag, ok := types.FirstInvalidField(err); ok {
			return fmt.Errorf("%s failed %s check", field, tag)
		}
		return err
	}
	user, err := t.users.Register(ctx, req)
	if err != nil {
		return err
	}
	return t.signIn(ctx, user)
}

func (t *terminal) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <email> <password>")
	}
	user, err := t.users.Authenticate(ctx, &types.LoginRequest{Email: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	return t.signIn(ctx, user)
}

// signIn runs a login attempt on the terminal's auth session and waits for the workspace to
// observe it.
func (t *terminal) signIn(ctx context.Context, user *types.User) error {
	generation := t.provider.Begin()
	_, expiresAt, err := t.tokens.Issue(user.ID, t.provider.ID())
	if err != nil {
		t.provider.Fail(generation, err)
		return err
	}
	t.provider.Complete(generation, user.ToSessionUser(), expiresAt)

	waitCtx, cancel := context.WithTimeout(ctx, t.loginTimeout)
	defer cancel()
	state, err := t.controller.AwaitGeneration(waitCtx, generation)
	if err != nil {
		t.controller.CancelLogin()
		return &workspace.AuthCollaboratorError{Op: "login", Cause: err}
	}
	if state.Phase != workspace.PhaseAuthenticated {
		return &workspace.NotAuthenticatedError{Action: "login"}
	}
	t.printer.PrintView(t.controller.View())
	return nil
}

func (t *terminal) paste(ctx context.Context, scanner *bufio.Scanner, args string) error {
	if !t.controller.CanEnterWorkspace() {
		return &workspace.NotAuthenticatedError{Action: "paste"}
	}
	hints := hintsFrom(splitFields(args))

	fmt.Fprintln(t.out, `Paste the posting, then a line with a single "."`) //nolint:errcheck
	var sb strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "." {
			break
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	input, err := t.intake.FromText(ctx, hints, sb.String())
	if err != nil {
		return err
	}
	return t.dispatch(ctx, workspace.AddJob{Input: input})
}

func (t *terminal) fetch(ctx context.Context, args string) error {
	if !t.controller.CanEnterWorkspace() {
		return &workspace.NotAuthenticatedError{Action: "fetch"}
	}
	parts := splitFields(args)
	if len(parts) == 0 || parts[0] == "" {
		return errors.New("usage: fetch <url> [| <title> | <company>]")
	}
	input, err := t.intake.FromURL(ctx, hintsFrom(parts[1:]), parts[0])
	if err != nil {
		return err
	}
	return t.dispatch(ctx, workspace.AddJob{Input: input})
}

// jobAt resolves a 1-based job number from the current snapshot.
func (t *terminal) jobAt(arg string) (uuid.UUID, error) {
	view := t.controller.View()
	if view.Workspace == nil {
		return uuid.Nil, &workspace.NotAuthenticatedError{}
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(view.Workspace.Jobs) {
		return uuid.Nil, fmt.Errorf("no job number %q; %d saved", arg, len(view.Workspace.Jobs))
	}
	return view.Workspace.Jobs[n-1].ID, nil
}

func splitFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func hintsFrom(parts []string) intake.Hints {
	var hints intake.Hints
	if len(parts) > 0 {
		hints.Title = parts[0]
	}
	if len(parts) > 1 {
		hints.Company = parts[1]
	}
	return hints
}

// noticeFor maps workspace errors to their notification text and prints anything else as is.
func noticeFor(err error) string {
	var (
		validation *workspace.ValidationError
		unknown    *workspace.UnknownReferenceError
		notAuth    *workspace.NotAuthenticatedError
		authErr    *workspace.AuthCollaboratorError
	)
	if errors.As(err, &validation) || errors.As(err, &unknown) || errors.As(err, &notAuth) || errors.As(err, &authErr) {
		return workspace.Notice(err)
	}
	return err.Error()
}
