package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/shlex"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/runger/logistix/internal/config"
	"github.com/runger/logistix/internal/picker"
)

// Exit codes of the pick command. These match the expectations of shell
// scripts:
//
//	0 = selection made (use the result)
//	1 = cancelled by user (keep the previous value)
//	2 = no usable terminal or backend error (fall back to manual entry)
const (
	exitSuccess   = 0
	exitCancelled = 1
	exitFallback  = 2
)

const (
	// fzfMaxItems caps how many records the fzf backend loads.
	fzfMaxItems = 10000

	// minTermWidth is the narrowest terminal the dropdown renders in.
	minTermWidth = 20

	// pickOptsEnv holds extra pick flags, split like a shell would.
	pickOptsEnv = "LOGISTIX_PICK_OPTS"
)

var (
	pickValue       string
	pickPlaceholder string
	pickQuery       string
	pickPageSize    int
	pickBackend     string
)

var pickCmd = &cobra.Command{
	Use:   "pick <resource>",
	Short: "Pick a record interactively and print its ID",
	Long: `Open a searchable dropdown over a master-data collection and print the
identifier of the chosen record to stdout.

The dropdown is drawn on /dev/tty, so the command works inside $(...).
Typing filters the collection on the server; scrolling to the bottom loads
the next page.

Extra flags can be supplied through LOGISTIX_PICK_OPTS.

Exit status: 0 selected, 1 cancelled, 2 no terminal or error.

Examples:
  logistix pick customers
  logistix pick vendors --query "acme"
  CUSTOMER=$(logistix pick customers --value "$CUSTOMER")`,
	GroupID: groupCore,
	Args:    cobra.ExactArgs(1),
	RunE:    runPick,
}

func init() {
	pickCmd.Flags().StringVar(&pickValue, "value", "", "currently selected ID")
	pickCmd.Flags().StringVar(&pickPlaceholder, "placeholder", "", "text shown when nothing is selected")
	pickCmd.Flags().StringVarP(&pickQuery, "query", "q", "", "initial search query (max 4096 bytes)")
	pickCmd.Flags().IntVar(&pickPageSize, "page-size", 0, "items per page (default picker.page_size)")
	pickCmd.Flags().StringVar(&pickBackend, "backend", "builtin", "picker backend: builtin or fzf")
}

func runPick(cmd *cobra.Command, args []string) error {
	cfg, paths, err := loadConfig()
	if err != nil {
		return &ExitError{Code: exitFallback, Err: err}
	}
	def, err := cfg.Resource(args[0])
	if err != nil {
		return &ExitError{Code: exitFallback, Err: err}
	}
	query, err := sanitizeQuery(pickQuery)
	if err != nil {
		return &ExitError{Code: exitFallback, Err: fmt.Errorf("--query: %w", err)}
	}
	if pickPageSize < 0 {
		return &ExitError{Code: exitFallback, Err: fmt.Errorf("--page-size must be a positive integer")}
	}

	logger, closeLog, err := newFileLogger(cfg, paths)
	if err != nil {
		return &ExitError{Code: exitFallback, Err: err}
	}
	defer closeLog()

	client, err := newClient(cfg, logger)
	if err != nil {
		return &ExitError{Code: exitFallback, Err: err}
	}
	src, err := picker.ResourceSource(client, def)
	if err != nil {
		return &ExitError{Code: exitFallback, Err: err}
	}

	pageSize := pickPageSize
	if pageSize == 0 {
		pageSize = cfg.Picker.PageSize
	}

	switch pickBackend {
	case "fzf":
		if _, err := exec.LookPath("fzf"); err == nil {
			return runFzf(cmd.Context(), cmd.OutOrStdout(), src, pageSize, query)
		}
		logger.Debug("fzf not found on PATH, falling back to builtin")
	case "builtin", "":
	default:
		logger.Debug("unknown picker backend, falling back to builtin", "backend", pickBackend)
	}

	props := picker.Props{
		Value:        pickValue,
		Placeholder:  pickPlaceholder,
		PageSize:     pageSize,
		Debounce:     time.Duration(cfg.Picker.DebounceMs) * time.Millisecond,
		FetchTimeout: time.Duration(cfg.API.TimeoutMs) * time.Millisecond,
		MaxRows:      cfg.Picker.Height,
		QuitOnSelect: true,
		Logger:       logger,
	}
	if props.Placeholder == "" {
		props.Placeholder = "Select " + strings.ToLower(resourceLabel(def)) + "..."
	}
	return runBuiltin(cmd.OutOrStdout(), src, props, query, logger)
}

// runBuiltin runs the Bubble Tea dropdown on the controlling terminal and
// writes the selected ID to out.
func runBuiltin(out io.Writer, src picker.Source, props picker.Props, query string, logger *slog.Logger) error {
	// Open /dev/tty for TUI input/output since stdout carries the result.
	tty, err := openTTY()
	if err != nil {
		return &ExitError{Code: exitFallback, Err: err}
	}
	defer tty.Close()

	if err := checkTerminal(tty); err != nil {
		return &ExitError{Code: exitFallback, Err: err}
	}

	// When invoked via $(logistix pick ...), stdout is a pipe and lipgloss
	// would default to Ascii. Detect the profile from the tty instead.
	lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())

	model := picker.NewModel(src, props).WithOpen()
	if query != "" {
		model = model.WithQuery(query)
	}

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(tty),
		tea.WithOutput(tty),
	)

	finalModel, err := p.Run()
	if err != nil {
		return &ExitError{Code: exitFallback, Err: fmt.Errorf("TUI error: %w", err)}
	}

	m, ok := finalModel.(picker.Model)
	if !ok {
		return &ExitError{Code: exitFallback, Err: fmt.Errorf("unexpected model type %T", finalModel)}
	}
	m.Close()

	if m.Cancelled() {
		if err := m.Err(); err != nil {
			logger.Warn("pick cancelled after fetch error", "error", err)
		}
		logger.Debug("pick cancelled")
		return &ExitError{Code: exitCancelled}
	}

	result := m.Result()
	if result == "" {
		return &ExitError{Code: exitCancelled}
	}
	fmt.Fprintln(out, result)
	return nil
}

// runFzf fetches every matching record and pipes it through fzf.
func runFzf(ctx context.Context, out io.Writer, src picker.Source, pageSize int, query string) error {
	opts, err := fetchAll(ctx, src, pageSize, query, fzfMaxItems)
	if err != nil {
		return &ExitError{Code: exitFallback, Err: err}
	}
	if len(opts) == 0 {
		return &ExitError{Code: exitCancelled}
	}

	lines := make([]string, len(opts))
	for i, o := range opts {
		lines[i] = formatOption(o)
	}

	// Show label and description; the ID column stays hidden.
	args := []string{"--no-sort", "--delimiter", "\t", "--with-nth", "2.."}
	if query != "" {
		args = append(args, "--query", query)
	}

	fzf := exec.CommandContext(ctx, "fzf", args...)
	fzf.Stdin = strings.NewReader(strings.Join(lines, "\n"))
	fzf.Stderr = os.Stderr // Let fzf render its TUI on stderr/tty.

	output, err := fzf.Output()
	if err != nil {
		// fzf exits 130 when cancelled and 1 when nothing matched.
		return &ExitError{Code: exitCancelled}
	}

	id, _, _ := strings.Cut(strings.TrimRight(string(output), "\n"), "\t")
	if id == "" {
		return &ExitError{Code: exitCancelled}
	}
	fmt.Fprintln(out, id)
	return nil
}

// checkTerminal verifies TERM is usable and the terminal is wide enough.
func checkTerminal(tty *os.File) error {
	if os.Getenv("TERM") == "dumb" {
		return fmt.Errorf("TERM=dumb is not supported")
	}
	width := termWidth(tty)
	if width == 0 {
		width, _ = strconv.Atoi(os.Getenv("COLUMNS"))
	}
	if width > 0 && width < minTermWidth {
		return fmt.Errorf("terminal too narrow (%d columns, need at least %d)", width, minTermWidth)
	}
	return nil
}

// sanitizeQuery strips control characters and validates the query string.
func sanitizeQuery(q string) (string, error) {
	if q == "" {
		return "", nil
	}

	// Reject newlines before stripping.
	if strings.ContainsAny(q, "\n\r") {
		return "", fmt.Errorf("query must not contain newlines")
	}

	q = picker.StripANSI(q)

	// Strip control characters (0x00-0x1F, 0x7F) except tab.
	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		if (r <= 0x1F && r != '\t') || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	result := b.String()

	if runes := []rune(result); len(runes) > picker.MaxQueryLen {
		result = string(runes[:picker.MaxQueryLen])
	}
	return result, nil
}

// expandPickOpts inserts the shell-split contents of env right after the
// pick subcommand in args. Flags given on the command line come later and
// so take precedence.
func expandPickOpts(args []string, env string) ([]string, error) {
	if strings.TrimSpace(env) == "" {
		return args, nil
	}
	at := -1
	for i, a := range args {
		if a == "--" {
			break
		}
		if a == pickCmd.Name() {
			at = i
			break
		}
	}
	if at < 0 {
		return args, nil
	}

	extra, err := shlex.Split(env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pickOptsEnv, err)
	}

	out := make([]string, 0, len(args)+len(extra))
	out = append(out, args[:at+1]...)
	out = append(out, extra...)
	out = append(out, args[at+1:]...)
	return out, nil
}

// pickOptsFromEnv applies LOGISTIX_PICK_OPTS to the process arguments.
func pickOptsFromEnv(args []string) ([]string, error) {
	return expandPickOpts(args, os.Getenv(pickOptsEnv))
}

// resourceLabel returns a human-readable name for def.
func resourceLabel(def config.ResourceDef) string {
	if def.Label != "" {
		return def.Label
	}
	return def.ID
}
