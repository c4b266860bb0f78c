package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/logistix/internal/backend"
	"github.com/runger/logistix/internal/config"
	"github.com/runger/logistix/internal/picker"
)

var (
	listSearch string
	listLimit  int
	listPage   int
	listAll    bool
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "List records of a collection",
	Long: `List records of a master-data collection without opening the picker.

Each line is: ID<TAB>label<TAB>description.

Examples:
  logistix list customers
  logistix list vendors --search acme
  logistix list locations --all --json`,
	GroupID: groupCore,
	Args:    cobra.ExactArgs(1),
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "filter by search term")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "items per page (default picker.page_size)")
	listCmd.Flags().IntVar(&listPage, "page", 1, "page to show")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "walk every page")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	def, err := cfg.Resource(args[0])
	if err != nil {
		return err
	}
	if listLimit < 0 {
		return fmt.Errorf("--limit must be a positive integer")
	}
	if listPage < 1 {
		return fmt.Errorf("--page must be a positive integer")
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	src, err := picker.ResourceSource(client, def)
	if err != nil {
		return err
	}

	limit := listLimit
	if limit == 0 {
		limit = cfg.Picker.PageSize
	}
	search := strings.TrimSpace(listSearch)

	var (
		opts []picker.Option
		hint string
	)
	if listAll {
		opts, err = fetchAll(cmd.Context(), src, limit, search, 0)
	} else {
		var page pageResult
		page, err = fetchOne(cmd.Context(), src, listPage, limit, search)
		opts = page.Items
		if page.TotalPages > page.CurrentPage {
			hint = fmt.Sprintf("page %d/%d, use --page or --all for more", page.CurrentPage, page.TotalPages)
		}
	}
	if err != nil {
		return fmt.Errorf("list %s: %s", def.ID, backend.Describe(err))
	}

	if err := printOptions(cmd.OutOrStdout(), opts, listJSON); err != nil {
		return err
	}
	if hint != "" && !listJSON {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s%s%s\n", colorDim, hint, colorReset)
	}
	return nil
}

// pageResult is one page of options with its position.
type pageResult struct {
	Items       []picker.Option
	TotalPages  int
	CurrentPage int
}

func fetchOne(ctx context.Context, src picker.Source, page, limit int, search string) (pageResult, error) {
	p, err := src.FetchPage(ctx, page, limit, search)
	if err != nil {
		return pageResult{}, err
	}
	return pageResult{Items: p.Items, TotalPages: p.TotalPages, CurrentPage: p.CurrentPage}, nil
}

// fetchAll walks pages of src until the server reports the last one or a
// page comes back empty. maxItems > 0 stops early.
func fetchAll(ctx context.Context, src picker.Source, limit int, search string, maxItems int) ([]picker.Option, error) {
	var all []picker.Option
	for page := 1; ; page++ {
		p, err := src.FetchPage(ctx, page, limit, search)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if maxItems > 0 && len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if len(p.Items) == 0 || page >= p.TotalPages {
			return all, nil
		}
	}
}

// formatOption renders o as one tab-separated line. Tabs inside fields are
// already collapsed by picker.CleanText.
func formatOption(o picker.Option) string {
	return o.Value + "\t" + o.Label + "\t" + o.Description
}

func printOptions(w io.Writer, opts []picker.Option, asJSON bool) error {
	if asJSON {
		if opts == nil {
			opts = []picker.Option{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(opts)
	}
	for _, o := range opts {
		if _, err := fmt.Fprintln(w, formatOption(o)); err != nil {
			return err
		}
	}
	return nil
}

// newClient builds the API client from the api config section.
func newClient(cfg *config.Config, logger *slog.Logger) (*backend.Client, error) {
	opts := []backend.ClientOption{
		backend.WithTimeout(time.Duration(cfg.API.TimeoutMs) * time.Millisecond),
		backend.WithLogger(logger),
	}
	if cfg.API.Token != "" {
		opts = append(opts, backend.WithToken(cfg.API.Token))
	}
	return backend.New(cfg.API.BaseURL, opts...)
}
