package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/dwizi/city-browser/internal/browser"
	"github.com/dwizi/city-browser/internal/cityclient"
	"github.com/dwizi/city-browser/internal/config"
)

func newCitiesCommand(logger *slog.Logger) *cobra.Command {
	var (
		login    string
		password string
		name     string
		page     int
	)
	cmd := &cobra.Command{
		Use:   "cities",
		Short: "Print one page of cities without starting the terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return fmt.Errorf("--page must be at least 1")
			}
			if password == "" {
				password = os.Getenv("CITY_BROWSER_PASSWORD")
			}
			cfg := config.FromEnv()
			client, err := cityclient.New(cfg)
			if err != nil {
				return err
			}
			if logger == nil {
				logger = slog.New(slog.DiscardHandler)
			}

			timeout := time.Duration(cfg.RequestTimeoutSec*(page+2)) * time.Second
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			app := browser.NewApp(logger.With("component", "cities"))
			state, err := fetchCityPage(ctx, app, client, login, password, name, page-1)
			if err != nil {
				return err
			}
			printCityPage(cmd.OutOrStdout(), state)
			return nil
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "account login")
	cmd.Flags().StringVar(&password, "password", "", "account password (defaults to CITY_BROWSER_PASSWORD)")
	cmd.Flags().StringVar(&name, "name", "", "only list cities whose name contains this text")
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	return cmd
}

// fetchCityPage drives app the same way the terminal UI does: login, an
// optional search, then one step at a time to the requested page.
func fetchCityPage(ctx context.Context, app *browser.App, api browser.API, login, password, name string, pageIndex int) (browser.State, error) {
	req, err := app.Login(login, password)
	if err != nil {
		return browser.State{}, err
	}
	runRequests(ctx, app, api, req)
	if err := listingError(app.Snapshot()); err != nil {
		return browser.State{}, err
	}

	if strings.TrimSpace(name) != "" {
		search, err := app.Search(name)
		if err != nil {
			return browser.State{}, err
		}
		runRequests(ctx, app, api, search)
		if err := listingError(app.Snapshot()); err != nil {
			return browser.State{}, err
		}
	}

	for app.Snapshot().Page.PageIndex < pageIndex {
		next, ok := app.GoToPage(1)
		if !ok {
			return browser.State{}, fmt.Errorf("page %d is out of range (%d pages)", pageIndex+1, app.Snapshot().Page.TotalPages)
		}
		runRequests(ctx, app, api, next)
		if err := listingError(app.Snapshot()); err != nil {
			return browser.State{}, err
		}
	}
	return app.Snapshot(), nil
}

func runRequests(ctx context.Context, app *browser.App, api browser.API, requests ...browser.Request) {
	for len(requests) > 0 {
		req := requests[0]
		requests = requests[1:]
		requests = append(requests, app.Apply(browser.Execute(ctx, api, req))...)
	}
}

func listingError(state browser.State) error {
	if !state.Session.Authenticated {
		return errors.New(state.Session.LastError)
	}
	if state.Notice != "" {
		return errors.New(state.Notice)
	}
	return nil
}

func printCityPage(w io.Writer, state browser.State) {
	bold := color.New(color.Bold).SprintFunc()

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow(bold("ID"), bold("NAME"), bold("PHOTO"))
	for _, city := range state.Page.Content {
		tbl.AddRow(strconv.FormatInt(city.ID, 10), city.Name, city.PhotoURL)
	}
	_, _ = fmt.Fprintln(w, tbl)

	position := "no results"
	if state.Page.TotalPages > 0 {
		position = fmt.Sprintf("page %d/%d", state.Page.PageIndex+1, state.Page.TotalPages)
	}
	_, _ = fmt.Fprintf(w, "%s, %d cities total\n", position, state.Page.TotalElements)
}
