// syncwatch follows the report list of a running server and reprints the
// dashboard whenever the store's state changes. With --report it follows a
// single report instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/syncagent"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		server     string
		token      string
		category   string
		status     string
		reportID   string
		minePage   int
		othersPage int
	)

	flagSet := pflag.NewFlagSet("syncwatch", pflag.ContinueOnError)
	flagSet.StringVar(&server, "server", "http://localhost:8080", "base URL of the report server")
	flagSet.StringVar(&token, "token", os.Getenv("FIXREPORT_TOKEN"), "access token (default: $FIXREPORT_TOKEN)")
	flagSet.StringVar(&category, "category", "", "only show reports in this category")
	flagSet.StringVar(&status, "status", "", "only show reports with this status")
	flagSet.StringVar(&reportID, "report", "", "follow a single report by id")
	flagSet.IntVar(&minePage, "page-mine", 1, "page of your own reports to show")
	flagSet.IntVar(&othersPage, "page-others", 1, "page of other reports to show")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	wsURL, err := eventsURL(server)
	if err != nil {
		return err
	}
	fetcher := syncagent.NewHTTPFetcher(server, token)
	source := syncagent.NewWSSource(wsURL, token)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if reportID != "" {
		id, err := uuid.Parse(reportID)
		if err != nil {
			return fmt.Errorf("invalid --report: %w", err)
		}
		agent := syncagent.NewDetailAgent(fetcher, id, printReport)
		return ignoreCancel(agent.Run(ctx, source))
	}

	filter := syncagent.DashboardFilter{Category: models.Category(category)}
	if category != "" && !filter.Category.Valid() {
		return fmt.Errorf("unknown category %q", category)
	}
	if status != "" {
		if filter.Status, err = models.ParseStatus(status); err != nil {
			return err
		}
	}
	viewer := viewerID(token)

	agent := syncagent.NewListAgent(fetcher, func(reports []models.Report) {
		fmt.Printf("\n=== %s ===\n", time.Now().Format(time.TimeOnly))
		d := syncagent.BuildDashboard(reports, viewer, filter, minePage, othersPage)
		if err := syncagent.WriteDashboard(os.Stdout, d); err != nil {
			slog.Warn("failed to print dashboard", "error", err)
		}
	})
	return ignoreCancel(agent.Run(ctx, source))
}

func printReport(r *models.Report) {
	fmt.Printf("\n=== %s ===\n", time.Now().Format(time.TimeOnly))
	if r == nil {
		fmt.Println("report deleted")
		return
	}
	fmt.Printf("%s  %s %s  [%s]  %s\n", r.Category, r.Building, r.RoomNumber, r.Status, r.ReporterName)
	fmt.Println(r.Details)
	if r.Note != "" {
		fmt.Printf("note: %s\n", r.Note)
	}
}

// eventsURL derives the websocket endpoint from the server's base URL.
func eventsURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid --server: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported --server scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/events"
	return u.String(), nil
}

// viewerID reads the sub claim without verifying the signature; the server
// verifies the token on every request, this only decides which reports are
// "mine" for display.
func viewerID(token string) uuid.UUID {
	if token == "" {
		return uuid.Nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return uuid.Nil
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: syncwatch [flags]\n\nFollow reports on a fixreport server and print the dashboard on every change.\n\nFlags:\n")
	flagSet.PrintDefaults()
}
