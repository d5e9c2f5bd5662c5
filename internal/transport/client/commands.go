package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

const tableTime = "2006-01-02 15:04:05"

// Commands provides command-line operations for the client
type Commands struct {
	client *Client
	out    io.Writer
}

// NewCommands creates a new Commands instance printing to out
func NewCommands(client *Client, out io.Writer) *Commands {
	return &Commands{
		client: client,
		out:    out,
	}
}

// Shorten creates a short URL and displays the result
func (c *Commands) Shorten(ctx context.Context, req domain.CreateURLRequest) error {
	result, err := c.client.CreateURL(ctx, req)
	if err != nil {
		return err
	}

	if result.Existing {
		fmt.Fprintf(c.out, "Existing short URL returned:\n")
	} else {
		fmt.Fprintf(c.out, "Short URL created:\n")
	}
	fmt.Fprintf(c.out, "Slug: %s\n", result.Slug)
	fmt.Fprintf(c.out, "Short URL: %s\n", result.ShortURL)
	fmt.Fprintf(c.out, "Target URL: %s\n", result.TargetURL)
	fmt.Fprintf(c.out, "Created At: %s\n", result.CreatedAt.Format(time.RFC3339))
	if result.ExpiresAt != nil {
		fmt.Fprintf(c.out, "Expires At: %s\n", result.ExpiresAt.Format(time.RFC3339))
	}

	return nil
}

// Info retrieves and displays information about a short URL
func (c *Commands) Info(ctx context.Context, slug string) error {
	link, err := c.client.GetURL(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Slug '%s' not found\n", slug)
			return nil
		}
		return err
	}

	fmt.Fprintf(c.out, "URL Information:\n")
	fmt.Fprintf(c.out, "Slug: %s\n", link.Slug)
	fmt.Fprintf(c.out, "Short URL: %s\n", link.ShortURL)
	fmt.Fprintf(c.out, "Target URL: %s\n", link.TargetURL)
	if link.Owner != "" {
		fmt.Fprintf(c.out, "Owner: %s\n", link.Owner)
	}
	fmt.Fprintf(c.out, "Created At: %s\n", link.CreatedAt.Format(time.RFC3339))
	if link.ExpiresAt != nil {
		fmt.Fprintf(c.out, "Expires At: %s\n", link.ExpiresAt.Format(time.RFC3339))
	} else {
		fmt.Fprintf(c.out, "Expires At: Never\n")
	}
	fmt.Fprintf(c.out, "Active: %t\n", link.IsActive)
	fmt.Fprintf(c.out, "Clicks: %d\n", link.ClickCount)

	return nil
}

// Deactivate disables a short URL
func (c *Commands) Deactivate(ctx context.Context, slug string) error {
	if err := c.client.DeactivateURL(ctx, slug); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Slug '%s' not found\n", slug)
			return nil
		}
		return err
	}

	fmt.Fprintf(c.out, "Short URL '%s' deactivated\n", slug)
	return nil
}

// List displays short URLs in a table format
func (c *Commands) List(ctx context.Context, owner string) error {
	links, err := c.client.ListURLs(ctx, owner)
	if err != nil {
		return err
	}

	if len(links) == 0 {
		fmt.Fprintln(c.out, "No URLs found")
		return nil
	}

	fmt.Fprintf(c.out, "%-12s %-50s %-20s %-8s %s\n", "Slug", "Target URL", "Created At", "Active", "Clicks")
	fmt.Fprintln(c.out, strings.Repeat("-", 104))

	for _, link := range links {
		fmt.Fprintf(c.out, "%-12s %-50s %-20s %-8t %d\n",
			link.Slug,
			truncate(link.TargetURL, 50),
			link.CreatedAt.Format(tableTime),
			link.IsActive,
			link.ClickCount,
		)
	}

	return nil
}

// Analytics displays the click analytics of a short URL
func (c *Commands) Analytics(ctx context.Context, slug string) error {
	stats, err := c.client.Analytics(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Slug '%s' not found\n", slug)
			return nil
		}
		return err
	}

	fmt.Fprintf(c.out, "Analytics for %s\n", slug)
	if stats.ShortURL != nil {
		fmt.Fprintf(c.out, "Target URL: %s\n", stats.ShortURL.TargetURL)
	}
	fmt.Fprintf(c.out, "Total Clicks: %d\n", stats.TotalClicks)
	fmt.Fprintf(c.out, "Clicks (7 days): %d\n", stats.ClicksLast7Days)

	devices := lo.Keys(stats.DeviceStats)
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })
	fmt.Fprintln(c.out, "Devices:")
	for _, d := range devices {
		fmt.Fprintf(c.out, "  %-10s %d\n", d, stats.DeviceStats[d])
	}

	if len(stats.RecentClicks) == 0 {
		return nil
	}

	fmt.Fprintln(c.out, "Recent Clicks:")
	for _, click := range stats.RecentClicks {
		location := strings.Join(lo.Compact([]string{click.City, click.Region, click.Country}), ", ")
		if location == "" {
			location = "unknown"
		}
		fmt.Fprintf(c.out, "  %-20s %-8s %-10s %-10s %s\n",
			click.ClickedAt.Format(tableTime),
			click.DeviceType,
			click.Browser,
			click.OS,
			location,
		)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
