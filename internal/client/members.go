package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Members is the membership snapshot served on a relay's /stats endpoint.
type Members struct {
	Sessions  int      `json:"sessions"`
	Usernames []string `json:"usernames"`
}

// StatsURL is the HTTP address of the configured server's /stats endpoint.
func (c Config) StatsURL() string {
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(c.ServerAddr, strconv.Itoa(c.Port)),
		Path:   "/stats",
	}
	return u.String()
}

// FetchMembers asks the server who is connected.
func FetchMembers(ctx context.Context, httpClient *http.Client, cfg Config) (Members, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.StatsURL(), nil)
	if err != nil {
		return Members{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Members{}, fmt.Errorf("could not reach %s: %w", cfg.StatsURL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Members{}, fmt.Errorf("unexpected status from %s: %s", cfg.StatsURL(), resp.Status)
	}

	var m Members
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Members{}, fmt.Errorf("decode stats: %w", err)
	}
	return m, nil
}

// RenderMembers prints m as a table in admission order.
func RenderMembers(w io.Writer, m Members) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Username"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for i, name := range m.Usernames {
		table.Append([]string{strconv.Itoa(i + 1), name})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d connected", m.Sessions)})
	table.Render()
}
