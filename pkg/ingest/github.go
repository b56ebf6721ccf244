// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// GitHubIngester scrapes the public contribution graph served from a
// GitHub profile page. It is the default, out-of-core collaborator:
// the core only ever sees the timestamp list Contributions returns.
type GitHubIngester struct {
	Client *http.Client
}

func NewGitHubIngester() *GitHubIngester {
	return &GitHubIngester{Client: &http.Client{Timeout: 15 * time.Second}}
}

// dayCellPattern matches one contribution-graph day cell, capturing its
// ISO date and contribution count. GitHub's public profile markup
// renders each day as a <td>/<rect> carrying data-date and
// data-count/data-level attributes; the exact tag name has shifted
// across GitHub redesigns, so this matches on attributes alone.
var dayCellPattern = regexp.MustCompile(`data-date="(\d{4}-\d{2}-\d{2})"[^>]*data-(?:count|level)="(\d+)"`)

func (g *GitHubIngester) Contributions(ctx context.Context, handle string) ([]int64, error) {
	url := fmt.Sprintf("https://github.com/users/%s/contributions", handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingest: unexpected status %d fetching contributions for %q", resp.StatusCode, handle)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out []int64
	for _, m := range dayCellPattern.FindAllSubmatch(body, -1) {
		count, err := strconv.Atoi(string(m[2]))
		if err != nil || count == 0 {
			continue
		}
		day, err := time.Parse("2006-01-02", string(m[1]))
		if err != nil {
			continue
		}
		for i := 0; i < count; i++ {
			// Spread same-day contributions across business hours so
			// that distinct commits on the same day don't collide on
			// the exact same timestamp.
			out = append(out, day.Unix()+int64(9*3600+i*97))
		}
	}
	return out, nil
}
