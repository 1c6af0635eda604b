// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher is the default SourceFetcher: it requests each candidate
// changelog URL and returns every one that answers 200 OK. No HTTP client
// library appears anywhere in the reference corpus, so this adapter uses
// the standard library's client directly rather than adopting an
// unrelated dependency with no grounding.
type HTTPFetcher struct {
	Client *http.Client
	// URLsFor returns the candidate changelog/migration-guide URLs for a
	// library version pair. Tests and offline use supply a stub; the
	// zero value falls back to one GitHub URL,
	// <library>/<library>/main/CHANGELOG.md on raw.githubusercontent.com.
	URLsFor func(library, fromVersion, toVersion string) []string
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (f *HTTPFetcher) urls(library, from, to string) []string {
	if f.URLsFor != nil {
		return f.URLsFor(library, from, to)
	}
	return []string{
		fmt.Sprintf("https://raw.githubusercontent.com/%[1]s/%[1]s/main/CHANGELOG.md", library),
	}
}

// Fetch implements SourceFetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, library, fromVersion, toVersion string) ([]Document, error) {
	var docs []Document
	for _, url := range f.urls(library, fromVersion, toVersion) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client().Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		body, err := func() ([]byte, error) {
			defer resp.Body.Close()
			return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		}()
		if err != nil {
			return nil, fmt.Errorf("fetch %s: read body: %w", url, err)
		}
		if resp.StatusCode != http.StatusOK {
			continue
		}
		docs = append(docs, Document{
			URL:         url,
			ContentType: resp.Header.Get("Content-Type"),
			Bytes:       body,
		})
	}
	return docs, nil
}
