package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	platformerrors "retrocast-server-go/internal/platform/errors"
)

// Item is one candidate image produced by a catalog. Timestamp keeps the
// feed's raw published string; it may be empty when the feed omits it.
type Item struct {
	URL       string
	Timestamp string
}

// Fetcher retrieves raw bytes for a URL. *Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Catalog enumerates the current candidate items of a source.
type Catalog interface {
	ListCandidates(ctx context.Context, src *Source) ([]Item, error)
}

// FeedCatalog parses RSS 2.0 and Atom documents and extracts one image URL
// per entry from media:content, media:thumbnail or enclosure references.
type FeedCatalog struct {
	fetcher Fetcher
}

func NewFeedCatalog(fetcher Fetcher) *FeedCatalog {
	return &FeedCatalog{fetcher: fetcher}
}

// ListCandidates downloads and parses the source's feed document. Entries
// without a usable image reference and URLs matching the source's skip
// keywords are dropped.
func (c *FeedCatalog) ListCandidates(ctx context.Context, src *Source) ([]Item, error) {
	data, err := c.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindCatalog, "list candidates",
			src.Name, err)
	}

	items, err := parseDocument(data)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindCatalog, "list candidates",
			src.Name, err)
	}

	filtered := items[:0]
	for _, item := range items {
		if src.SkipsURL(item.URL) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, nil
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	PubDate    string     `xml:"pubDate"`
	Enclosures []mediaRef `xml:"enclosure"`
	Content    []mediaRef `xml:"content"`
	Thumbnails []mediaRef `xml:"thumbnail"`
}

type mediaRef struct {
	URL  string `xml:"url,attr"`
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

type atomDocument struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Links     []atomLink `xml:"link"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

func parseDocument(data []byte) ([]Item, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, err
	}

	switch root {
	case "rss":
		var doc rssDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(doc.Channel.Items))
		for _, entry := range doc.Channel.Items {
			url := entry.imageURL()
			if url == "" {
				continue
			}
			items = append(items, Item{URL: url, Timestamp: strings.TrimSpace(entry.PubDate)})
		}
		return items, nil
	case "feed":
		var doc atomDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(doc.Entries))
		for _, entry := range doc.Entries {
			url := entry.imageURL()
			if url == "" {
				continue
			}
			ts := strings.TrimSpace(entry.Published)
			if ts == "" {
				ts = strings.TrimSpace(entry.Updated)
			}
			items = append(items, Item{URL: url, Timestamp: ts})
		}
		return items, nil
	default:
		return nil, platformerrors.New(platformerrors.KindCatalog, "parse",
			"unrecognized feed document root: "+root)
	}
}

func rootElement(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return "", platformerrors.New(platformerrors.KindCatalog, "parse",
				"document has no root element")
		}
		if err != nil {
			return "", err
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// imageURL picks the first plausible image reference: media:content first,
// then media:thumbnail, then enclosures declaring an image type or carrying
// an image file extension.
func (e rssItem) imageURL() string {
	for _, ref := range e.Content {
		if ref.URL != "" {
			return ref.URL
		}
	}
	for _, ref := range e.Thumbnails {
		if ref.URL != "" {
			return ref.URL
		}
	}
	for _, ref := range e.Enclosures {
		if ref.URL == "" {
			continue
		}
		if strings.Contains(ref.Type, "image") || hasImageExtension(ref.URL) {
			return ref.URL
		}
	}
	return ""
}

func (e atomEntry) imageURL() string {
	for _, link := range e.Links {
		if link.Rel != "enclosure" || link.Href == "" {
			continue
		}
		if strings.Contains(link.Type, "image") || hasImageExtension(link.Href) {
			return link.Href
		}
	}
	return ""
}

func hasImageExtension(url string) bool {
	lower := strings.ToLower(url)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
