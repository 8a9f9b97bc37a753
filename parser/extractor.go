package parser

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/aluiziolira/go-scrape-mega645/models"
)

// DefaultHeaderLabel identifies the results table by its header text.
const DefaultHeaderLabel = "Winning No"

// Strategy is one way of pulling draw records out of a parsed page.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document) []models.DrawRecord
}

// TableStrategy reads rows of tables whose header carries a label. Tables
// without a <thead> are also read.
type TableStrategy struct {
	HeaderLabel string
}

// Name implements Strategy.
func (TableStrategy) Name() string { return "table" }

// Extract implements Strategy.
func (ts TableStrategy) Extract(doc *goquery.Document) []models.DrawRecord {
	label := strings.ToLower(ts.HeaderLabel)
	var out []models.DrawRecord

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if thead := table.Find("thead").First(); thead.Length() > 0 {
			header := strings.ToLower(nodeText(thead.Nodes, " "))
			if !strings.Contains(header, label) {
				return
			}
		}

		body := table.Find("tbody").First()
		if body.Length() == 0 {
			body = table
		}

		body.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if rec, ok := ParseLine(nodeText(row.Nodes, " ")); ok {
				out = append(out, rec)
			}
		})
	})
	return out
}

// TextStrategy scans the flattened visible text of the page line by line.
type TextStrategy struct{}

// Name implements Strategy.
func (TextStrategy) Name() string { return "text" }

// Extract implements Strategy.
func (TextStrategy) Extract(doc *goquery.Document) []models.DrawRecord {
	return parseLines(nodeText(doc.Nodes, "\n"))
}

// Extractor tries its strategies in order and keeps the first non-empty
// result.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor builds an extractor. With no strategies it uses
// DefaultStrategies(DefaultHeaderLabel).
func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(DefaultHeaderLabel)
	}
	return &Extractor{strategies: strategies}
}

// DefaultStrategies returns the table pass followed by the text fallback.
func DefaultStrategies(headerLabel string) []Strategy {
	if headerLabel == "" {
		headerLabel = DefaultHeaderLabel
	}
	return []Strategy{
		TableStrategy{HeaderLabel: headerLabel},
		TextStrategy{},
	}
}

// Extract parses content and returns the draws found, in source order.
// Unparseable content yields no records.
func (e *Extractor) Extract(content []byte) []models.DrawRecord {
	records, _ := e.ExtractNamed(content)
	return records
}

// ExtractNamed is Extract that also reports the winning strategy.
func (e *Extractor) ExtractNamed(content []byte) ([]models.DrawRecord, string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		slog.Debug("parse html", slog.Any("error", err))
		return nil, ""
	}
	return e.ExtractDocument(doc)
}

// ExtractDocument runs the strategies over doc and also reports which one
// produced the records. The name is empty when nothing matched.
func (e *Extractor) ExtractDocument(doc *goquery.Document) ([]models.DrawRecord, string) {
	for _, s := range e.strategies {
		if records := s.Extract(doc); len(records) > 0 {
			return records, s.Name()
		}
	}
	return nil, ""
}

// nodeText joins the trimmed, non-empty text nodes under nodes with sep.
// Script and style contents are skipped.
func nodeText(nodes []*html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}
