package regiondocs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// monthNames maps time.Month to the Spanish headings used in the sector
// notes.
var monthNames = map[time.Month]string{
	time.January:   "enero",
	time.February:  "febrero",
	time.March:     "marzo",
	time.April:     "abril",
	time.May:       "mayo",
	time.June:      "junio",
	time.July:      "julio",
	time.August:    "agosto",
	time.September: "septiembre",
	time.October:   "octubre",
	time.November:  "noviembre",
	time.December:  "diciembre",
}

// Cache serves month-keyed regional context assembled from markdown notes
// on disk. Each month's text is built once and reused; the notes change
// rarely (they describe seasonal patterns, not news) so there is no
// invalidation beyond process restart.
type Cache struct {
	docsDir string

	mu      sync.RWMutex
	byMonth map[time.Month]string
}

// NewCache creates a Cache over the given directory of .md files.
func NewCache(docsDir string) *Cache {
	return &Cache{
		docsDir: docsDir,
		byMonth: make(map[time.Month]string),
	}
}

// ForMonth returns the regional context for the given month. A missing or
// empty docs directory yields an empty string, not an error: regional
// notes are optional grounding.
func (c *Cache) ForMonth(month time.Month) string {
	c.mu.RLock()
	if text, ok := c.byMonth[month]; ok {
		c.mu.RUnlock()
		return text
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if text, ok := c.byMonth[month]; ok {
		return text
	}
	text := c.build(month)
	c.byMonth[month] = text
	return text
}

// build reads every markdown file in the docs directory and assembles the
// month's context: each file contributes its month-specific section if one
// exists, or its whole body otherwise.
func (c *Cache) build(month time.Month) string {
	entries, err := os.ReadDir(c.docsDir)
	if err != nil {
		return ""
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(c.docsDir, name))
		if err != nil {
			continue
		}
		body := monthSection(string(data), month)
		if body == "" {
			continue
		}
		sector := strings.TrimSuffix(name, ".md")
		parts = append(parts, fmt.Sprintf("[%s] %s", sector, body))
	}
	return strings.Join(parts, "\n")
}

// monthSection extracts the block under a "## <month>" heading, falling
// back to the whole document when no month heading matches.
func monthSection(doc string, month time.Month) string {
	want := monthNames[month]

	var section strings.Builder
	inSection := false
	sawHeadings := false

	scanner := bufio.NewScanner(strings.NewReader(doc))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "## ") {
			sawHeadings = true
			heading := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "## ")))
			inSection = heading == want
			continue
		}
		if inSection {
			section.WriteString(line)
			section.WriteString("\n")
		}
	}

	if got := strings.TrimSpace(section.String()); got != "" {
		return got
	}
	if sawHeadings {
		// Month headings exist but none match: nothing seasonal to say.
		return ""
	}
	return strings.TrimSpace(doc)
}
