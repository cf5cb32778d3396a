package regiondocs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing doc: %v", err)
	}
}

func TestForMonth_ExtractsMonthSection(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "hortalizas.md", "# Hortalizas\n\n## Agosto\nTrasplante de chile en invernadero.\n\n## Octubre\nRiesgo de helada temprana.\n")

	c := NewCache(dir)

	aug := c.ForMonth(time.August)
	if !strings.Contains(aug, "Trasplante de chile") {
		t.Errorf("august section missing: %q", aug)
	}
	if strings.Contains(aug, "helada temprana") {
		t.Errorf("october content leaked into august: %q", aug)
	}
	if !strings.Contains(aug, "[hortalizas]") {
		t.Errorf("sector label missing: %q", aug)
	}
}

func TestForMonth_WholeDocWithoutHeadings(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "general.md", "Durango tiene clima semiárido con lluvias de junio a septiembre.")

	got := NewCache(dir).ForMonth(time.January)
	if !strings.Contains(got, "clima semiárido") {
		t.Errorf("expected whole doc without headings, got %q", got)
	}
}

func TestForMonth_NoMatchingMonth(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "frutales.md", "## Marzo\nPoda de nogal.\n")

	if got := NewCache(dir).ForMonth(time.December); got != "" {
		t.Errorf("expected empty for month without section, got %q", got)
	}
}

func TestForMonth_MissingDirIsEmpty(t *testing.T) {
	if got := NewCache(filepath.Join(t.TempDir(), "nope")).ForMonth(time.May); got != "" {
		t.Errorf("expected empty for missing dir, got %q", got)
	}
}

func TestForMonth_CachesFirstBuild(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.md", "contenido original")

	c := NewCache(dir)
	first := c.ForMonth(time.May)

	// Rewriting the file must not change the cached month.
	writeDoc(t, dir, "a.md", "contenido nuevo")
	if got := c.ForMonth(time.May); got != first {
		t.Errorf("cache not reused: %q != %q", got, first)
	}
}

func TestForMonth_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.md", "contenido")

	c := NewCache(dir)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := time.January; m <= time.December; m++ {
				c.ForMonth(m)
			}
		}()
	}
	wg.Wait()
}
