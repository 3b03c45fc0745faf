// Package i18n holds the user-facing texts of the workflow, one catalog per locale.
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	apperrors "whitelist-bot/internal/errors"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var supportedTags = []language.Tag{
	language.French,
	language.English,
}

var tagMatcher = language.NewMatcher(supportedTags)

// Catalog maps message keys to text templates for one locale.
type Catalog struct {
	locale   string
	messages map[string]string
	fallback *Catalog
}

var (
	loadOnce sync.Once
	loadErr  error
	catalogs map[string]*Catalog
)

func load() {
	catalogs = make(map[string]*Catalog, len(supportedTags))
	var base *Catalog
	for _, tag := range supportedTags {
		locale := tag.String()
		data, err := localeFS.ReadFile("locales/" + locale + ".yaml")
		if err != nil {
			loadErr = fmt.Errorf("failed to read locale %s: %w", locale, err)
			return
		}
		messages := map[string]string{}
		if err := yaml.Unmarshal(data, &messages); err != nil {
			loadErr = fmt.Errorf("failed to parse locale %s: %w", locale, err)
			return
		}
		c := NewCatalog(locale, messages)
		if base == nil {
			base = c
		} else {
			c.fallback = base
		}
		catalogs[locale] = c
	}
}

// Default returns the default locale tag.
func Default() language.Tag {
	return supportedTags[0]
}

// Supported lists the locales with a catalog.
func Supported() []string {
	out := make([]string, len(supportedTags))
	for i, tag := range supportedTags {
		out[i] = tag.String()
	}
	return out
}

// Validate reports whether the embedded catalogs load.
func Validate() error {
	loadOnce.Do(load)
	return loadErr
}

// For returns the catalog closest to the requested locale, falling back to the default.
func For(locale string) *Catalog {
	loadOnce.Do(load)
	if loadErr != nil {
		return NewCatalog(Default().String(), nil)
	}
	tag := Default()
	if requested, err := language.Parse(strings.TrimSpace(locale)); err == nil {
		_, idx, conf := tagMatcher.Match(requested)
		if conf != language.No {
			tag = supportedTags[idx]
		}
	}
	return catalogs[tag.String()]
}

// NewCatalog creates a catalog from raw messages.
func NewCatalog(locale string, messages map[string]string) *Catalog {
	cloned := make(map[string]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{locale: locale, messages: cloned}
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Has reports whether the key exists in this catalog or its fallback.
func (c *Catalog) Has(key string) bool {
	if _, ok := c.messages[key]; ok {
		return true
	}
	return c.fallback != nil && c.fallback.Has(key)
}

// Text renders the template stored under key. Unknown keys render as the key itself.
func (c *Catalog) Text(key string, data map[string]string) string {
	tmpl, ok := c.messages[key]
	if !ok {
		if c.fallback != nil {
			return c.fallback.Text(key, data)
		}
		return key
	}
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	if data == nil {
		data = map[string]string{}
	}

	t, err := template.New(key).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return tmpl
	}
	return buf.String()
}

// T renders key with alternating name/value pairs.
func (c *Catalog) T(key string, pairs ...string) string {
	data := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		data[pairs[i]] = pairs[i+1]
	}
	return c.Text(key, data)
}

// Error renders the user-facing text of err from its code and metadata.
// Errors without a known code render the generic failure message.
func (c *Catalog) Error(err error) string {
	code := apperrors.CodeOf(err)
	key := "error." + string(code)
	if code == "" || !c.Has(key) {
		key = "error." + string(apperrors.CodeUnknown)
	}
	return c.Text(key, apperrors.MetadataOf(err))
}
