// Package i18n holds the bot's message catalog. A single zh-TW locale is
// embedded; every user-facing string goes through T.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Locale is the only catalog shipped.
var Locale = language.MustParse("zh-TW")

var (
	once      sync.Once
	localizer *i18n.Localizer
	loadErr   error
)

func load() {
	bundle := i18n.NewBundle(Locale)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		loadErr = fmt.Errorf("i18n: read locales dir: %w", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			loadErr = fmt.Errorf("i18n: read %s: %w", e.Name(), err)
			return
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			loadErr = fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
			return
		}
	}
	localizer = i18n.NewLocalizer(bundle, Locale.String())
}

// Init loads the catalog eagerly so a broken locale file fails at startup.
func Init() error {
	once.Do(load)
	return loadErr
}

// T renders messageID with optional template data. Unknown ids render as the id.
func T(messageID string, templateData ...map[string]any) string {
	once.Do(load)
	if localizer == nil {
		return messageID
	}

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(templateData) > 0 && templateData[0] != nil {
		cfg.TemplateData = templateData[0]
	}

	msg, err := localizer.Localize(cfg)
	if err != nil {
		return messageID
	}
	return msg
}
