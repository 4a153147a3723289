package translation

import (
	"github.com/leonelquinteros/gotext"
	log "github.com/sirupsen/logrus"
	"strings"
)

// Configure loads the catalogue of lang from dir, missing catalogues fall
// back to the message ids
func Configure(dir, lang string) {
	gotext.Configure(dir, strings.ToLower(lang), "default")
	log.Debugf("Translations configured for %s", GetLanguage())
}

// GetLanguage returns the active language, "en" when none is set
func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
