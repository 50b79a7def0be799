package fanout

import (
	"fmt"
	"strings"

	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/verification"
)

const (
	discordMaxFields     = 25
	discordFieldNameMax  = 256
	discordFieldValueMax = 1024
	notionTextMax        = 2000
	telegramTextMax      = 4096

	discordUnnamedField = "(unnamed)"
)

// cleanFields drops fields that only matter to the pipeline itself.
func cleanFields(p models.Payload) models.Payload {
	return p.Without(verification.TokenField)
}

// fieldLines renders "name: value" lines in submission order.
func fieldLines(p models.Payload) string {
	lines := make([]string, 0, p.Len())
	p.Each(func(k string, v interface{}) {
		lines = append(lines, fmt.Sprintf("%s: %s", k, models.Stringify(v)))
	})
	return strings.Join(lines, "\n")
}

func formLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return "your form"
	}
	return name
}
