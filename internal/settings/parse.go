package settings

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Keys lists the settings names accepted by ParsePatch.
var Keys = []string{
	"autoStart",
	"maxHistory",
	"pasteDelimiter",
	"pollInterval",
	"shortcutPaste",
	"shortcutToggle",
	"showNotifications",
	"theme",
}

// ParsePatch builds a Patch from string values keyed by setting name, as
// given on a command line. Key matching ignores case.
func ParsePatch(kv map[string]string) (Patch, error) {
	var p Patch
	names := make([]string, 0, len(kv))
	for k := range kv {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, k := range names {
		v := kv[k]
		switch strings.ToLower(k) {
		case "pollinterval":
			n, err := cast.ToIntE(v)
			if err != nil {
				return Patch{}, fmt.Errorf("%w: pollInterval: %v", ErrInvalid, err)
			}
			p.PollInterval = &n
		case "maxhistory":
			n, err := cast.ToIntE(v)
			if err != nil {
				return Patch{}, fmt.Errorf("%w: maxHistory: %v", ErrInvalid, err)
			}
			p.MaxHistory = &n
		case "shortcuttoggle":
			p.ShortcutToggle = &v
		case "shortcutpaste":
			p.ShortcutPaste = &v
		case "pastedelimiter":
			p.PasteDelimiter = &v
		case "theme":
			p.Theme = &v
		case "shownotifications":
			b, err := cast.ToBoolE(v)
			if err != nil {
				return Patch{}, fmt.Errorf("%w: showNotifications: %v", ErrInvalid, err)
			}
			p.ShowNotifications = &b
		case "autostart":
			b, err := cast.ToBoolE(v)
			if err != nil {
				return Patch{}, fmt.Errorf("%w: autoStart: %v", ErrInvalid, err)
			}
			p.AutoStart = &b
		default:
			return Patch{}, fmt.Errorf("%w: unknown setting %q (known: %s)", ErrInvalid, k, strings.Join(Keys, ", "))
		}
	}
	return p, nil
}
